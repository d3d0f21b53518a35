package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"slotmux/config"
	"slotmux/log"
	"slotmux/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#51bd73", Dark: "#51bd73"}).
			Bold(true)
	freeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
	windowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#dd7878", Dark: "#dd7878"})
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var (
	version = "0.3.1"

	dirFlag  string
	nameFlag string
	cmdFlag  int

	rootCmd = &cobra.Command{
		Use:   "slotmux",
		Short: "slotmux - Address tmux windows by slot number and replay stored commands into them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	gotoCmd = &cobra.Command{
		Use:   "goto <slot>",
		Short: "Focus the window for a slot, creating it on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}

			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			return mgr.Goto(slot)
		},
	}

	attachCmd = &cobra.Command{
		Use:   "attach <slot>",
		Short: "Attach the current terminal to a slot's window (for use outside tmux)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}

			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			detached, err := mgr.Attach(slot)
			if err != nil {
				return err
			}
			<-detached
			return nil
		},
	}

	sendCmd = &cobra.Command{
		Use:   "send <slot> [text [args...]]",
		Short: "Send text to a slot's window, or a stored command with --cmd",
		Long: "Send text to the window for a slot, creating the window on first use.\n" +
			"Extra arguments are substituted into the text with printf-style verbs.\n" +
			"With --cmd N, the command stored at slot N of the command table is sent\n" +
			"instead; a free command slot sends nothing.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseSlot(args[0])
			if err != nil {
				return err
			}

			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			if cmd.Flags().Changed("cmd") {
				if len(args) > 1 {
					return fmt.Errorf("cannot combine --cmd with literal text")
				}
				return mgr.SendStored(slot, cmdFlag)
			}

			if len(args) < 2 {
				return fmt.Errorf("nothing to send: provide text or --cmd")
			}
			return mgr.Send(slot, args[1], toAnys(args[2:])...)
		},
	}

	addCmd = &cobra.Command{
		Use:   "add <command>",
		Short: "Store a command at the first free slot of the command table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			slot := mgr.AddCommand(args[0])
			fmt.Printf("stored at command slot %d\n", slot)
			return nil
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a stored command, shifting later ones down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}

			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			if !mgr.RemoveCommand(idx) {
				return fmt.Errorf("no command slot %d (table length %d)", idx, mgr.Length())
			}
			return nil
		},
	}

	replaceCmd = &cobra.Command{
		Use:   "replace [command...]",
		Short: "Replace the entire command table",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			mgr.ReplaceCommands(args)
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Show the command table and the active slot windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			var b strings.Builder
			b.WriteString(headerStyle.Render("Commands") + "\n")
			commands := mgr.Commands()
			if len(commands) == 0 {
				b.WriteString(freeStyle.Render("  (empty)") + "\n")
			}
			for i, command := range commands {
				label := slotStyle.Render(fmt.Sprintf("%3d", i+1))
				if command == "" {
					b.WriteString(fmt.Sprintf("%s  %s\n", label, freeStyle.Render("(free)")))
				} else {
					b.WriteString(fmt.Sprintf("%s  %s\n", label, command))
				}
			}

			b.WriteString("\n" + headerStyle.Render("Windows") + "\n")
			slots := mgr.ActiveSlots()
			if len(slots) == 0 {
				b.WriteString(freeStyle.Render("  (none)") + "\n")
			}
			for _, slot := range slots {
				id := mgr.WindowIdentifier(slot)
				b.WriteString(fmt.Sprintf("%s  %s\n",
					slotStyle.Render(fmt.Sprintf("%3d", slot)), windowStyle.Render(id)))
			}

			fmt.Print(b.String())
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Kill every slot window and forget the mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := buildManager()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := mgr.ClearAll(); err != nil {
				return err
			}
			fmt.Println("all slot windows cleared")
			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "Print debug information like config paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Initialize(false)
			defer log.Close()

			cfg := config.LoadConfig()

			configDir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("failed to get config directory: %w", err)
			}
			configJson, _ := json.MarshalIndent(cfg, "", "  ")

			fmt.Printf("Config: %s\n%s\n", filepath.Join(configDir, config.ConfigFileName), configJson)
			fmt.Printf("State: %s\n", filepath.Join(configDir, config.StateFileName))

			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of slotmux",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slotmux version %s\n", version)
		},
	}
)

// buildManager loads config and state and assembles the dispatcher. The
// returned cleanup closes the logs; it never tears down windows, which must
// survive across invocations.
func buildManager() (*session.Manager, func(), error) {
	log.Initialize(true)

	cfg := config.LoadConfig()
	if nameFlag != "" {
		cfg.WindowName = nameFlag
	}
	state := config.LoadState()

	workDir := dirFlag
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Close()
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}

	mgr, err := session.NewManager(workDir, cfg, state)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return mgr, log.Close, nil
}

func parseSlot(arg string) (int, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil || slot < 1 {
		return 0, fmt.Errorf("invalid slot %q: expected a positive integer", arg)
	}
	return slot, nil
}

func toAnys(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "",
		"Directory new windows start in (defaults to the current directory)")
	rootCmd.PersistentFlags().StringVarP(&nameFlag, "name", "n", "",
		"Window name for newly created windows (overrides config)")
	sendCmd.Flags().IntVarP(&cmdFlag, "cmd", "c", 0,
		"Send the command stored at this slot of the command table")

	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
