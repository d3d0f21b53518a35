package tmux

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"slotmux/cmd/cmd_test"

	"github.com/stretchr/testify/require"
)

// fakeServer simulates enough of a tmux server for registry tests: it mints
// pane ids on new-window and tracks which ones are alive.
type fakeServer struct {
	nextPane   int
	nextWindow int
	alive      map[string]bool
	cmds       []string
	createErr  error
	renameErr  error
}

func newFakeServer() *fakeServer {
	return &fakeServer{nextPane: 3, nextWindow: 7, alive: make(map[string]bool)}
}

func (f *fakeServer) executor() cmd_test.MockCmdExec {
	return cmd_test.MockCmdExec{
		RunFunc: func(c *exec.Cmd) error {
			f.cmds = append(f.cmds, c.String())
			switch verb(c) {
			case "has-session":
				if f.alive[c.Args[len(c.Args)-1]] {
					return nil
				}
				return errors.New("exit status 1")
			case "new-window":
				if f.createErr != nil {
					if c.Stderr != nil {
						_, _ = c.Stderr.Write([]byte("create 'sh' failed"))
					}
					return f.createErr
				}
				pane := f.nextPane
				window := f.nextWindow
				f.nextPane++
				f.nextWindow++
				id := "%" + strconv.Itoa(pane)
				f.alive[id] = true
				_, _ = c.Stdout.Write([]byte(id + ":@" + strconv.Itoa(window) + "\n"))
				return nil
			case "rename-window":
				return f.renameErr
			case "kill-pane", "kill-window":
				id := c.Args[len(c.Args)-1]
				if !f.alive[id] {
					return errors.New("exit status 1")
				}
				delete(f.alive, id)
				return nil
			default:
				return nil
			}
		},
		OutputFunc: func(c *exec.Cmd) ([]byte, error) {
			f.cmds = append(f.cmds, c.String())
			return nil, nil
		},
	}
}

func (f *fakeServer) commandsContaining(sub string) []string {
	var out []string
	for _, c := range f.cmds {
		if strings.Contains(c, sub) {
			out = append(out, c)
		}
	}
	return out
}

func TestGetOrCreateCreatesLazily(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("/work/dir", Options{}, srv.executor())

	w, err := r.GetOrCreate(1)
	require.NoError(t, err)
	require.Equal(t, "%3", w.Identifier())

	created := srv.commandsContaining("new-window")
	require.Len(t, created, 1)
	require.Contains(t, created[0], "-P")
	require.Contains(t, created[0], "#{pane_id}:#{window_id}")
	require.Contains(t, created[0], "/work/dir")
}

func TestGetOrCreateReturnsSameHandle(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w1, err := r.GetOrCreate(1)
	require.NoError(t, err)
	w2, err := r.GetOrCreate(1)
	require.NoError(t, err)

	// Same identity, no second creation
	require.Same(t, w1, w2)
	require.Len(t, srv.commandsContaining("new-window"), 1)
}

func TestGetOrCreateReplacesDeadHandle(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w1, err := r.GetOrCreate(1)
	require.NoError(t, err)

	// Window vanishes behind our back
	delete(srv.alive, w1.Identifier())

	w2, err := r.GetOrCreate(1)
	require.NoError(t, err)
	require.NotSame(t, w1, w2)
	require.NotEqual(t, w1.Identifier(), w2.Identifier())
	require.Len(t, srv.commandsContaining("new-window"), 2)
}

func TestGetOrCreateDistinctSlots(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w1, err := r.GetOrCreate(1)
	require.NoError(t, err)
	w2, err := r.GetOrCreate(2)
	require.NoError(t, err)

	require.NotEqual(t, w1.Identifier(), w2.Identifier())
	require.Equal(t, []int{1, 2}, r.Slots())
}

func TestGetOrCreateCreationFailure(t *testing.T) {
	srv := newFakeServer()
	srv.createErr = errors.New("exit status 1")
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w, err := r.GetOrCreate(1)
	require.Nil(t, w)

	var cErr *CreationError
	require.ErrorAs(t, err, &cErr)
	require.Contains(t, cErr.Error(), "create 'sh' failed")

	// No registry mutation on failed creation
	_, ok := r.Lookup(1)
	require.False(t, ok)
	require.Empty(t, r.Slots())
}

func TestGetOrCreateMalformedOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "no separator", output: "%3@7\n"},
		{name: "too many components", output: "%3:@7:extra\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmdExec := cmd_test.MockCmdExec{
				RunFunc: func(c *exec.Cmd) error {
					if verb(c) == "new-window" {
						_, _ = c.Stdout.Write([]byte(tt.output))
						return nil
					}
					return errors.New("exit status 1")
				},
				OutputFunc: func(c *exec.Cmd) ([]byte, error) {
					return nil, nil
				},
			}
			r := NewRegistryWithDeps("", Options{}, cmdExec)

			w, err := r.GetOrCreate(1)
			require.Nil(t, w)

			var pErr *ParseError
			require.ErrorAs(t, err, &pErr)

			_, ok := r.Lookup(1)
			require.False(t, ok)
		})
	}
}

func TestCreateSentinelPrefix(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w, err := r.GetOrCreate(1)
	require.NoError(t, err)
	// Creation output "%3:@7" stores the pane id sentinel-prefixed
	require.Equal(t, "%3", w.Identifier())
}

func TestStaticWindowName(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{WindowName: "scratch"}, srv.executor())

	_, err := r.GetOrCreate(1)
	require.NoError(t, err)

	created := srv.commandsContaining("new-window")
	require.Len(t, created, 1)
	require.Contains(t, created[0], "-n scratch")
	// Static naming never issues a rename
	require.Empty(t, srv.commandsContaining("rename-window"))
}

func TestNamerRenamesAfterCreate(t *testing.T) {
	srv := newFakeServer()
	var gotSlot int
	var gotPane, gotWindow string
	opts := Options{
		Namer: func(slot int, paneID, windowID string) string {
			gotSlot, gotPane, gotWindow = slot, paneID, windowID
			return "term-" + strconv.Itoa(slot)
		},
	}
	r := NewRegistryWithDeps("", opts, srv.executor())

	_, err := r.GetOrCreate(4)
	require.NoError(t, err)

	require.Equal(t, 4, gotSlot)
	require.Equal(t, "%3", gotPane)
	require.Equal(t, "@7", gotWindow)

	renames := srv.commandsContaining("rename-window")
	require.Len(t, renames, 1)
	require.Contains(t, renames[0], "@7")
	require.Contains(t, renames[0], "term-4")
}

func TestNamerRenameFailureIsBestEffort(t *testing.T) {
	srv := newFakeServer()
	srv.renameErr = errors.New("exit status 1")
	opts := Options{
		Namer: func(slot int, paneID, windowID string) string { return "x" },
	}
	r := NewRegistryWithDeps("", opts, srv.executor())

	w, err := r.GetOrCreate(1)
	require.NoError(t, err)
	require.NotNil(t, w)

	// Window is registered despite the failed rename
	got, ok := r.Lookup(1)
	require.True(t, ok)
	require.Same(t, w, got)
}

func TestHandleWrapsLiteralIdentifier(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	w := r.Handle("%42")
	require.Equal(t, "%42", w.Identifier())

	// Bare ids get the sentinel applied
	w = r.Handle("42")
	require.Equal(t, "%42", w.Identifier())

	// Ad-hoc lookups never create or register
	require.Empty(t, srv.commandsContaining("new-window"))
	require.Empty(t, r.Slots())
}

func TestAdoptRegistersWithoutCreating(t *testing.T) {
	srv := newFakeServer()
	srv.alive["%5"] = true
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	r.Adopt(2, "%5")
	require.Empty(t, srv.commandsContaining("new-window"))

	w, err := r.GetOrCreate(2)
	require.NoError(t, err)
	require.Equal(t, "%5", w.Identifier())
	require.Empty(t, srv.commandsContaining("new-window"))
}

func TestAdoptedDeadPaneIsReplaced(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	r.Adopt(1, "%99")
	w, err := r.GetOrCreate(1)
	require.NoError(t, err)
	require.Equal(t, "%3", w.Identifier())
	require.Len(t, srv.commandsContaining("new-window"), 1)
}

func TestIdentifiers(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	_, err := r.GetOrCreate(3)
	require.NoError(t, err)
	r.Adopt(7, "%42")

	require.Equal(t, map[int]string{3: "%3", 7: "%42"}, r.Identifiers())
}

func TestClearAll(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	for slot := 1; slot <= 3; slot++ {
		_, err := r.GetOrCreate(slot)
		require.NoError(t, err)
	}
	require.Len(t, r.Slots(), 3)

	require.NoError(t, r.ClearAll())
	require.Empty(t, r.Slots())
	require.Len(t, srv.commandsContaining("kill-pane"), 3)
}

func TestClearAllVanishedWindowIsNotAnError(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{}, srv.executor())

	var windows []*Window
	for slot := 1; slot <= 3; slot++ {
		w, err := r.GetOrCreate(slot)
		require.NoError(t, err)
		windows = append(windows, w)
	}

	// The second window vanishes before teardown; its kill fails but the
	// existence check shows it gone
	delete(srv.alive, windows[1].Identifier())

	require.NoError(t, r.ClearAll())
	require.Empty(t, r.Slots())
	// All three kills were attempted
	require.Len(t, srv.commandsContaining("kill-pane"), 3)
}

func TestClearAllKillCommandOverride(t *testing.T) {
	srv := newFakeServer()
	r := NewRegistryWithDeps("", Options{KillCommand: "kill-window"}, srv.executor())

	_, err := r.GetOrCreate(1)
	require.NoError(t, err)

	require.NoError(t, r.ClearAll())
	require.Len(t, srv.commandsContaining("kill-window"), 1)
}

func TestClearAllCollectsFailures(t *testing.T) {
	srv := newFakeServer()
	exec0 := srv.executor()

	// Wrap the executor so kills fail while existence checks still pass
	failKills := cmd_test.MockCmdExec{
		RunFunc: func(c *exec.Cmd) error {
			if verb(c) == "kill-pane" {
				return errors.New("exit status 1")
			}
			return exec0.RunFunc(c)
		},
		OutputFunc: exec0.OutputFunc,
	}
	r := NewRegistryWithDeps("", Options{}, failKills)

	for slot := 1; slot <= 2; slot++ {
		_, err := r.GetOrCreate(slot)
		require.NoError(t, err)
	}

	err := r.ClearAll()
	require.Error(t, err)
	// Registry is cleared regardless of per-entry outcomes
	require.Empty(t, r.Slots())
}
