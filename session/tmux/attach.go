package tmux

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"slotmux/log"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// attachState holds the PTY plumbing while the caller's terminal is attached
// to this window's session.
type attachState struct {
	ptmx    *os.File
	ch      chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	restore func()
}

// Attach connects the caller's terminal to the session hosting this window
// through a PTY. Intended for processes running outside a tmux client, where
// switch-client cannot focus anything. Returns a channel that is closed when
// the session is detached (Ctrl+Q).
func (w *Window) Attach() (chan struct{}, error) {
	if w.attach != nil {
		return nil, fmt.Errorf("already attached to %s", w.id)
	}

	target, err := w.Target()
	if err != nil {
		return nil, err
	}

	ptmx, err := pty.Start(exec.Command("tmux", "attach-session", "-t", target))
	if err != nil {
		return nil, fmt.Errorf("error opening PTY: %w", err)
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		_ = ptmx.Close()
		return nil, fmt.Errorf("error entering raw mode: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &attachState{
		ptmx:   ptmx,
		ch:     make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		wg:     &sync.WaitGroup{},
		restore: func() {
			_ = term.Restore(int(os.Stdin.Fd()), oldState)
		},
	}
	w.attach = st

	// Size the PTY to the real terminal before any output flows
	if cols, rows, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
		_ = w.setAttachedSize(cols, rows)
	}

	fmt.Fprintf(os.Stdout, "\033[90m--- Press Ctrl+Q to detach ---\033[0m\r\n")

	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		_, _ = io.Copy(os.Stdout, ptmx)
	}()

	go func() {
		buf := make([]byte, 32)
		for {
			nr, err := os.Stdin.Read(buf)
			if err != nil {
				if err == io.EOF {
					return
				}
				continue
			}

			// Ctrl+Q (ASCII 17) detaches
			if nr == 1 && buf[0] == 17 {
				w.Detach()
				return
			}

			_, _ = ptmx.Write(buf[:nr])
		}
	}()

	w.monitorWindowSize()
	return st.ch, nil
}

// Detach disconnects from the attached session and restores the terminal.
func (w *Window) Detach() {
	st := w.attach
	if st == nil {
		return
	}
	w.attach = nil

	st.cancel()
	if err := st.ptmx.Close(); err != nil {
		log.ErrorLog.Printf("error closing PTY: %v", err)
	}
	st.wg.Wait()
	st.restore()
	close(st.ch)
}

// setAttachedSize resizes the attach PTY. No-op while detached.
func (w *Window) setAttachedSize(cols, rows int) error {
	if w.attach == nil || w.attach.ptmx == nil {
		return nil
	}
	return pty.Setsize(w.attach.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
		X:    0,
		Y:    0,
	})
}
