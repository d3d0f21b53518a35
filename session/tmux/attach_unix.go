//go:build !windows

package tmux

import (
	"os"
	"os/signal"
	"time"

	"slotmux/log"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// monitorWindowSize propagates terminal resize events to the attach PTY
// while attached.
func (w *Window) monitorWindowSize() {
	st := w.attach
	if st == nil {
		return
	}

	winchChan := make(chan os.Signal, 1)
	signal.Notify(winchChan, unix.SIGWINCH)
	// Trigger the first resize immediately
	_ = unix.Kill(unix.Getpid(), unix.SIGWINCH)

	everyN := log.NewEvery(60 * time.Second)

	doUpdate := func() {
		cols, rows, err := term.GetSize(int(os.Stdin.Fd()))
		if err != nil {
			if everyN.ShouldLog() {
				log.ErrorLog.Printf("failed to get terminal size: %v", err)
			}
			return
		}
		if err := w.setAttachedSize(cols, rows); err != nil {
			if everyN.ShouldLog() {
				log.ErrorLog.Printf("failed to update window size: %v", err)
			}
		}
	}

	// Debounce resize events
	st.wg.Add(2)
	debouncedWinch := make(chan os.Signal, 1)
	go func() {
		defer st.wg.Done()
		var resizeTimer *time.Timer
		for {
			select {
			case <-st.ctx.Done():
				return
			case <-winchChan:
				if resizeTimer != nil {
					resizeTimer.Stop()
				}
				resizeTimer = time.AfterFunc(50*time.Millisecond, func() {
					select {
					case debouncedWinch <- unix.SIGWINCH:
					case <-st.ctx.Done():
					}
				})
			}
		}
	}()
	go func() {
		defer st.wg.Done()
		defer signal.Stop(winchChan)
		for {
			select {
			case <-st.ctx.Done():
				return
			case <-debouncedWinch:
				doUpdate()
			}
		}
	}()
}
