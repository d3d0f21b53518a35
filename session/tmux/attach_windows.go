//go:build windows

package tmux

import (
	"os"
	"time"

	"slotmux/log"

	"golang.org/x/term"
)

// monitorWindowSize polls for terminal size changes while attached. Windows
// has no SIGWINCH, so polling stands in for it.
func (w *Window) monitorWindowSize() {
	st := w.attach
	if st == nil {
		return
	}

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
	doUpdate()

	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		var lastCols, lastRows int
		for {
			select {
			case <-st.ctx.Done():
				return
			case <-ticker.C:
				cols, rows, err := term.GetSize(int(os.Stdin.Fd()))
				if err == nil && (cols != lastCols || rows != lastRows) {
					lastCols, lastRows = cols, rows
					doUpdate()
				}
			}
		}
	}()
}
