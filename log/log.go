// Package log provides file-backed logging for slotmux. Because the host
// process shares its terminal with tmux, nothing may be written to
// stdout/stderr during normal operation; all diagnostics go to a log file
// in the temp directory instead.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	InfoLog    *log.Logger
	WarningLog *log.Logger
	ErrorLog   *log.Logger

	logFile  *os.File
	once     sync.Once
	enabled  bool
	fileName = filepath.Join(os.TempDir(), "slotmux.log")
)

// Initialize sets up the loggers. When quiet is true (e.g. running as a
// one-shot CLI invocation that prints to the terminal itself), logs still go
// to the file but nothing is ever echoed on Close.
func Initialize(quiet bool) {
	once.Do(func() {
		f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			// Fall back to discarding logs rather than failing the caller.
			InfoLog = log.New(io.Discard, "", 0)
			WarningLog = log.New(io.Discard, "", 0)
			ErrorLog = log.New(io.Discard, "", 0)
			return
		}

		logFile = f
		enabled = !quiet
		flags := log.Ldate | log.Ltime | log.Lshortfile
		InfoLog = log.New(f, "INFO: ", flags)
		WarningLog = log.New(f, "WARNING: ", flags)
		ErrorLog = log.New(f, "ERROR: ", flags)
	})

	InitDebug()
}

// Close flushes and closes the log file.
func Close() {
	CloseDebug()
	if logFile != nil {
		_ = logFile.Close()
		if enabled {
			fmt.Println("wrote logs to " + fileName)
		}
	}
}

// Every rate-limits log statements to once per interval.
type Every struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewEvery creates an Every with the given minimum interval between logs.
func NewEvery(interval time.Duration) *Every {
	return &Every{interval: interval}
}

// ShouldLog returns true at most once per interval.
func (e *Every) ShouldLog() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	if now.Sub(e.last) >= e.interval {
		e.last = now
		return true
	}
	return false
}
