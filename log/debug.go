package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Debug mode configuration. Enable by setting SM_DEBUG=1.
var (
	DebugEnabled bool
	DebugLog     *log.Logger
	debugLogFile *os.File
)

var debugLogFileName = filepath.Join(os.TempDir(), "slotmux-debug.log")

// InitDebug initializes debug logging if SM_DEBUG=1 is set.
// Called by Initialize.
func InitDebug() {
	if os.Getenv("SM_DEBUG") != "1" {
		// No-op logger to prevent nil pointer panics
		DebugLog = log.New(io.Discard, "", 0)
		return
	}

	DebugEnabled = true

	f, err := os.OpenFile(debugLogFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		if ErrorLog != nil {
			ErrorLog.Printf("could not open debug log file: %s", err)
		}
		DebugLog = log.New(io.Discard, "", 0)
		return
	}

	DebugLog = log.New(f, "DEBUG:", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugLogFile = f

	DebugLog.Println("Debug mode enabled")
	DebugLog.Printf("Debug log: %s", debugLogFileName)
}

// CloseDebug closes the debug log file.
func CloseDebug() {
	if debugLogFile != nil {
		_ = debugLogFile.Close()
		fmt.Println("wrote debug logs to " + debugLogFileName)
	}
}

// Debug logs a debug message if debug mode is enabled.
func Debug(format string, v ...interface{}) {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Printf(format, v...)
	}
}

// CallProfiler tracks timing for tmux subprocess invocations. Every call to a
// multiplexer command goes through an Executor, which reports here; the
// profile shows which tmux verbs dominate wall time.
type CallProfiler struct {
	mu        sync.RWMutex
	verbs     map[string]*CallMetrics
	callCount int64
	totalTime time.Duration
}

// CallMetrics tracks metrics for a single command verb (e.g. "new-window").
type CallMetrics struct {
	Verb      string
	CallCount int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
	Failures  int64
	LastAt    time.Time
}

// Global profiler instance
var profiler = &CallProfiler{
	verbs: make(map[string]*CallMetrics),
}

// GetProfiler returns the global call profiler.
func GetProfiler() *CallProfiler {
	return profiler
}

// StartCall begins timing a subprocess call for the given verb.
// Returns a function to call when the subprocess exits.
func (p *CallProfiler) StartCall(verb string) func(failed bool) {
	if !DebugEnabled {
		return func(bool) {}
	}

	start := time.Now()
	return func(failed bool) {
		p.recordCall(verb, time.Since(start), failed)
	}
}

func (p *CallProfiler) recordCall(verb string, elapsed time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	metrics, ok := p.verbs[verb]
	if !ok {
		metrics = &CallMetrics{
			Verb:    verb,
			MinTime: elapsed,
			MaxTime: elapsed,
		}
		p.verbs[verb] = metrics
	}

	metrics.CallCount++
	metrics.TotalTime += elapsed
	metrics.LastAt = time.Now()
	if failed {
		metrics.Failures++
	}

	if elapsed < metrics.MinTime {
		metrics.MinTime = elapsed
	}
	if elapsed > metrics.MaxTime {
		metrics.MaxTime = elapsed
	}

	p.callCount++
	p.totalTime += elapsed

	// tmux commands normally return in a few ms
	if elapsed > 250*time.Millisecond && DebugLog != nil {
		DebugLog.Printf("SLOW CALL: %s took %v", verb, elapsed)
	}
}

// GetStats returns a summary of subprocess call statistics.
func (p *CallProfiler) GetStats() string {
	if !DebugEnabled {
		return ""
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("\n=== Subprocess Profile ===\n")
	sb.WriteString(fmt.Sprintf("Total calls: %d\n", p.callCount))

	if p.callCount > 0 {
		avg := p.totalTime / time.Duration(p.callCount)
		sb.WriteString(fmt.Sprintf("Avg call time: %v\n", avg))
	}

	sb.WriteString("\n--- Verbs ---\n")

	// Sort by total time descending
	var sorted []*CallMetrics
	for _, m := range p.verbs {
		sorted = append(sorted, m)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TotalTime > sorted[j].TotalTime
	})

	for _, m := range sorted {
		avg := time.Duration(0)
		if m.CallCount > 0 {
			avg = m.TotalTime / time.Duration(m.CallCount)
		}
		sb.WriteString(fmt.Sprintf("  %s: count=%d failures=%d total=%v avg=%v min=%v max=%v\n",
			m.Verb, m.CallCount, m.Failures, m.TotalTime, avg, m.MinTime, m.MaxTime))
	}

	return sb.String()
}

// LogStats logs the current subprocess statistics.
func (p *CallProfiler) LogStats() {
	if DebugEnabled && DebugLog != nil {
		DebugLog.Print(p.GetStats())
	}
}

// Reset clears all profiling data.
func (p *CallProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.verbs = make(map[string]*CallMetrics)
	p.callCount = 0
	p.totalTime = 0
}
