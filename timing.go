// FILE: lixenwraith/setty/timing.go
package setty

import "time"

// Timing constants of the file watcher.
const (
	SpinWaitInterval     = 5 * time.Millisecond   // Busy-wait quantum while stopping
	MinPollInterval      = 100 * time.Millisecond // Hard floor for file stat polling
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultPollInterval  = time.Second            // Standard file monitoring frequency
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration of a re-extraction
)
