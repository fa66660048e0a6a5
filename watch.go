// FILE: lixenwraith/setty/watch.go
package setty

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultMaxWatchers = 100 // Prevent resource exhaustion

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// ReloadTimeout for a single re-extraction
	ReloadTimeout time.Duration

	// VerifyPermissions refuses to reload a file whose group or world
	// permissions changed
	VerifyPermissions bool
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

// ChangeKind classifies a watch notification.
type ChangeKind int

const (
	// ChangeReloaded means files changed and the configuration was re-extracted
	ChangeReloaded ChangeKind = iota
	// ChangeDeleted means a watched file disappeared
	ChangeDeleted
	// ChangePermissions means a watched file's permissions changed; it was not reloaded
	ChangePermissions
	// ChangeError means re-extraction failed; the previous value stays current
	ChangeError
	// ChangeTimeout means re-extraction did not finish in time
	ChangeTimeout
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeReloaded:
		return "reloaded"
	case ChangeDeleted:
		return "file_deleted"
	case ChangePermissions:
		return "permissions_changed"
	case ChangeError:
		return "reload_error"
	case ChangeTimeout:
		return "reload_timeout"
	default:
		return "unknown"
	}
}

// Change is delivered to watch subscribers.
type Change[T any] struct {
	Kind ChangeKind
	// File is the watched file that triggered the notification
	File string
	// Paths lists the property paths whose effective value changed
	Paths []string
	// Value is the newly extracted configuration for ChangeReloaded
	Value *T
	Err   error
}

type fileState struct {
	modTime time.Time
	size    int64
	mode    os.FileMode
	exists  bool
}

// watcher polls the file sources of a Config and re-extracts on change
type watcher[T any] struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	files            []*FileSource
	states           map[string]fileState
	snapshot         map[string]any
	latest           *T
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	subscribers      map[int64]chan Change[T]
	subscriberID     atomic.Int64
	debounceTimer    *time.Timer
}

// Watch starts polling the file sources of the config, if not already
// running, and returns a channel of change notifications. The channel is
// closed when watching stops. A config without file sources yields a closed
// channel.
func (c *Config[T]) Watch(opts WatchOptions) <-chan Change[T] {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w != nil && w.watching.Load() {
		return w.subscribe()
	}

	w = c.startWatcher(opts)
	if w == nil {
		ch := make(chan Change[T])
		close(ch)
		return ch
	}
	return w.subscribe()
}

// startWatcher creates and launches the watcher, returning nil when there is
// nothing to watch.
func (c *Config[T]) startWatcher(opts WatchOptions) *watcher[T] {
	// Validate options
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	files := c.watchedFiles()
	if len(files) == 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.watcher != nil {
		return c.watcher
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher[T]{
		ctx:         ctx,
		cancel:      cancel,
		opts:        opts,
		files:       files,
		states:      make(map[string]fileState, len(files)),
		subscribers: make(map[int64]chan Change[T]),
	}

	// Get initial file state
	for _, f := range files {
		w.states[f.path] = statFile(f)
	}

	c.watcher = w
	w.watching.Store(true)
	go w.watchLoop(c)
	return w
}

// watchedFiles returns the file sources of the config, with globs expanded.
func (c *Config[T]) watchedFiles() []*FileSource {
	var files []*FileSource
	for _, s := range c.Sources() {
		switch src := s.(type) {
		case *FileSource:
			files = append(files, src)
		case *GlobSource:
			expanded, err := src.Expand()
			if err != nil {
				continue
			}
			for _, e := range expanded {
				files = append(files, e.(*FileSource))
			}
		}
	}
	return files
}

// StopWatching stops file polling and closes all subscriber channels
func (c *Config[T]) StopWatching() {
	c.mutex.Lock()
	w := c.watcher
	c.watcher = nil
	c.mutex.Unlock()

	if w != nil {
		w.stop()
	}
}

// IsWatching returns true if file polling is active
func (c *Config[T]) IsWatching() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.watcher != nil && c.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels
func (c *Config[T]) WatcherCount() int {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w == nil {
		return 0
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subscribers)
}

// Latest returns the most recent value extracted by the watcher, or nil
// before the first reload.
func (c *Config[T]) Latest() *T {
	c.mutex.RLock()
	w := c.watcher
	c.mutex.RUnlock()

	if w == nil {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

func statFile(f *FileSource) fileState {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), mode: info.Mode(), exists: true}
}

// watchLoop is the main file watching loop
func (w *watcher[T]) watchLoop(c *Config[T]) {
	defer w.watching.Store(false)

	// Baseline for change detection
	if data, err := c.Data(true); err == nil {
		if m, ok := data.(map[string]any); ok {
			w.mu.Lock()
			w.snapshot = flattenMap(m, "")
			w.mu.Unlock()
		}
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReload(c)
		}
	}
}

// checkAndReload checks if any file changed and schedules a reload
func (w *watcher[T]) checkAndReload(c *Config[T]) {
	changed := ""

	for _, f := range w.files {
		prev := w.states[f.path]
		cur := statFile(f)

		if prev.exists && !cur.exists {
			w.states[f.path] = cur
			w.notify(Change[T]{Kind: ChangeDeleted, File: f.path})
			changed = f.path
			continue
		}
		if !cur.exists {
			continue
		}

		// SECURITY: Verify permissions haven't changed suspiciously
		if w.opts.VerifyPermissions && prev.exists && prev.mode != 0 &&
			(cur.mode&0077) != (prev.mode&0077) {
			w.states[f.path] = cur
			w.notify(Change[T]{Kind: ChangePermissions, File: f.path})
			// Don't reload on permission change for security
			return
		}

		if !cur.modTime.Equal(prev.modTime) || cur.size != prev.size || !prev.exists {
			w.states[f.path] = cur
			changed = f.path
		}
	}

	if changed == "" {
		return
	}

	// Debounce rapid changes
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
		w.performReload(c, changed)
	})
	w.mu.Unlock()
}

type reloadResult[T any] struct {
	value *T
	data  any
	err   error
}

// performReload re-extracts the configuration and notifies changed paths
func (w *watcher[T]) performReload(c *Config[T], file string) {
	// Prevent concurrent reloads
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	done := make(chan reloadResult[T], 1)
	go func() {
		value, err := c.Extract()
		if err != nil {
			done <- reloadResult[T]{err: err}
			return
		}
		data, err := c.Data(true)
		done <- reloadResult[T]{value: value, data: data, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			w.notify(Change[T]{Kind: ChangeError, File: file, Err: res.err})
			return
		}

		next := make(map[string]any)
		if m, ok := res.data.(map[string]any); ok {
			next = flattenMap(m, "")
		}

		w.mu.Lock()
		paths := diffSnapshots(w.snapshot, next)
		w.snapshot = next
		w.latest = res.value
		w.mu.Unlock()

		w.notify(Change[T]{Kind: ChangeReloaded, File: file, Paths: paths, Value: res.value})

	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			w.notify(Change[T]{Kind: ChangeTimeout, File: file, Err: err})
		}
	}
}

// diffSnapshots returns the sorted paths added, removed or modified.
func diffSnapshots(prev, next map[string]any) []string {
	var paths []string
	for path, value := range next {
		if old, existed := prev[path]; !existed || !Equal(old, value) {
			paths = append(paths, path)
		}
	}
	for path := range prev {
		if _, exists := next[path]; !exists {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// subscribe creates a new subscriber channel
func (w *watcher[T]) subscribe() <-chan Change[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Check watcher limit
	if len(w.subscribers) >= w.opts.MaxWatchers {
		ch := make(chan Change[T])
		close(ch)
		return ch
	}

	// Buffered so a slow subscriber does not block polling
	ch := make(chan Change[T], 10)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	// Cleanup goroutine
	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// notify sends a change to all subscribers, dropping it for full channels
func (w *watcher[T]) notify(change Change[T]) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

// stop terminates the watcher
func (w *watcher[T]) stop() {
	if w.cancel != nil {
		w.cancel()
	}

	// Stop debounce timer
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}
