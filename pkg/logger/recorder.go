package logger

import "sync"

// Entry is a single recorded log call.
type Entry struct {
	Level   string
	Message string
	Fields  []any
}

// Recorder captures log calls in memory. Tests use it to assert on the
// degrade-gracefully paths that log instead of raising.
type Recorder struct {
	core *recorderCore
	with []any
}

type recorderCore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{core: &recorderCore{}}
}

func (r *Recorder) Debugw(msg string, keysAndValues ...any) { r.record("debug", msg, keysAndValues) }
func (r *Recorder) Infow(msg string, keysAndValues ...any)  { r.record("info", msg, keysAndValues) }
func (r *Recorder) Warnw(msg string, keysAndValues ...any)  { r.record("warn", msg, keysAndValues) }
func (r *Recorder) Errorw(msg string, keysAndValues ...any) { r.record("error", msg, keysAndValues) }

func (r *Recorder) With(keysAndValues ...any) Logger {
	return &Recorder{core: r.core, with: append(append([]any{}, r.with...), keysAndValues...)}
}

func (r *Recorder) record(level, msg string, fields []any) {
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	r.core.entries = append(r.core.entries, Entry{
		Level:   level,
		Message: msg,
		Fields:  append(append([]any{}, r.with...), fields...),
	})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	out := make([]Entry, len(r.core.entries))
	copy(out, r.core.entries)
	return out
}

// Contains reports whether any entry at the given level carries msg.
func (r *Recorder) Contains(level, msg string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
