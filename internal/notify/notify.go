package notify

import (
	"slices"
	"sync"
)

// Level classifies a notification.
type Level string

// Level values.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is one user-visible message.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives user-visible notifications.
type Notifier interface {
	Notify(Notification)
}

// Success builds a success notification.
func Success(msg string) Notification {
	return Notification{Level: LevelSuccess, Message: msg}
}

// Error builds an error notification.
func Error(msg string) Notification {
	return Notification{Level: LevelError, Message: msg}
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(Notification) {}

// LogSink is the subset of a structured logger used by Logger.
type LogSink interface {
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// Logger writes notifications to a structured log sink.
type Logger struct {
	Sink LogSink
}

// Notify implements Notifier.
func (l Logger) Notify(n Notification) {
	if l.Sink == nil {
		return
	}
	if n.Level == LevelError {
		l.Sink.Error(n.Message, "kind", "notification")
		return
	}
	l.Sink.Info(n.Message, "kind", "notification", "level", string(n.Level))
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.list)
}

// Messages returns recorded messages at one level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.list))
	for _, n := range r.list {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

// Reset clears the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = nil
}

// Channel forwards notifications onto a bounded channel.
// Sends never block; notifications are dropped once the buffer is full.
type Channel struct {
	ch chan Notification
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = 16
	}
	return &Channel{ch: make(chan Notification, size)}
}

// Notify implements Notifier.
func (c *Channel) Notify(n Notification) {
	select {
	case c.ch <- n:
	default:
	}
}

// C returns the receive side.
func (c *Channel) C() <-chan Notification {
	return c.ch
}

// Fanout delivers each notification to every wrapped notifier.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(n Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(n)
		}
	}
}
