package ops

import (
	"log/slog"
	"sync"

	"github.com/roach88/erpsync/internal/model"
)

// Level of a transient notification.
type Level int

const (
	LevelSuccess Level = iota + 1
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is a transient, user-facing message raised when an
// invocation completes.
type Notification struct {
	Level    Level
	Resource model.Resource
	Op       model.OperationName
	Message  string
}

// Notifier receives transient notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at info or warn level.
func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"resource", n.Resource, "op", n.Op}
	if n.Level == LevelError {
		logger.Warn(n.Message, attrs...)
		return
	}
	logger.Info(n.Message, attrs...)
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Notify appends n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
