package audit

import (
	"sync"

	"github.com/apiredirector/gateway/internal/observability"
)

// Recorder records audit events.
type Recorder interface {
	// Record submits an event. It never blocks the caller: when the
	// queue is full the event is dropped and counted.
	Record(event *Event)
}

// Logger is an asynchronous audit event recorder that drains a bounded
// queue into the structured logger.
type Logger struct {
	events chan *Event
	logger observability.Logger
	onDrop func()
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// LoggerOption is a functional option for the audit logger.
type LoggerOption func(*Logger)

// WithOnDrop sets a callback invoked whenever an event is dropped
// because the queue is full.
func WithOnDrop(fn func()) LoggerOption {
	return func(l *Logger) {
		l.onDrop = fn
	}
}

// NewLogger creates a new audit logger. queueSize bounds the number of
// pending events.
func NewLogger(logger observability.Logger, queueSize int, opts ...LoggerOption) *Logger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if queueSize < 1 {
		queueSize = 1
	}

	l := &Logger{
		events: make(chan *Event, queueSize),
		logger: logger,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.wg.Add(1)
	go l.drain()

	return l
}

// Record implements Recorder.
func (l *Logger) Record(event *Event) {
	if event == nil {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	select {
	case l.events <- event:
		l.mu.Unlock()
	default:
		l.mu.Unlock()
		if l.onDrop != nil {
			l.onDrop()
		}
	}
}

// Close stops the logger after draining pending events.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()

	l.wg.Wait()
}

// drain writes queued events to the structured logger.
func (l *Logger) drain() {
	defer l.wg.Done()

	for event := range l.events {
		fields := []observability.Field{
			observability.String("audit_id", event.ID),
			observability.Time("event_time", event.Timestamp),
			observability.String("type", string(event.Type)),
			observability.String("action", string(event.Action)),
			observability.String("outcome", string(event.Outcome)),
		}

		if event.Subject != nil {
			if event.Subject.KeyPrefix != "" {
				fields = append(fields, observability.String("key_prefix", event.Subject.KeyPrefix))
			}
			if event.Subject.Name != "" {
				fields = append(fields, observability.String("credential", event.Subject.Name))
			}
			if event.Subject.ClientIP != "" {
				fields = append(fields, observability.String("client_ip", event.Subject.ClientIP))
			}
		}

		if event.Method != "" {
			fields = append(fields, observability.String("method", event.Method))
		}
		if event.Endpoint != "" {
			fields = append(fields, observability.String("endpoint", event.Endpoint))
		}
		if event.Status != 0 {
			fields = append(fields, observability.Int("status", event.Status))
		}
		for k, v := range event.Metadata {
			fields = append(fields, observability.Any(k, v))
		}

		l.logger.Info("audit", fields...)
	}
}

// NopRecorder is a Recorder that discards all events.
type NopRecorder struct{}

// NewNopRecorder creates a recorder that discards all events.
func NewNopRecorder() *NopRecorder {
	return &NopRecorder{}
}

// Record implements Recorder.
func (NopRecorder) Record(*Event) {}
