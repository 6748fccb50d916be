package audit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiredirector/gateway/internal/observability"
)

// countingLogger counts Info calls for assertions.
type countingLogger struct {
	observability.Logger
	mu    sync.Mutex
	infos int
}

func newCountingLogger() *countingLogger {
	return &countingLogger{Logger: observability.NopLogger()}
}

func (c *countingLogger) Info(msg string, fields ...observability.Field) {
	c.mu.Lock()
	c.infos++
	c.mu.Unlock()
}

func (c *countingLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infos
}

func TestLogger_RecordAndClose(t *testing.T) {
	base := newCountingLogger()
	logger := NewLogger(base, 16)

	for i := 0; i < 5; i++ {
		logger.Record(RequestEvent(&Subject{Name: "test-client"}, "GET", "/proxy", 200))
	}
	logger.Close()

	assert.Equal(t, 5, base.count())
}

func TestLogger_RecordNil(t *testing.T) {
	logger := NewLogger(observability.NopLogger(), 4)
	defer logger.Close()

	assert.NotPanics(t, func() { logger.Record(nil) })
}

func TestLogger_RecordAfterClose(t *testing.T) {
	logger := NewLogger(observability.NopLogger(), 4)
	logger.Close()

	assert.NotPanics(t, func() {
		logger.Record(SecurityEvent(ActionInvalidKey, OutcomeDenied, nil))
	})
	// Close is idempotent.
	assert.NotPanics(t, logger.Close)
}

func TestLogger_DropsWhenFull(t *testing.T) {
	var dropped atomic.Int64

	// A blocking base logger keeps the drain goroutine busy so the
	// queue fills up.
	release := make(chan struct{})
	base := &blockingLogger{Logger: observability.NopLogger(), release: release}

	logger := NewLogger(base, 1, WithOnDrop(func() {
		dropped.Add(1)
	}))

	for i := 0; i < 10; i++ {
		logger.Record(RequestEvent(nil, "GET", "/proxy", 200))
	}
	close(release)
	logger.Close()

	assert.Positive(t, dropped.Load())
}

type blockingLogger struct {
	observability.Logger
	release chan struct{}
	once    sync.Once
}

func (b *blockingLogger) Info(msg string, fields ...observability.Field) {
	b.once.Do(func() {
		select {
		case <-b.release:
		case <-time.After(5 * time.Second):
		}
	})
}

func TestNopRecorder(t *testing.T) {
	recorder := NewNopRecorder()
	require.NotNil(t, recorder)
	assert.NotPanics(t, func() {
		recorder.Record(RequestEvent(nil, "GET", "/proxy", 200))
	})
}
