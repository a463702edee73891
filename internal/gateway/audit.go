package gateway

import (
	"context"
	"time"

	"github.com/benvon/apigate/internal/models"
	"go.uber.org/zap"
)

// LogSink persists audit entries.
type LogSink interface {
	Append(ctx context.Context, entry *models.RequestLogEntry) error
}

// AuditRecorder accepts one audit entry per completed request.
type AuditRecorder interface {
	Record(entry *models.RequestLogEntry)
}

// AuditWriter decouples audit persistence from the request path: Record is a
// bounded enqueue that never blocks the client response, and a background
// loop drains entries into the sink. Sink failures and overflow drops go to
// the operational log, never to the caller.
type AuditWriter struct {
	sink    LogSink
	log     *zap.Logger
	entries chan *models.RequestLogEntry
	done    chan struct{}
}

const defaultAuditBuffer = 1024

// NewAuditWriter creates an audit writer with the given buffer size
// (defaulted when <= 0). Call Start to begin draining.
func NewAuditWriter(sink LogSink, log *zap.Logger, buffer int) *AuditWriter {
	if buffer <= 0 {
		buffer = defaultAuditBuffer
	}
	return &AuditWriter{
		sink:    sink,
		log:     log,
		entries: make(chan *models.RequestLogEntry, buffer),
		done:    make(chan struct{}),
	}
}

// Done is closed once Start has flushed the remaining buffer and returned.
func (w *AuditWriter) Done() <-chan struct{} {
	return w.done
}

// Record enqueues an entry for persistence. Never blocks: when the buffer is
// full the entry is dropped and reported operationally.
func (w *AuditWriter) Record(entry *models.RequestLogEntry) {
	select {
	case w.entries <- entry:
	default:
		w.log.Error("audit_buffer_full_dropping_entry",
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Int("status_code", entry.StatusCode),
		)
	}
}

// Start drains entries into the sink until ctx is cancelled, then flushes
// whatever is still buffered.
func (w *AuditWriter) Start(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case entry := <-w.entries:
			w.append(entry)
		}
	}
}

func (w *AuditWriter) drain() {
	for {
		select {
		case entry := <-w.entries:
			w.append(entry)
		default:
			return
		}
	}
}

func (w *AuditWriter) append(entry *models.RequestLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.sink.Append(ctx, entry); err != nil {
		w.log.Error("failed_to_persist_audit_entry",
			zap.String("method", entry.Method),
			zap.String("path", entry.Path),
			zap.Int("status_code", entry.StatusCode),
			zap.Error(err),
		)
	}
}
