package gateway

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benvon/apigate/internal/models"
	"go.uber.org/zap"
)

type fakeLogSink struct {
	mu      sync.Mutex
	entries []*models.RequestLogEntry
}

func (s *fakeLogSink) Append(_ context.Context, entry *models.RequestLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeLogSink) snapshot() []*models.RequestLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.RequestLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func TestAuditWriterPersistsEntries(t *testing.T) {
	t.Parallel()

	sink := &fakeLogSink{}
	writer := NewAuditWriter(sink, zap.NewNop(), 16)

	ctx, cancel := context.WithCancel(context.Background())
	go writer.Start(ctx)

	for i := 0; i < 3; i++ {
		writer.Record(&models.RequestLogEntry{
			Method:     http.MethodGet,
			Path:       "/api/user-service/users",
			StatusCode: http.StatusOK,
		})
	}

	cancel()
	select {
	case <-writer.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop")
	}

	if got := len(sink.snapshot()); got != 3 {
		t.Errorf("expected 3 persisted entries, got %d", got)
	}
}

func TestAuditWriterFlushesBufferOnShutdown(t *testing.T) {
	t.Parallel()

	sink := &fakeLogSink{}
	writer := NewAuditWriter(sink, zap.NewNop(), 16)

	// Enqueue before the drain loop starts, then cancel immediately:
	// everything buffered must still reach the sink.
	for i := 0; i < 5; i++ {
		writer.Record(&models.RequestLogEntry{Method: http.MethodGet, Path: "/api/x/y"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	writer.Start(ctx)

	if got := len(sink.snapshot()); got != 5 {
		t.Errorf("expected 5 flushed entries, got %d", got)
	}
}

func TestAuditWriterDropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := &fakeLogSink{}
	writer := NewAuditWriter(sink, zap.NewNop(), 2)

	// No drain loop running: the third enqueue must drop, not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			writer.Record(&models.RequestLogEntry{Method: http.MethodGet, Path: "/api/x/y"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	writer.Start(ctx)

	if got := len(sink.snapshot()); got != 2 {
		t.Errorf("expected 2 persisted entries after drop, got %d", got)
	}
}
