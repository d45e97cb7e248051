package audit

import (
	"context"
	"sync"

	"encore/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	attempts int
	written  []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attempts++
	if w.failures != 0 {
		if w.failures > 0 {
			w.failures--
		}
		return errors.New("broker not available")
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) snapshot() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.written...)
}

type fakeDlq struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.KafkaMessage
}

func (d *fakeDlq) InsertDLQ(_ context.Context, km domain.KafkaMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	km.DlqID = d.nextID
	d.rows = append(d.rows, km)
	return nil
}

func (d *fakeDlq) ListDLQ(_ context.Context, limit int) ([]domain.KafkaMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if limit > len(d.rows) {
		limit = len(d.rows)
	}
	return append([]domain.KafkaMessage(nil), d.rows[:limit]...), nil
}

func (d *fakeDlq) DeleteDLQ(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, row := range d.rows {
		if row.DlqID == id {
			d.rows = append(d.rows[:i], d.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (d *fakeDlq) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *fakeAuditRepo) InsertEvents(_ context.Context, events []domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeAuditRepo) GetVenueHistory(_ context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.AuditEvent
	for _, ev := range r.events {
		if ev.VenueID == venueID {
			matched = append(matched, ev)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// scriptedReader serves its messages once, then blocks until ctx is done.
type scriptedReader struct {
	messages chan kafka.Message
}

func newScriptedReader(values ...[]byte) *scriptedReader {
	r := &scriptedReader{messages: make(chan kafka.Message, len(values))}
	for _, v := range values {
		r.messages <- kafka.Message{Value: v}
	}
	return r
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}
