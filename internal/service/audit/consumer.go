package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type eventSink interface {
	InsertEvents(ctx context.Context, events []domain.AuditEvent) error
}

// Consumer moves queue events from kafka into the audit table in batches.
type Consumer struct {
	reader        kafkaReader
	sink          eventSink
	logger        *logrus.Logger
	batchSize     int
	flushInterval time.Duration
}

func NewConsumer(reader kafkaReader, sink eventSink, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader:        reader,
		sink:          sink,
		logger:        logger,
		batchSize:     constant.AuditBatchSize,
		flushInterval: constant.AuditFlushInterval,
	}
}

// Run blocks until ctx is done. Readers decode messages onto a shared
// channel; writers flush it to the sink when a batch fills up or the flush
// interval passes, and once more on shutdown.
func (c *Consumer) Run(ctx context.Context, readers, writers int) {
	if readers <= 0 {
		readers = 1
	}
	if writers <= 0 {
		writers = 1
	}

	events := make(chan domain.AuditEvent, c.batchSize*writers)

	var readWg sync.WaitGroup
	for i := 0; i < readers; i++ {
		readWg.Add(1)
		go func(id int) {
			defer readWg.Done()
			c.read(ctx, id, events)
		}(i)
	}

	var writeWg sync.WaitGroup
	for i := 0; i < writers; i++ {
		writeWg.Add(1)
		go func(id int) {
			defer writeWg.Done()
			c.write(ctx, id, events)
		}(i)
	}

	c.logger.WithContext(ctx).Infof("audit consumer: started %d readers and %d writers", readers, writers)

	readWg.Wait()
	close(events)
	writeWg.Wait()

	c.logger.WithContext(ctx).Info("audit consumer: stopped")
}

func (c *Consumer) read(ctx context.Context, id int, out chan<- domain.AuditEvent) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithContext(ctx).Errorf("audit reader %d: read error: %v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		var ev domain.AuditEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.logger.WithContext(ctx).Errorf("audit reader %d: failed to unmarshal message: %v, raw: %s", id, err, string(m.Value))
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) write(ctx context.Context, id int, in <-chan domain.AuditEvent) {
	batch := make([]domain.AuditEvent, 0, c.batchSize)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := c.sink.InsertEvents(insertCtx, batch); err != nil {
			c.logger.WithContext(ctx).Errorf("audit writer %d: failed to insert %d events: %v", id, len(batch), err)
		} else {
			c.logger.WithContext(ctx).Debugf("audit writer %d: flushed %d events", id, len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
