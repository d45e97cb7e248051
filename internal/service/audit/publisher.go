package audit

import (
	"context"
	"encoding/json"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/metrics"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Notify hands the audit rows of a committed mutation to the kafka workers.
// It never blocks the request: when the work channel is full, or the workers
// were already stopped, the message is parked in the DLQ instead.
func (as *auditService) Notify(ctx context.Context, m domain.Mutation) {
	for _, ev := range m.Audit {
		b, err := json.Marshal(ev)
		if err != nil {
			as.logger.WithContext(ctx).Errorf("audit: failed to marshal event %s: %v", ev.EventID, err)
			continue
		}

		kmsg := domain.KafkaMessage{
			Key:     ev.VenueID,
			Payload: b,
			Topic:   as.topic,
		}

		if as.enqueue(kmsg) {
			continue
		}

		metrics.RecordAudit("overflow")
		if err := as.dlqRepository.InsertDLQ(ctx, kmsg); err != nil {
			as.logger.WithContext(ctx).Error(errors.Wrapf(err, "audit: dlq insert failed for event %s", ev.EventID))
		}
	}
}

func (as *auditService) enqueue(km domain.KafkaMessage) bool {
	as.mu.RLock()
	defer as.mu.RUnlock()

	if as.stopped {
		return false
	}
	select {
	case as.kafkaWorkChan <- km:
		return true
	default:
		return false
	}
}

// Start launches n workers draining the work channel into kafka.
func (as *auditService) Start(n int) {
	if n <= 0 {
		n = constant.KafkaWorkerCount
	}
	for i := 0; i < n; i++ {
		as.wg.Add(1)
		go as.ProduceMessages(i)
	}
	as.logger.Infof("audit: started %d kafka workers", n)
}

// Stop closes the work channel and waits for the workers to drain it. Notify
// calls that arrive later go straight to the DLQ.
func (as *auditService) Stop() {
	as.stopOnce.Do(func() {
		as.mu.Lock()
		as.stopped = true
		close(as.kafkaWorkChan)
		as.mu.Unlock()
	})
	as.wg.Wait()
	as.logger.Info("audit: all kafka workers stopped")
}

func (as *auditService) ProduceMessages(workerID int) {
	defer as.wg.Done()

	for km := range as.kafkaWorkChan {
		if err := as.write(context.Background(), km); err == nil {
			metrics.RecordAudit("written")
			continue
		}

		km.Attempts += constant.KafkaWriteRetries
		metrics.RecordAudit("dlq")
		if err := as.dlqRepository.InsertDLQ(context.Background(), km); err != nil {
			as.logger.Errorf("audit worker %d: failed to insert dlq: %v", workerID, err)
		}
	}
}

// write tries the message a bounded number of times with linear backoff.
func (as *auditService) write(ctx context.Context, km domain.KafkaMessage) error {
	var err error
	for attempt := 0; attempt < constant.KafkaWriteRetries; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, constant.KafkaWriteTimeout)
		err = as.kafkaWriter.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(km.Key),
			Value: km.Payload,
			Time:  time.Now(),
		})
		cancel()
		if err == nil {
			return nil
		}

		as.logger.Warnf("audit: write attempt %d for key %s failed: %v", attempt+1, km.Key, err)
		if attempt+1 < constant.KafkaWriteRetries {
			time.Sleep(as.retryBackoff * time.Duration(attempt+1))
		}
	}
	return errors.Wrap(err, "kafka write retries exhausted")
}
