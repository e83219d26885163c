package inamqp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"boltride/internal/pipeline/application/usecase"
	"boltride/internal/pipeline/domain"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TripEventConsumer читает события жизненного цикла поездок из очереди
// и передает их батчами в координатор.
//
// Семантика доставки — at-least-once: ack уходит только после того,
// как батч полностью обработан (каждая запись либо смержена, либо
// ушла в карантин/dead-letter). Падение процесса до ack приводит к
// redelivery, идемпотентность merge это переживает.
type TripEventConsumer struct {
	mqConn    *mq.RabbitMQ
	processor *usecase.ProcessBatchService
	queue     string
	batchSize int
	linger    time.Duration
	log       *logger.Logger
}

// NewTripEventConsumer создает новый consumer
func NewTripEventConsumer(
	mqConn *mq.RabbitMQ,
	processor *usecase.ProcessBatchService,
	queue string,
	batchSize int,
	linger time.Duration,
	log *logger.Logger,
) *TripEventConsumer {
	if batchSize <= 0 {
		batchSize = 100
	}
	if linger <= 0 {
		linger = 500 * time.Millisecond
	}
	return &TripEventConsumer{
		mqConn:    mqConn,
		processor: processor,
		queue:     queue,
		batchSize: batchSize,
		linger:    linger,
		log:       log,
	}
}

// Start запускает цикл чтения. Батч закрывается по размеру или по
// linger-таймеру, что наступит раньше.
func (c *TripEventConsumer) Start(ctx context.Context) error {
	msgs, err := c.mqConn.Consume(c.queue, "stream-processor")
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", c.queue, err)
	}

	c.log.Info(logger.Entry{
		Action:  "trip_event_consumer_started",
		Message: fmt.Sprintf("listening on queue: %s", c.queue),
		Additional: map[string]any{
			"batch_size":      c.batchSize,
			"batch_linger_ms": c.linger.Milliseconds(),
		},
	})

	batch := make([]amqp.Delivery, 0, c.batchSize)
	timer := time.NewTimer(c.linger)
	defer timer.Stop()

	flush := func() {
		if len(batch) > 0 {
			c.processBatch(ctx, batch)
			batch = batch[:0]
		}
		timer.Reset(c.linger)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			c.log.Info(logger.Entry{Action: "trip_event_consumer_stopping", Message: "context cancelled"})
			return ctx.Err()

		case <-timer.C:
			flush()

		case msg, ok := <-msgs:
			if !ok {
				flush()
				c.log.Warn(logger.Entry{Action: "trip_event_consumer_channel_closed", Message: "message channel closed"})
				return fmt.Errorf("message channel closed")
			}

			batch = append(batch, msg)
			if len(batch) >= c.batchSize {
				flush()
			}
		}
	}
}

// processBatch передает батч координатору и подтверждает доставку.
// Ack безусловный: записи, которые не удалось обработать, уже ушли
// в dead-letter или карантин внутри координатора.
func (c *TripEventConsumer) processBatch(ctx context.Context, batch []amqp.Delivery) {
	// Принятый в обработку батч дорабатывается до конца: отмена на
	// shutdown не должна оборвать disposition уже прочитанных записей,
	// иначе ack уйдет по записям, которые store отверг с context canceled.
	ctx = context.WithoutCancel(ctx)

	records := make([]domain.TransportRecord, len(batch))
	for i, msg := range batch {
		records[i] = toTransportRecord(msg)
	}

	result := c.processor.Execute(ctx, records)

	// multiple=true подтверждает все теги до последнего включительно
	last := batch[len(batch)-1]
	if err := last.Ack(true); err != nil {
		c.log.Error(logger.Entry{
			Action:        "batch_ack_failed",
			Message:       err.Error(),
			CorrelationID: result.CorrelationID,
			Error:         &logger.ErrObj{Msg: err.Error()},
		})
	}
}

// toTransportRecord отображает AMQP-доставку на транспортную запись:
// delivery tag играет роль sequence number, routing key — partition key.
func toTransportRecord(msg amqp.Delivery) domain.TransportRecord {
	arrival := msg.Timestamp
	if arrival.IsZero() {
		arrival = time.Now().UTC()
	}

	return domain.TransportRecord{
		Body:           msg.Body,
		SequenceNumber: strconv.FormatUint(msg.DeliveryTag, 10),
		PartitionKey:   msg.RoutingKey,
		ArrivalTime:    arrival,
	}
}
