package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"boltride/internal/shared/logger"
	"boltride/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Runner гонит события из feed-а в exchange пайплайна.
type Runner struct {
	feed       *Feed
	mqConn     *mq.RabbitMQ
	exchange   string
	routingKey string
	log        *logger.Logger

	eventsSent int
	startsSent int
	endsSent   int
	errors     int
}

// NewRunner создает новый runner
func NewRunner(feed *Feed, mqConn *mq.RabbitMQ, exchange, routingKey string, log *logger.Logger) *Runner {
	return &Runner{
		feed:       feed,
		mqConn:     mqConn,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}
}

// Stream отправляет события небольшими батчами со случайной задержкой,
// имитируя живой трафик продьюсеров.
func (r *Runner) Stream(ctx context.Context, delayMin, delayMax time.Duration, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1
	}
	if delayMax < delayMin {
		delayMax = delayMin
	}

	origStarts, origEnds := r.feed.Original()
	r.log.Info(logger.Entry{
		Action:  "generator_stream_started",
		Message: fmt.Sprintf("streaming %d events", origStarts+origEnds),
		Additional: map[string]any{
			"trip_start_records": origStarts,
			"trip_end_records":   origEnds,
			"batch_size":         batchSize,
		},
	})

	started := time.Now()
	batchCount := 0

	for {
		sent, err := r.sendBatch(ctx, batchSize)
		if err != nil {
			return err
		}
		if sent == 0 {
			break
		}

		batchCount++
		startsLeft, endsLeft := r.feed.Remaining()
		r.log.Debug(logger.Entry{
			Action:  "generator_batch_sent",
			Message: fmt.Sprintf("batch %d: %d events", batchCount, sent),
			Additional: map[string]any{
				"trip_start_remaining": startsLeft,
				"trip_end_remaining":   endsLeft,
			},
		})

		delay := delayMin + time.Duration(rand.Int63n(int64(delayMax-delayMin)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	r.logFinal(time.Since(started))
	return nil
}

// Burst отправляет события крупными пачками с паузой между пачками.
func (r *Runner) Burst(ctx context.Context, burstSize int, burstDelay time.Duration) error {
	if burstSize <= 0 {
		burstSize = 50
	}

	origStarts, origEnds := r.feed.Original()
	r.log.Info(logger.Entry{
		Action:  "generator_burst_started",
		Message: fmt.Sprintf("bursting %d events", origStarts+origEnds),
		Additional: map[string]any{
			"burst_size":     burstSize,
			"burst_delay_ms": burstDelay.Milliseconds(),
		},
	})

	started := time.Now()
	burstCount := 0

	for {
		sent, err := r.sendBatch(ctx, burstSize)
		if err != nil {
			return err
		}
		if sent == 0 {
			break
		}

		burstCount++
		startsLeft, endsLeft := r.feed.Remaining()
		r.log.Info(logger.Entry{
			Action:  "generator_burst_sent",
			Message: fmt.Sprintf("burst %d: %d events", burstCount, sent),
			Additional: map[string]any{
				"trip_start_remaining": startsLeft,
				"trip_end_remaining":   endsLeft,
			},
		})

		if startsLeft+endsLeft == 0 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(burstDelay):
		}
	}

	r.logFinal(time.Since(started))
	return nil
}

func (r *Runner) sendBatch(ctx context.Context, size int) (int, error) {
	sent := 0
	for i := 0; i < size; i++ {
		event, ok := r.feed.Next()
		if !ok {
			break
		}
		if err := r.sendEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			r.errors++
			continue
		}
		sent++
	}
	return sent, nil
}

func (r *Runner) sendEvent(ctx context.Context, event map[string]any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	tripID, _ := event["trip_id"].(string)
	eventType, _ := event["event_type"].(string)

	headers := amqp.Table{"trip_id": tripID}

	if err := r.mqConn.Publish(ctx, r.exchange, r.routingKey, body, headers); err != nil {
		r.log.Error(logger.Entry{
			Action:  "generator_publish_failed",
			Message: err.Error(),
			TripID:  tripID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return err
	}

	r.eventsSent++
	if eventType == "trip_start" {
		r.startsSent++
	} else {
		r.endsSent++
	}

	return nil
}

func (r *Runner) logFinal(duration time.Duration) {
	origStarts, origEnds := r.feed.Original()
	startsLeft, endsLeft := r.feed.Remaining()

	rate := 0.0
	if duration.Seconds() > 0 {
		rate = float64(r.eventsSent) / duration.Seconds()
	}

	r.log.Info(logger.Entry{
		Action:  "generator_finished",
		Message: fmt.Sprintf("sent %d/%d events in %.2fs", r.eventsSent, origStarts+origEnds, duration.Seconds()),
		Additional: map[string]any{
			"trip_start_sent":      r.startsSent,
			"trip_end_sent":        r.endsSent,
			"errors":               r.errors,
			"events_per_second":    rate,
			"trip_start_remaining": startsLeft,
			"trip_end_remaining":   endsLeft,
		},
	})
}
