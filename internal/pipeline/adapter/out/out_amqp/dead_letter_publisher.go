package out_amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"boltride/internal/pipeline/domain"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterPublisher публикует провалившиеся записи в retry-очередь
type DeadLetterPublisher struct {
	mq         *mq.RabbitMQ
	exchange   string
	routingKey string
	log        *logger.Logger
}

// NewDeadLetterPublisher создает новый publisher
func NewDeadLetterPublisher(mqConn *mq.RabbitMQ, exchange, routingKey string, log *logger.Logger) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		mq:         mqConn,
		exchange:   exchange,
		routingKey: routingKey,
		log:        log,
	}
}

// Send публикует dead-letter сообщение с категорией в заголовках.
// POISON_PILL маршрутизируется отдельным ключом: такие записи
// складываются для ручного разбора и не ретраятся consumer-ом.
func (p *DeadLetterPublisher) Send(ctx context.Context, msg domain.DeadLetterMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dead letter message: %w", err)
	}

	category := msg.ErrorDetails.ErrorCategory

	routingKey := p.routingKey
	if category == domain.CategoryPoisonPill {
		routingKey += ".poison"
	}

	headers := amqp.Table{
		"error_category": string(category),
		"retry_count":    int32(msg.RetryCount),
		"max_retries":    int32(msg.MaxRetries),
	}

	if err := p.mq.Publish(ctx, p.exchange, routingKey, payload, headers); err != nil {
		p.log.Error(logger.Entry{
			Action:        "dead_letter_publish_failed",
			Message:       err.Error(),
			CorrelationID: msg.CorrelationID,
			Error:         &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"error_category": string(category),
				"routing_key":    routingKey,
			},
		})
		return fmt.Errorf("publish to rabbitmq: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:        "dead_letter_published",
		Message:       string(category),
		CorrelationID: msg.CorrelationID,
		Additional: map[string]any{
			"routing_key": routingKey,
			"retry_count": msg.RetryCount,
		},
	})

	return nil
}
