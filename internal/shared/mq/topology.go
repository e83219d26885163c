package mq

import (
	"fmt"

	"boltride/internal/shared/config"
	"boltride/internal/shared/logger"
)

// SetupTopology создает exchanges, queues и bindings для пайплайна
func SetupTopology(mq *RabbitMQ, cfg config.ProcessorConfig, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	// 1. Exchange: trip_topic (topic)
	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // args
	); err != nil {
		return fmt.Errorf("declare %s: %w", cfg.Exchange, err)
	}

	// 2. Очередь входящих событий (trip_start / trip_end)
	if _, err := ch.QueueDeclare(cfg.EventQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.EventQueue, err)
	}
	if err := ch.QueueBind(cfg.EventQueue, cfg.EventQueue, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", cfg.EventQueue, err)
	}

	// 3. Dead-letter очередь для transient/system/poison сбоев
	if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(cfg.DeadLetterQueue, cfg.DeadLetterQueue, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", cfg.DeadLetterQueue, err)
	}
	// poison-записи публикуются суффиксным ключом, ловим их той же очередью
	if err := ch.QueueBind(cfg.DeadLetterQueue, cfg.DeadLetterQueue+".*", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", cfg.DeadLetterQueue, err)
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: "all exchanges and queues created",
		Additional: map[string]any{
			"exchange":          cfg.Exchange,
			"event_queue":       cfg.EventQueue,
			"dead_letter_queue": cfg.DeadLetterQueue,
		},
	})

	return nil
}
