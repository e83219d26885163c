// ============================================================================
// BOOTSTRAP (Compose Root)
// ============================================================================
//
// 📦 НАЗНАЧЕНИЕ:
// Точка сборки stream processor-а. Здесь мы:
// 1. Создаем инфраструктуру (PostgreSQL, RabbitMQ, metrics)
// 2. Собираем координатор батчей с его зависимостями
// 3. Связываем consumer с координатором
// 4. Запускаем consumer и metrics endpoint
//
// 💡 ПРИНЦИП: Dependency Injection Container
// Все зависимости создаются в одном месте, затем передаются в конструкторы.
// Это позволяет легко заменить реализацию (например, подменить PostgreSQL
// store на In-Memory для тестов).
//
// 📚 СЛОИ (создаются в таком порядке):
// 1. ИНФРАСТРУКТУРА: PostgreSQL, RabbitMQ, Prometheus
// 2. АДАПТЕРЫ: store, quarantine archive, dead-letter publisher
// 3. USE CASE: координатор батчей
// 4. CONSUMER: чтение событий из очереди
//
// ============================================================================

package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	inamqp "boltride/internal/pipeline/adapter/in/in_amqp"
	"boltride/internal/pipeline/adapter/out/out_amqp"
	"boltride/internal/pipeline/adapter/out/repo"
	"boltride/internal/pipeline/application/usecase"
	"boltride/internal/pipeline/validate"
	"boltride/internal/shared/config"
	db_conn "boltride/internal/shared/db"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/metrics"
	"boltride/internal/shared/mq"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run запускает stream processor со всеми его компонентами.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "stream_processor_starting", Message: "initializing stream processor"})

	// ========================================================================
	// СЛОЙ 1: ИНФРАСТРУКТУРА
	// ========================================================================

	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	if err := db_conn.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, cfg.Processor.Prefetch, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(mqConn, cfg.Processor, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	metrics.Register()

	// ========================================================================
	// СЛОЙ 2: АДАПТЕРЫ ХРАНЕНИЯ И ПУБЛИКАЦИИ
	// ========================================================================

	ttl := time.Duration(cfg.Processor.RecordTTLHours) * time.Hour
	tripStore := repo.NewTripPgStore(dbPool, ttl)
	quarantine := repo.NewQuarantinePgArchive(dbPool)
	deadLetter := out_amqp.NewDeadLetterPublisher(mqConn, cfg.Processor.Exchange, cfg.Processor.DeadLetterQueue, log)

	// ========================================================================
	// СЛОЙ 3: USE CASE
	// ========================================================================

	processor := usecase.NewProcessBatchService(
		tripStore,
		quarantine,
		deadLetter,
		validate.NewRules(),
		cfg.Processor.WorkerPoolSize,
		3, // retry бюджет dead-letter записей
		log,
	)

	// ========================================================================
	// СЛОЙ 4: CONSUMER + METRICS ENDPOINT
	// ========================================================================

	consumer := inamqp.NewTripEventConsumer(
		mqConn,
		processor,
		cfg.Processor.EventQueue,
		cfg.Processor.BatchSize,
		time.Duration(cfg.Processor.BatchLingerMS)*time.Millisecond,
		log,
	)

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error(logger.Entry{
				Action:  "trip_event_consumer_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(logger.Entry{
			Action:  "metrics_server_starting",
			Message: fmt.Sprintf("listening on %s", addr),
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(logger.Entry{
				Action:  "metrics_server_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}()

	<-ctx.Done()
	log.Info(logger.Entry{Action: "stream_processor_stopping", Message: "shutting down stream processor"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(logger.Entry{
			Action:  "metrics_server_shutdown_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	log.Info(logger.Entry{Action: "stream_processor_stopped", Message: "stream processor stopped"})
}
