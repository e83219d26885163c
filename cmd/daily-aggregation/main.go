package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"boltride/internal/aggregate"
	"boltride/internal/shared/config"
	db_conn "boltride/internal/shared/db"
	"boltride/internal/shared/logger"
)

func main() {
	date := flag.String("date", "", "target date YYYY-MM-DD (default: yesterday)")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger("daily-aggregation")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

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

	service := aggregate.NewService(aggregate.NewPgRepository(dbPool), log)

	if _, err := service.Run(ctx, *date); err != nil {
		log.Fatal(logger.Entry{
			Action:  "aggregation_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}
