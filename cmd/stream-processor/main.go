package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"boltride/internal/pipeline/bootstrap"
	"boltride/internal/shared/config"
	"boltride/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger("stream-processor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	bootstrap.Run(ctx, cfg, log)
}
