package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boltride/internal/generator"
	"boltride/internal/shared/config"
	"boltride/internal/shared/logger"
	"boltride/internal/shared/mq"
)

func main() {
	startCSV := flag.String("trip-start-csv", "", "path to trip_start CSV file")
	endCSV := flag.String("trip-end-csv", "", "path to trip_end CSV file")
	mode := flag.String("mode", "stream", "stream|burst")
	delayMin := flag.Duration("delay-min", 500*time.Millisecond, "minimum delay between batches (stream mode)")
	delayMax := flag.Duration("delay-max", 3*time.Second, "maximum delay between batches (stream mode)")
	batchSize := flag.Int("batch-size", 1, "events per batch (stream mode)")
	burstSize := flag.Int("burst-size", 50, "events per burst (burst mode)")
	burstDelay := flag.Duration("burst-delay", 10*time.Second, "delay between bursts (burst mode)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for event ordering")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger("trip-generator")

	if *startCSV == "" || *endCSV == "" {
		log.Fatal(logger.Entry{
			Action:  "invalid_arguments",
			Message: "-trip-start-csv and -trip-end-csv are required",
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	feed, err := generator.LoadFeed(*startCSV, *endCSV, *seed)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "feed_load_failed",
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

	runner := generator.NewRunner(feed, mqConn, cfg.Processor.Exchange, cfg.Processor.EventQueue, log)

	switch *mode {
	case "stream":
		err = runner.Stream(ctx, *delayMin, *delayMax, *batchSize)
	case "burst":
		err = runner.Burst(ctx, *burstSize, *burstDelay)
	default:
		log.Fatal(logger.Entry{Action: "invalid_mode", Message: *mode})
	}

	if err != nil && ctx.Err() == nil {
		log.Fatal(logger.Entry{
			Action:  "generator_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
}
