// Command outcome-tail prints dispatch outcome events from Kafka, one JSON
// line per event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"ms-groups/internal/config"
	"ms-groups/internal/kafka"
	"ms-groups/internal/logger"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present
	cfg := config.Load()

	group := flag.String("group", "outcome-tail", "consumer group id")
	failedOnly := flag.Bool("failed", false, "only show failed requests")
	list := flag.Bool("list", false, "list topics and exit")
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr)
	log.SetLevel(logger.INFO)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *list {
		topics, err := kafka.ListTopics(ctx, cfg.Kafka.Brokers)
		if err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to list topics: %v", err))
			os.Exit(1)
		}
		fmt.Println(strings.Join(topics, "\n"))
		return
	}

	topics := []string{cfg.Kafka.Topics.DispatchFailed}
	if !*failedOnly {
		topics = append(topics, cfg.Kafka.Topics.DispatchSucceeded)
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics, *group, log)
	defer consumer.Close()

	enc := json.NewEncoder(os.Stdout)
	err := consumer.Start(ctx, func(e kafka.OutcomeEvent) {
		if err := enc.Encode(e); err != nil {
			log.Error("CLI", err.Error())
		}
	})
	if err != nil {
		log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
		os.Exit(1)
	}
}
