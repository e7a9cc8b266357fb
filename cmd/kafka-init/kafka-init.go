package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/NordCoder/Smsgate/internal/repository/kafka"
	"go.uber.org/zap"
)

func main() {
	brokers := strings.Split(env("KAFKA_BROKER", "kafka:9092"), ",")
	topics := strings.Split(env("KAFKA_TOPICS", "sms.events,sms.sent"), ",")
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	l = l.With(zap.String("component", "kafka-init"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	specs := make([]kafkax.TopicSpec, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		specs = append(specs, kafkax.TopicSpec{
			Name:              t,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			MaxWait:           30 * time.Second,
			Strict:            true,
		})
	}

	if err := kafkax.EnsureTopics(ctx, brokers, specs, l); err != nil {
		l.Fatal("ensure topics", zap.Error(err))
	}
	l.Info("kafka-init ok", zap.Int("topics", len(specs)))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
