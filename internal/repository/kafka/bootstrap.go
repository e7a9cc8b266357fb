package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const bootstrapWait = 5 * time.Second

// BootstrapConsumer makes a best effort to create the input topic before the
// reader joins its group. A failure is logged; the reader retries on its own.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, partitions int, logger *zap.Logger) *Consumer {
	ensureBestEffort(ctx, cfg.Brokers, cfg.Topic, partitions, logger)
	cfg.Logger = logger
	return NewConsumer(cfg)
}

func BootstrapProducer(ctx context.Context, brokers []string, topic string, partitions int, logger *zap.Logger) *Producer {
	ensureBestEffort(ctx, brokers, topic, partitions, logger)
	return NewProducer(brokers, topic).WithLogger(logger)
}

func ensureBestEffort(ctx context.Context, brokers []string, topic string, partitions int, logger *zap.Logger) {
	if partitions <= 0 {
		partitions = 1
	}
	err := EnsureTopic(ctx, brokers, TopicSpec{
		Name:              topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
		MaxWait:           bootstrapWait,
	}, logger)
	if err != nil {
		logger.Warn("ensure topic", zap.String("topic", topic), zap.Error(err))
	}
}
