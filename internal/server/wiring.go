package server

import (
	"context"
	"fmt"
	"log"

	"inventory/internal/cache"
	"inventory/internal/config"
	"inventory/internal/events"
	"inventory/internal/metrics"
)

const kafkaMonitorGroup = "inventory-low-stock"

// OpenCache returns the Redis product cache when REDIS_ADDR is set. An
// unreachable Redis is logged and the service runs uncached.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.ProductCache, func() error) {
	if cfg.RedisAddr == "" {
		return cache.Noop{}, func() error { return nil }
	}
	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Printf("Redis unavailable, product cache disabled: %v", err)
		return cache.Noop{}, func() error { return nil }
	}
	log.Printf("Product cache enabled on %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL)
	c := cache.NewRedis(rdb, cfg.CacheTTL, func(op string, err error) {
		log.Printf("Product cache %s failed: %v", op, err)
	})
	return c, rdb.Close
}

// OpenEvents builds the publisher for cfg.EventsBackend and attaches the
// low-stock monitor to the same stream. Consumers stop when ctx is done.
func OpenEvents(ctx context.Context, cfg *config.Config, monitor *events.LowStockMonitor, m *metrics.Metrics) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsNone:
		return events.Local{Handle: monitor.Handle}, nil
	case config.EventsRabbitMQ:
		pub, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			return nil, err
		}
		if err := pub.Subscribe(ctx, monitor.Handle); err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("failed to start low-stock consumer: %w", err)
		}
		return pub, nil
	case config.EventsKafka:
		go func() {
			if err := events.ConsumeKafka(ctx, cfg.KafkaBrokers, kafkaMonitorGroup, cfg.KafkaTopic, monitor.Handle); err != nil {
				log.Printf("Kafka low-stock consumer stopped: %v", err)
				if m != nil {
					m.EventsFailed.Inc()
				}
			}
		}()
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return nil, fmt.Errorf("unknown EVENTS_BACKEND %q", cfg.EventsBackend)
	}
}
