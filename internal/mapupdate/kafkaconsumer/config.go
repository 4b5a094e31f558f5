package kafkaconsumer

import (
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
}

// FromConfig fills in the sarama group timeouts around the service settings.
// Replaying from the oldest offset lets a fresh router catch up on every
// append since its base map.
func FromConfig(c config.MapUpdatesCfg) Config {
	return Config{
		Brokers:             c.BrokerList(),
		Topic:               c.Topic,
		GroupID:             c.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: true,
		DedupeSize:          1024,
	}
}
