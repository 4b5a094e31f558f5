// Package kafkaconsumer applies map update events from Kafka to the routing
// engine.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	obs "github.com/mohammed-shakir/osm-grid-router/internal/core/observability"
	mylog "github.com/mohammed-shakir/osm-grid-router/internal/logger"
	"github.com/mohammed-shakir/osm-grid-router/internal/mapupdate"
	"github.com/mohammed-shakir/osm-grid-router/internal/routing"
)

// Applier publishes a new grid; *routing.Engine implements it.
type Applier interface {
	Build(ctx context.Context, ways []model.Way, source string) (*routing.Snapshot, error)
	Append(ctx context.Context, ways []model.Way, source string) (*routing.Snapshot, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	zlog   *zerolog.Logger
	apply  Applier
	dedupe *mapupdate.Dedupe
}

func New(cfg Config, logger *slog.Logger, zl *zerolog.Logger, apply Applier) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		zlog:   mylog.FromContext(base, zl),
		apply:  apply,
		dedupe: mapupdate.NewDedupe(cfg.DedupeSize),
	}
}

// Start joins the consumer group and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.apply == nil {
		return errors.New("kafkaconsumer: missing applier")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("map update consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("map update consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// ProcessOne applies a single message. Undecodable, invalid and stale events
// are logged and skipped; only apply failures are returned, so the offset is
// not marked and the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	zl := mylog.FromContext(ctx, c.zlog)

	var ev mapupdate.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncMapUpdate("unknown", "decode_error")
		zl.Error().Err(err).
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("dropping map update")
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncMapUpdate(ev.Op, "invalid")
		zl.Error().Err(err).
			Str("kind", "validate").
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("dropping map update")
		return nil
	}
	if !c.dedupe.Fresh(ev.Source, ev.Seq) {
		obs.IncMapUpdate(ev.Op, "stale")
		c.logger.Debug("stale map update skipped", "source", ev.Source, "seq", ev.Seq)
		return nil
	}

	ways := ev.ToModel()
	var (
		snap *routing.Snapshot
		err  error
	)
	switch ev.Op {
	case mapupdate.OpReplace:
		snap, err = c.apply.Build(ctx, ways, ev.Source)
	default:
		snap, err = c.apply.Append(ctx, ways, ev.Source)
	}
	if err != nil {
		obs.IncMapUpdate(ev.Op, "error")
		zl.Error().Err(err).
			Str("kind", "apply").
			Str("op", ev.Op).
			Str("source", ev.Source).
			Uint64("seq", ev.Seq).
			Msg("map update failed")
		return fmt.Errorf("apply %s: %w", ev.Op, err)
	}
	c.dedupe.Record(ev.Source, ev.Seq)
	obs.IncMapUpdate(ev.Op, "applied")

	zl.Info().
		Str("event", "map_update").
		Str("op", ev.Op).
		Str("source", ev.Source).
		Uint64("seq", ev.Seq).
		Int("ways", len(ways)).
		Str("grid_version", fmt.Sprintf("%x", snap.Version)).
		Dur("took", time.Since(start)).
		Msg("map update applied")
	return nil
}
