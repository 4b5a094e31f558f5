// Command mapupdate-publish sends the highways of an OSM XML file to running
// routers as a map update event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/config"
	"github.com/mohammed-shakir/osm-grid-router/internal/mapupdate"
	"github.com/mohammed-shakir/osm-grid-router/internal/osmxml"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mapupdate-publish:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	file := flag.String("file", cfg.MapFile, "OSM XML file to publish")
	op := flag.String("op", mapupdate.OpReplace, "replace|append")
	source := flag.String("source", "", "event source (defaults to the file name)")
	seq := flag.Uint64("seq", uint64(time.Now().Unix()), "sequence number, increasing per source")
	flag.Parse()

	if *source == "" {
		*source = *file
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ex, err := osmxml.Decode(ctx, f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", *file, err)
	}

	ev := mapupdate.NewEvent(strings.ToLower(*op), *source, *seq, ex.Highways())
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("event: %w", err)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pcfg := sarama.NewConfig()
	pcfg.Producer.Return.Successes = true
	pcfg.Producer.RequiredAcks = sarama.WaitForAll
	pcfg.Producer.MaxMessageBytes = 16 << 20
	pcfg.Version = sarama.V3_6_0_0
	prod, err := sarama.NewSyncProducer(cfg.MapUpdates.BrokerList(), pcfg)
	if err != nil {
		return fmt.Errorf("producer create: %w", err)
	}
	defer func() { _ = prod.Close() }()

	part, off, err := prod.SendMessage(&sarama.ProducerMessage{
		Topic: cfg.MapUpdates.Topic,
		Key:   sarama.StringEncoder(ev.Source),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Printf("published %s seq=%d ways=%d to %s[%d]@%d\n",
		ev.Op, ev.Seq, len(ev.Ways), cfg.MapUpdates.Topic, part, off)
	return nil
}
