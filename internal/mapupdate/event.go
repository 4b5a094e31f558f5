// Package mapupdate carries map changes from a producer to running routers.
package mapupdate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

const SchemaVersion = 1

const (
	OpReplace = "replace"
	OpAppend  = "append"
)

// Event is the JSON payload published on the map update topic. Seq orders
// events from the same Source.
type Event struct {
	Schema int       `json:"schema"`
	Seq    uint64    `json:"seq"`
	Op     string    `json:"op"`
	Source string    `json:"source"`
	TS     time.Time `json:"ts"`
	Ways   []WireWay `json:"ways"`
}

type WireWay struct {
	ID    string     `json:"id"`
	Tags  []string   `json:"tags"`
	Nodes []WireNode `json:"nodes"`
}

type WireNode struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (e Event) Validate() error {
	if e.Schema != SchemaVersion {
		return fmt.Errorf("schema must be %d", SchemaVersion)
	}
	switch e.Op {
	case OpReplace, OpAppend:
	default:
		return errors.New("op must be replace|append")
	}
	if strings.TrimSpace(e.Source) == "" {
		return errors.New("source is required")
	}
	if e.Seq == 0 {
		return errors.New("seq must be > 0")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	for i, w := range e.Ways {
		for _, n := range w.Nodes {
			if !(n.Lat > -90 && n.Lat < 90) || !(n.Lon >= -180 && n.Lon <= 180) {
				return fmt.Errorf("ways[%d] node %s: coordinate out of range", i, n.ID)
			}
		}
	}
	return nil
}

// ToModel converts wire ways into domain ways.
func (e Event) ToModel() []model.Way {
	out := make([]model.Way, 0, len(e.Ways))
	for _, w := range e.Ways {
		nodes := make([]model.Node, len(w.Nodes))
		for i, n := range w.Nodes {
			nodes[i] = model.Node{ID: n.ID, Position: model.GeoPoint{Lat: n.Lat, Lon: n.Lon}}
		}
		out = append(out, model.Way{ID: w.ID, Tags: model.NewTags(w.Tags...), Nodes: nodes})
	}
	return out
}

// NewEvent wraps ways for publication.
func NewEvent(op, source string, seq uint64, ways []model.Way) Event {
	ev := Event{
		Schema: SchemaVersion,
		Seq:    seq,
		Op:     op,
		Source: source,
		TS:     time.Now().UTC(),
		Ways:   make([]WireWay, 0, len(ways)),
	}
	for _, w := range ways {
		tags := make([]string, 0, len(w.Tags))
		for k := range w.Tags {
			tags = append(tags, k)
		}
		sort.Strings(tags)
		nodes := make([]WireNode, len(w.Nodes))
		for i, n := range w.Nodes {
			nodes[i] = WireNode{ID: n.ID, Lat: n.Position.Lat, Lon: n.Position.Lon}
		}
		ev.Ways = append(ev.Ways, WireWay{ID: w.ID, Tags: tags, Nodes: nodes})
	}
	return ev
}
