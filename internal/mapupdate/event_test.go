package mapupdate

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
)

func sampleWays() []model.Way {
	return []model.Way{{
		ID:   "10",
		Tags: model.NewTags(model.TagHighway, "name"),
		Nodes: []model.Node{
			{ID: "1", Position: model.GeoPoint{Lat: 33.58, Lon: -101.87}},
			{ID: "2", Position: model.GeoPoint{Lat: 33.59, Lon: -101.86}},
		},
	}}
}

func TestEvent_WireRoundTrip(t *testing.T) {
	ev := NewEvent(OpAppend, "osm", 3, sampleWays())
	if err := ev.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"tags":["highway","name"]`) {
		t.Fatalf("tags must be sorted on the wire: %s", b)
	}
	var back Event
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ways := back.ToModel()
	if len(ways) != 1 || !ways[0].IsHighway() || ways[0].IsBuilding() {
		t.Fatalf("ways=%+v", ways)
	}
	if ways[0].Nodes[1].Position != (model.GeoPoint{Lat: 33.59, Lon: -101.86}) {
		t.Fatalf("node position lost: %+v", ways[0].Nodes[1])
	}
}

func TestEvent_Validate(t *testing.T) {
	ok := NewEvent(OpReplace, "osm", 1, nil)
	cases := map[string]func(*Event){
		"schema": func(e *Event) { e.Schema = 2 },
		"op":     func(e *Event) { e.Op = "delete" },
		"source": func(e *Event) { e.Source = " " },
		"seq":    func(e *Event) { e.Seq = 0 },
		"ts":     func(e *Event) { e.TS = time.Time{} },
		"coords": func(e *Event) {
			e.Ways = []WireWay{{ID: "1", Nodes: []WireNode{{ID: "n", Lat: 91}}}}
		},
	}
	for name, mutate := range cases {
		ev := ok
		mutate(&ev)
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDedupe_FreshAndRecord(t *testing.T) {
	d := NewDedupe(8)
	if !d.Fresh("a", 1) {
		t.Fatalf("first seq must be fresh")
	}
	d.Record("a", 5)
	if d.Fresh("a", 5) || d.Fresh("a", 4) {
		t.Fatalf("seq <= last applied must not be fresh")
	}
	if !d.Fresh("a", 6) || !d.Fresh("b", 1) {
		t.Fatalf("newer seq or other source must be fresh")
	}
	d.Record("a", 2)
	if d.Fresh("a", 5) {
		t.Fatalf("recording an older seq must not rewind")
	}
}
