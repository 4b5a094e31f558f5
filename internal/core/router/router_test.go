package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mohammed-shakir/osm-grid-router/internal/astar"
	"github.com/mohammed-shakir/osm-grid-router/internal/core/model"
	"github.com/mohammed-shakir/osm-grid-router/internal/projection"
	"github.com/mohammed-shakir/osm-grid-router/internal/routing"
)

func routeReq(params map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/route", nil)
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	return req
}

func TestParseRouteRequest_Cells(t *testing.T) {
	got, err := ParseRouteRequest(routeReq(map[string]string{"from": "3, 4", "to": "10,12"}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := model.RouteRequest{FromCell: model.Cell{Row: 3, Col: 4}, ToCell: model.Cell{Row: 10, Col: 12}}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestParseRouteRequest_Geo(t *testing.T) {
	got, err := ParseRouteRequest(routeReq(map[string]string{
		"from": "33.5845,-101.875", "to": "33.59,-101.87", "coords": "geo",
	}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !got.Geo || got.FromGeo != (model.GeoPoint{Lat: 33.5845, Lon: -101.875}) {
		t.Fatalf("got %+v", got)
	}
}

func TestParseRouteRequest_Invalid(t *testing.T) {
	cases := []map[string]string{
		{"from": "1,2"},
		{"from": "1,2", "to": "3"},
		{"from": "a,2", "to": "3,4"},
		{"from": "1,2", "to": "3,4", "coords": "utm"},
		{"from": "90,0", "to": "0,0", "coords": "geo"},
		{"from": "0,181", "to": "0,0", "coords": "geo"},
		{"from": "NaN,0", "to": "0,0", "coords": "geo"},
	}
	for i, c := range cases {
		if _, err := ParseRouteRequest(routeReq(c)); err == nil {
			t.Fatalf("case %d %v: expected error", i, c)
		}
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", astar.ErrOutOfBounds), http.StatusBadRequest},
		{astar.ErrBlockedEndpoint, http.StatusBadRequest},
		{fmt.Errorf("from: %w", projection.ErrDomain), http.StatusBadRequest},
		{astar.ErrIterationLimit, http.StatusUnprocessableEntity},
		{routing.ErrNotReady, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusFor(c.err); got != c.want {
			t.Fatalf("StatusFor(%v)=%d want %d", c.err, got, c.want)
		}
	}
}
