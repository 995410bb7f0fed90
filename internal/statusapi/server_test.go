package statusapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/internal/engine"
	"gridbot/pkg/types"
)

type fakeProvider struct {
	snapshot engine.Snapshot
}

func (f *fakeProvider) Snapshot() engine.Snapshot { return f.snapshot }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := NewServer(0, &fakeProvider{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body[status] = %q, want ok", body["status"])
	}
}

func TestHandleStatusEncodesSnapshot(t *testing.T) {
	provider := &fakeProvider{snapshot: engine.Snapshot{
		Ticker:      "ETH",
		Venue:       "lighter",
		Direction:   types.Buy,
		Position:    decimal.NewFromFloat(1.5),
		LastUpdated: time.Unix(0, 0).UTC(),
	}}
	s := NewServer(0, provider, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got engine.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Ticker != "ETH" || got.Venue != "lighter" {
		t.Errorf("got snapshot %+v, want ticker=ETH venue=lighter", got)
	}
	if !got.Position.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("got position %s, want 1.5", got.Position)
	}
}
