package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func engineStatus(state string, serving bool) func() (string, bool) {
	return func() (string, bool) { return state, serving }
}

func TestEngineCheck(t *testing.T) {
	tests := []struct {
		state   string
		serving bool
		want    Status
	}{
		{"ready", true, StatusUp},
		{"empty", true, StatusDegraded},
		{"building", true, StatusDegraded},
		{"building", false, StatusDown},
		{"empty", false, StatusDown},
	}
	for _, tt := range tests {
		got := EngineCheck(engineStatus(tt.state, tt.serving))(context.Background())
		if got.Status != tt.want || got.Message != tt.state {
			t.Errorf("%s/%v: got %+v, want %s", tt.state, tt.serving, got, tt.want)
		}
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingFunc(func(context.Context) error { return nil }))(context.Background())
	if ok.Status != StatusUp {
		t.Errorf("ok ping = %+v", ok)
	}
	bad := PingCheck(pingFunc(func(context.Context) error { return errors.New("refused") }))(context.Background())
	if bad.Status != StatusDegraded || bad.Message != "refused" {
		t.Errorf("failed ping = %+v", bad)
	}
}

func TestRunWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("engine", EngineCheck(engineStatus("ready", true)))
	if r := c.Run(context.Background()); r.Status != StatusUp {
		t.Errorf("status = %s", r.Status)
	}
	c.Register("redis", PingCheck(pingFunc(func(context.Context) error { return errors.New("down") })))
	if r := c.Run(context.Background()); r.Status != StatusDegraded || len(r.Components) != 2 {
		t.Errorf("report = %+v", r)
	}
	c.Register("engine", EngineCheck(engineStatus("building", false)))
	if r := c.Run(context.Background()); r.Status != StatusDown {
		t.Errorf("status = %s", r.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("engine", EngineCheck(engineStatus("empty", true)))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded status code = %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded || report.Components["engine"].Message != "empty" {
		t.Errorf("report = %+v", report)
	}

	c.Register("engine", EngineCheck(engineStatus("building", false)))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("down status code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
}
