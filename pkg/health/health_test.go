package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	ok := Ping(func(context.Context) error { return nil }, StatusDown)
	cacheDown := Ping(func(context.Context) error { return errors.New("redis unreachable") }, StatusDegraded)
	indexDown := Ping(func(context.Context) error { return errors.New("segment unreadable") }, StatusDown)

	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
		code   int
	}{
		{"all up", map[string]Check{"index": ok}, StatusUp, http.StatusOK},
		{"degraded", map[string]Check{"index": ok, "cache": cacheDown}, StatusDegraded, http.StatusOK},
		{"down", map[string]Check{"index": indexDown, "cache": cacheDown}, StatusDown, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for n, ch := range tt.checks {
				c.Register(n, ch)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %v", report.Components)
			}

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.code {
				t.Errorf("ready code = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}

func TestNamesSorted(t *testing.T) {
	c := NewChecker()
	c.Register("redis", nil)
	c.Register("index", nil)
	names := c.Names()
	if len(names) != 2 || names[0] != "index" || names[1] != "redis" {
		t.Errorf("names = %v", names)
	}
}
