// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

type stubChecker struct {
	name   string
	result CheckResult
}

func (c stubChecker) Name() string                        { return c.name }
func (c stubChecker) Check(_ context.Context) CheckResult { return c.result }

func TestHealthAlwaysAlive(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(stubChecker{name: "down", result: CheckResult{Status: StatusUnhealthy}})

	resp := m.Health(context.Background(), false)
	if resp.Status != StatusHealthy {
		t.Errorf("non-verbose health status = %q, want healthy", resp.Status)
	}

	resp = m.Health(context.Background(), true)
	if resp.Status != StatusUnhealthy {
		t.Errorf("verbose health status = %q, want unhealthy", resp.Status)
	}
}

func TestReadyAggregation(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		wantReady  bool
		wantStatus Status
	}{
		{
			name:       "no checkers is ready",
			wantReady:  true,
			wantStatus: StatusHealthy,
		},
		{
			name: "all healthy",
			checkers: []Checker{
				stubChecker{name: "a", result: CheckResult{Status: StatusHealthy}},
				stubChecker{name: "b", result: CheckResult{Status: StatusHealthy}},
			},
			wantReady:  true,
			wantStatus: StatusHealthy,
		},
		{
			name: "degraded stays ready",
			checkers: []Checker{
				stubChecker{name: "a", result: CheckResult{Status: StatusDegraded}},
			},
			wantReady:  true,
			wantStatus: StatusDegraded,
		},
		{
			name: "one unhealthy flips ready",
			checkers: []Checker{
				stubChecker{name: "a", result: CheckResult{Status: StatusHealthy}},
				stubChecker{name: "b", result: CheckResult{Status: StatusUnhealthy}},
			},
			wantReady:  false,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}

			resp := m.Ready(context.Background())
			if resp.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", resp.Ready, tt.wantReady)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestServeReadyStatusCodes(t *testing.T) {
	m := NewManager("test")
	m.RegisterChecker(stubChecker{name: "srv", result: CheckResult{Status: StatusUnhealthy, Error: "down"}})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != 503 {
		t.Errorf("ServeReady status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Errorf("ServeHealth status = %d, want 200", rec.Code)
	}
}

func TestLastCycleChecker(t *testing.T) {
	interval := time.Second

	tests := []struct {
		name string
		last time.Time
		want Status
	}{
		{"never ran", time.Time{}, StatusDegraded},
		{"fresh", time.Now(), StatusHealthy},
		{"stalled", time.Now().Add(-10 * time.Second), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLastCycleChecker("test", interval, func() time.Time { return tt.last })
			if got := c.Check(context.Background()); got.Status != tt.want {
				t.Errorf("Check() status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}
