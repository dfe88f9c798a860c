package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var testCfg = &config.Config{App: config.AppConfig{Env: "test"}}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testCfg)(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env := rec.Header().Get("X-ProfileMedia-Env"); env != "test" {
		t.Fatalf("unexpected env header %q", env)
	}
}

func TestHealthReadyReportsChecks(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	HealthReady(testCfg, map[string]Pinger{"db": ok, "redis": ok}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Status != "ready" {
		t.Fatalf("unexpected status %q", body.Data.Status)
	}
	if len(body.Data.Checks) != 2 || body.Data.Checks["db"] != "ok" || body.Data.Checks["redis"] != "ok" {
		t.Fatalf("unexpected checks %v", body.Data.Checks)
	}
}

func TestHealthReadyFailsOnDependency(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	rec := httptest.NewRecorder()
	HealthReady(testCfg, map[string]Pinger{"redis": down}, nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
