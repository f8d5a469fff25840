package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/mpsm/bsprof/internal/errors"
	"github.com/mpsm/bsprof/internal/metrics"
	"github.com/mpsm/bsprof/internal/profile"
)

func TestServer_handleMetrics(t *testing.T) {
	t.Parallel()
	p := metrics.NewPrometheus()
	p.SampleTaken(profile.Sample{CPUUsage: 12})
	s := New("127.0.0.1:0", p)

	tests := []struct {
		method   string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, http.StatusOK, "bsprof_samples_total 1"},
		{http.MethodPost, http.StatusMethodNotAllowed, "method not allowed"},
		{http.MethodPut, http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/metrics", http.NoBody)
			rec := httptest.NewRecorder()
			s.handleMetrics(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body should contain %q, got:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServer_StartServeShutdown(t *testing.T) {
	t.Parallel()
	p := metrics.NewPrometheus()
	s := New("127.0.0.1:0", p)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	base := "http://" + s.Addr()
	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "bsprof_samples_total",
	} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), want) {
			t.Errorf("GET %s = %d %q, want 200 containing %q", path, resp.StatusCode, body, want)
		}
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if _, err := http.Get(base + "/healthz"); err == nil {
		t.Error("server still accepting requests after Shutdown")
	}
}

func TestServer_StartBindError(t *testing.T) {
	t.Parallel()
	first := New("127.0.0.1:0", metrics.NewPrometheus())
	if err := first.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Shutdown(context.Background())

	second := New(first.Addr(), metrics.NewPrometheus())
	err := second.Start()
	if err == nil {
		second.Shutdown(context.Background())
		t.Fatal("expected bind error")
	}
	if apperrors.ExitCodeFor(err) != apperrors.ExitErrorConfig {
		t.Errorf("bind error should be a config error, got %v", err)
	}
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	t.Parallel()
	if err := New(":0", metrics.NewPrometheus()).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown = %v, want nil", err)
	}
}
