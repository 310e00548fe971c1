// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil, quietLogger)
	s.Metrics().RecordSignIn(SignInSuccess)
	s.Metrics().RecordNotification("account_created", NotificationSent)
	s.Metrics().HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/signin", "200").Inc()

	code, body := get(t, s.Handler(), "/metrics")

	assert.Equal(t, http.StatusOK, code)
	for _, want := range []string{
		"go_goroutines",
		"process_",
		`accountd_sign_in_total{outcome="success"} 1`,
		`accountd_notifications_total{kind="account_created",status="sent"} 1`,
		`accountd_http_requests_total{method="POST",route="/api/auth/signin",status="200"} 1`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestServer_Liveness(t *testing.T) {
	code, body := get(t, NewServer("", nil, quietLogger).Handler(), "/healthz/liveness")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		checker  ReadinessChecker
		wantCode int
		wantBody string
	}{
		{"nil checker", nil, http.StatusOK, "ok"},
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"database down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable, "not ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, NewServer("", tt.checker, quietLogger).Handler(), "/healthz/readiness")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
		})
	}
}

func TestServer_ReadinessCheckHasDeadline(t *testing.T) {
	var hadDeadline bool
	s := NewServer("", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}, quietLogger)

	get(t, s.Handler(), "/healthz/readiness")
	assert.True(t, hadDeadline)
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil, quietLogger)
	assert.Empty(t, s.Addr())

	errCh, err := s.Start()
	require.NoError(t, err)
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/healthz/liveness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = s.Start()
	require.Error(t, err, "second Start must fail")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "Stop is idempotent")

	select {
	case serveErr, open := <-errCh:
		assert.False(t, open, "channel closes without error on shutdown: %v", serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after Stop")
	}
}

func TestServer_StartFailsOnBadAddr(t *testing.T) {
	s := NewServer("256.0.0.1:bad", nil, quietLogger)
	_, err := s.Start()
	require.Error(t, err)

	// A failed Start leaves the server restartable.
	s.addr = "127.0.0.1:0"
	_, err = s.Start()
	require.NoError(t, err)
	require.NoError(t, s.Stop(context.Background()))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSignIn(SignInRejected)
		m.RecordNotification("password_reset", NotificationFailed)
	})
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordSignIn(SignInRejected)
	m.RecordSignIn(SignInRejected)

	assert.InDelta(t, 2, testutil.ToFloat64(m.SignInTotal.WithLabelValues(SignInRejected)), 0)
	assert.Panics(t, func() { NewMetrics(reg) }, "double registration panics")
}
