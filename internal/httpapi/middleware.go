// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/observability"
)

var tracer = otel.Tracer("accountd/httpapi")

// DefaultPublicRoutes are the paths served without a bearer token.
var DefaultPublicRoutes = []string{
	"/api/auth/**",
	"/api/token/**",
}

type contextKey struct{}

var requesterKey contextKey

// RequesterFromContext returns the authenticated requester attached by the
// bearer middleware, or nil on public routes.
func RequesterFromContext(ctx context.Context) *accounts.Requester {
	r, _ := ctx.Value(requesterKey).(*accounts.Requester)
	return r
}

func withRequester(ctx context.Context, r *accounts.Requester) context.Context {
	return context.WithValue(ctx, requesterKey, r)
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// routePattern returns the chi pattern that matched r, so metric and span
// labels do not carry account IDs.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// observe traces, logs and counts every request.
func observe(logger *slog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("http.request.method", r.Method)),
			)
			defer span.End()

			rec := recordStatus(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			elapsed := time.Since(start)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.status),
			)
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}

			if metrics != nil {
				metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
				metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}

			logger.InfoContext(ctx, "request",
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", chimw.GetReqID(ctx),
			)
		})
	}
}

// Authenticator resolves a bearer token to a requester.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*accounts.Requester, error)
}

// publicRoutes matches request paths that skip bearer authentication.
type publicRoutes []glob.Glob

func compilePublicRoutes(patterns []string) (publicRoutes, error) {
	out := make(publicRoutes, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code("HTTP_PUBLIC_ROUTE_INVALID").With("pattern", p).Wrap(err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (p publicRoutes) match(path string) bool {
	for _, g := range p {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireBearer authenticates every request outside the public routes and
// attaches the requester to the request context.
func requireBearer(auth Authenticator, public publicRoutes, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requester, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				writeError(w, r, logger, err)
				return
			}
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("accountd.requester", requester.AccountID.String()))
			next.ServeHTTP(w, r.WithContext(withRequester(r.Context(), requester)))
		})
	}
}
