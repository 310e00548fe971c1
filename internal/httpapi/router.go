// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

// Package httpapi exposes the account services as a JSON API under /api.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/accountd/accountd/internal/observability"
)

// Deps are the collaborators of the API router.
type Deps struct {
	Auth        AuthAPI
	Accounts    AccountAPI
	Credentials CredentialAPI
	Admin       AdminAPI

	// PublicRoutes are glob patterns ('/' separated) served without a bearer
	// token. Nil means DefaultPublicRoutes.
	PublicRoutes []string

	// Metrics may be nil.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(deps Deps) (http.Handler, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Errorf("auth service is required")
	case deps.Accounts == nil:
		return nil, oops.Errorf("account service is required")
	case deps.Credentials == nil:
		return nil, oops.Errorf("credential service is required")
	case deps.Admin == nil:
		return nil, oops.Errorf("admin service is required")
	case deps.Logger == nil:
		return nil, oops.Errorf("logger is required")
	}

	patterns := deps.PublicRoutes
	if patterns == nil {
		patterns = DefaultPublicRoutes
	}
	public, err := compilePublicRoutes(patterns)
	if err != nil {
		return nil, err
	}

	h := &handlers{
		auth:        deps.Auth,
		accounts:    deps.Accounts,
		credentials: deps.Credentials,
		admin:       deps.Admin,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(observe(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Envelope{Status: StatusError, Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Envelope{Status: StatusError, Message: "Method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireBearer(deps.Auth, public, deps.Logger))

		r.Post("/auth/signin", h.signIn)
		r.Patch("/auth/set-new-password", h.setNewPassword)
		r.Post("/token/", h.obtainTokenPair)
		r.Post("/token/refresh", h.refresh)

		r.Post("/createAccount", h.createAccount)
		r.Get("/users", h.listAccounts)
		r.Patch("/users/{id}/lock", h.lockAccount)
		r.Patch("/users/{id}/reset-password", h.resetPassword)
	})

	return r, nil
}
