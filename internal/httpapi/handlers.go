// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/observability"
	"github.com/accountd/accountd/pkg/errutil"
)

// maxBodyBytes caps request bodies; every API payload is a small JSON object.
const maxBodyBytes = 64 << 10

// AuthAPI is the authentication surface the handlers call.
type AuthAPI interface {
	Authenticator
	SignIn(ctx context.Context, identifier, password string) (*accounts.SignInResult, error)
	Refresh(ctx context.Context, refreshToken string) (*accounts.SignInResult, error)
}

// AccountAPI creates accounts.
type AccountAPI interface {
	CreateAccount(ctx context.Context, requester *accounts.Requester, req accounts.CreateAccountRequest) (*accounts.Profile, error)
}

// CredentialAPI drives the password lifecycle.
type CredentialAPI interface {
	ResetPassword(ctx context.Context, requester *accounts.Requester, accountID string) error
	CompleteFirstLogin(ctx context.Context, accountID, temporaryPassword, newPassword string) error
}

// AdminAPI lists and locks accounts.
type AdminAPI interface {
	ListAccounts(ctx context.Context, requester *accounts.Requester) ([]accounts.Profile, error)
	LockAccount(ctx context.Context, requester *accounts.Requester, accountID string) error
}

type handlers struct {
	auth        AuthAPI
	accounts    AccountAPI
	credentials CredentialAPI
	admin       AdminAPI
	metrics     *observability.Metrics
	logger      *slog.Logger
}

type signInRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

// signInData extends the profile with the issued tokens.
type signInData struct {
	UserID     string   `json:"userId"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Group      []string `json:"group"`
	Token      string   `json:"token"`
	Refresh    string   `json:"refresh"`
	ExpiresIn  int64    `json:"expiresIn"`
	FirstLogin bool     `json:"firstLogin"`
}

func newSignInData(res *accounts.SignInResult) signInData {
	return signInData{
		UserID:     res.Profile.ID,
		FirstName:  res.Profile.FirstName,
		LastName:   res.Profile.LastName,
		Email:      res.Profile.Email,
		Role:       res.Profile.Role,
		Group:      res.Profile.Groups,
		Token:      res.AccessToken,
		Refresh:    res.RefreshToken,
		ExpiresIn:  int64(res.ExpiresIn.Seconds()),
		FirstLogin: res.FirstLogin,
	}
}

type setNewPasswordRequest struct {
	UserID            string `json:"userId"`
	TemporaryPassword string `json:"temporaryPassword"`
	NewPassword       string `json:"newPassword"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenPairRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairData struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// decode reads a JSON body into dst. On failure it writes a 400 and
// returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "Request body must be a JSON object")
		return false
	}
	return true
}

func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.authenticate(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", newSignInData(res))
}

// obtainTokenPair exchanges credentials for a bare access/refresh pair.
func (h *handlers) obtainTokenPair(w http.ResponseWriter, r *http.Request) {
	var req tokenPairRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Token obtained", tokenPairData{Access: res.AccessToken, Refresh: res.RefreshToken})
}

// authenticate signs in and records the outcome in accountd_sign_in_total.
func (h *handlers) authenticate(ctx context.Context, identifier, password string) (*accounts.SignInResult, error) {
	res, err := h.auth.SignIn(ctx, identifier, password)
	if err != nil {
		outcome := observability.SignInError
		if errutil.HasCode(err, accounts.CodeInvalidCredentials) || errutil.HasCode(err, accounts.CodeValidation) {
			outcome = observability.SignInRejected
		}
		h.metrics.RecordSignIn(outcome)
		return nil, err //nolint:wrapcheck // service errors carry their own codes
	}
	h.metrics.RecordSignIn(observability.SignInSuccess)
	return res, nil
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Token refreshed", newSignInData(res))
}

func (h *handlers) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accounts.CreateAccountRequest
	if !decode(w, r, &req) {
		return
	}

	profile, err := h.accounts.CreateAccount(r.Context(), RequesterFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User created successfully", profile)
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.admin.ListAccounts(r.Context(), RequesterFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", profiles)
}

func (h *handlers) lockAccount(w http.ResponseWriter, r *http.Request) {
	err := h.admin.LockAccount(r.Context(), RequesterFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User account locked", nil)
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	err := h.credentials.ResetPassword(r.Context(), RequesterFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset and sent to user email", nil)
}

func (h *handlers) setNewPassword(w http.ResponseWriter, r *http.Request) {
	var req setNewPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.credentials.CompleteFirstLogin(r.Context(), req.UserID, req.TemporaryPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password updated successfully", nil)
}
