// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/pkg/errutil"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// errorClass is the HTTP status and client-facing message for an error code.
type errorClass struct {
	status  int
	message string
}

// errorClasses maps service error codes to responses. Unlisted codes are 500.
var errorClasses = map[string]errorClass{
	accounts.CodeValidation:                 {http.StatusBadRequest, ""},
	accounts.CodeDuplicateEmail:             {http.StatusBadRequest, "An account with this email already exists"},
	accounts.CodeDuplicateUsername:          {http.StatusBadRequest, "An account with this username already exists"},
	accounts.CodeInvalidTemporaryCredential: {http.StatusBadRequest, "Temporary password is incorrect"},
	accounts.CodeInvalidCredentials:         {http.StatusUnauthorized, "Invalid credentials"},
	accounts.CodeUnauthenticated:            {http.StatusUnauthorized, "Authentication required"},
	accounts.CodeNotFound:                   {http.StatusNotFound, "User not found"},
	accounts.CodeNotificationFailed:         {http.StatusBadGateway, "The change was saved but the notification could not be delivered"},
}

const internalErrorMessage = "Internal server error"

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// writeError maps err to a status class and writes the error envelope.
// Validation errors expose their own message, which names the offending
// field. Unknown codes are logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := errutil.Code(err)
	class, known := errorClasses[code]
	if !known {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
		writeJSON(w, http.StatusInternalServerError, Envelope{Status: StatusError, Message: internalErrorMessage})
		return
	}

	message := class.message
	if message == "" {
		message = err.Error()
	}
	if class.status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, "request partially failed", err)
	}
	writeJSON(w, class.status, Envelope{Status: StatusError, Message: message})
}

// badRequest answers a malformed request body.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{Status: StatusError, Message: message})
}
