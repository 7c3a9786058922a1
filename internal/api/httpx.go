package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sadopc/worklog/internal/record"
)

// Error codes carried in error responses so the client can rebuild the
// matching sentinel.
const (
	codeValidation     = "validation"
	codeNotFound       = "not_found"
	codeSecretMismatch = "secret_mismatch"
	codeNoSecret       = "no_secret"
	codeRateLimited    = "rate_limited"
	codeInternal       = "internal"
)

type errorResp struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type messageResp struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, status int, resp errorResp) {
	resp.RequestID = RequestIDFrom(r.Context())
	writeJSON(w, status, resp)
}

// classify maps a domain error to an HTTP status and response body.
func classify(msg string, err error) (int, errorResp) {
	resp := errorResp{Error: msg, Details: err.Error()}
	var ve *record.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Code = codeValidation
		resp.Field = ve.Field
		resp.Details = ve.Msg
		return http.StatusBadRequest, resp
	case errors.Is(err, record.ErrNotFound):
		resp.Code = codeNotFound
		return http.StatusNotFound, resp
	case errors.Is(err, record.ErrSecretMismatch):
		resp.Code = codeSecretMismatch
		return http.StatusForbidden, resp
	case errors.Is(err, record.ErrNoSecret):
		resp.Code = codeNoSecret
		return http.StatusForbidden, resp
	default:
		resp.Code = codeInternal
		return http.StatusInternalServerError, resp
	}
}
