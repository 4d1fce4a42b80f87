// Package response provides HTTP response helpers for consistent API responses.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/ctxutil"
)

// UnknownRequestID is used when a request ID cannot be extracted from context.
const UnknownRequestID = "unknown"

// ErrorBody is the wire shape of every error response the gateway produces.
type ErrorBody struct {
	Message     string            `json:"message"`
	Code        string            `json:"code"`
	RequestID   string            `json:"request_id"`
	Timestamp   float64           `json:"timestamp"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Details     map[string]any    `json:"details,omitempty"`
}

// ErrorEnvelope is the top-level JSON body of an error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("response: failed to encode JSON", "error", err)
	}
}

// WriteSuccess writes a 200 OK JSON body as-is (no envelope wrapping; the
// gateway's own endpoints return small, self-describing bodies).
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteError converts err into the unified error response shape (spec §4.2)
// and writes it. request_id comes from r's context (set by the request-ID
// middleware); falls back to UnknownRequestID if absent. production
// suppresses the Cause of an unexpected fault from Details.
func WriteError(w http.ResponseWriter, r *http.Request, err error, production bool) {
	apiErr := toAPIError(err, production)

	requestID := ctxutil.RequestIDFromContext(r.Context())
	if requestID == "" {
		requestID = UnknownRequestID
	}

	if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if apiErr.Code == apierror.CodeRateLimited {
		w.Header().Set("Retry-After", "3600")
	}

	WriteJSON(w, apiErr.Status, ErrorEnvelope{
		Error: ErrorBody{
			Message:     apiErr.Message,
			Code:        apiErr.Code,
			RequestID:   requestID,
			Timestamp:   float64(time.Now().UnixNano()) / 1e9,
			FieldErrors: apiErr.FieldErrors,
			Details:     apiErr.Details,
		},
	})
}

// toAPIError normalizes any error into *apierror.Error. Errors that are not
// already one of the closed variants become an unexpected fault; its Cause
// is stripped from the response (but not from logs) outside non-production.
func toAPIError(err error, production bool) *apierror.Error {
	apiErr, ok := apierror.As(err)
	if !ok {
		apiErr = apierror.NewUnexpected(err)
	}
	if apiErr.Kind == apierror.KindUnexpected && (production || apiErr.Cause == nil) {
		clone := *apiErr
		clone.Details = nil
		return &clone
	}
	if apiErr.Kind == apierror.KindUnexpected {
		clone := *apiErr
		clone.Details = map[string]any{"cause": apiErr.Cause.Error()}
		return &clone
	}
	return apiErr
}
