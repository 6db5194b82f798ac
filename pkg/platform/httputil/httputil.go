// Package httputil holds the JSON envelope helpers shared by all HTTP
// handlers: response writing, error translation, and request decoding.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "didregistry/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes body as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure detail never leaks to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			body["error_description"] = domainErr.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; the handler
// should return immediately.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
