package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// Response is the JSON envelope of every admin endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, meta map[string]any) {
	writeJSON(w, status, Response{Data: data, Meta: meta})
}

// writeError maps err to a status and code. Server errors are logged; the
// message is hidden from the caller.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "admin request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: msg}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, queue.ErrNotFailed):
		return http.StatusConflict, CodeNotFailed
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidID
	case errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest, CodeInvalidLimit
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, CodeInvalidBody
	case errors.Is(err, notify.ErrUnknownJobType):
		return http.StatusUnprocessableEntity, CodeUnknownType
	case errors.Is(err, notify.ErrInvalidPayload), errors.Is(err, queue.ErrInvalidEnvelope):
		return http.StatusUnprocessableEntity, CodeInvalidPayload
	case errors.Is(err, ErrNotEnabled):
		return http.StatusNotImplemented, CodeNotEnabled
	}
	return http.StatusInternalServerError, CodeInternal
}
