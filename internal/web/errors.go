package web

// errors.go maps pipeline errors to HTTP statuses and JSON bodies.
//
// Every error is logged with its technical detail and request id. The
// client receives the mapped user message, the suggested action, a support
// code and the raw error text.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/sheetload/internal/core"
	"github.com/JonMunkholm/sheetload/internal/logging"
	"github.com/JonMunkholm/sheetload/internal/session"
	"github.com/JonMunkholm/sheetload/internal/sheet"
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
	errBadBody      = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the response status for a pipeline error.
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrExpired),
		errors.Is(err, core.ErrMissingSessionID),
		errors.Is(err, core.ErrEmptyBatch),
		errors.Is(err, core.ErrEmptySheet),
		errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.Is(err, errNoFile),
		errors.Is(err, errBadBody),
		core.IsStage(err, core.StageDecode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its JSON rendition with the status
// chosen by statusFor.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}

	writeJSONStatus(w, status, ErrorResponse{
		Message: msg.Message,
		Error:   err.Error(),
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
