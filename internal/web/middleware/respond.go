package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/sheetload/internal/core"
)

// writeError writes the API error body for a middleware rejection, using
// the same user message mapping as the handlers.
func writeError(w http.ResponseWriter, status int, technical string) {
	msg := core.MapError(errorString(technical))
	writeErrorCode(w, status, technical, msg.Code)
}

func writeErrorCode(w http.ResponseWriter, status int, technical, code string) {
	msg := core.MapError(errorString(technical))
	if msg.Code == "ERR000" {
		msg.Message = technical
		msg.Action = ""
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": msg.Message,
		"error":   technical,
		"action":  msg.Action,
		"code":    code,
	})
}

type errorString string

func (e errorString) Error() string { return string(e) }
