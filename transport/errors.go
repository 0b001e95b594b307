package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/closepilot/integrations/core"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders the service error envelope. Errors coming out of the
// core service already carry an HTTP status and text code; anything else is
// treated as internal.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := core.ServiceErrorInternal
	message := "An unexpected error occurred"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = richErr.Code
		}
		if trimmed := strings.TrimSpace(richErr.TextCode); trimmed != "" {
			code = trimmed
		}
		if trimmed := strings.TrimSpace(richErr.Message); trimmed != "" {
			message = trimmed
		}
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
