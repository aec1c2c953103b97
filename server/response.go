package server

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

// respondError maps err onto its kind's status code. Internal errors are logged and
// reported with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	if kind == apperrors.KindRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	writeJSON(w, kind.HTTPStatus(), envelope{
		Success: false,
		Error:   apperrors.PublicMessage(err),
		Errors:  apperrors.FieldErrors(err),
	})
}

// decodeJSON reads a JSON request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return apperrors.Validation("Invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}
