package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"notekeeper/apperr"
	"notekeeper/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError reports err with the status of its kind. Internal failures are
// logged; their detail never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}
	writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

// decodeJSON reads a single JSON value from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large: %w", apperr.ErrInvalidInput)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty: %w", apperr.ErrInvalidInput)
		default:
			return fmt.Errorf("malformed JSON body: %w", apperr.ErrInvalidInput)
		}
	}
	return nil
}
