package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gridbase/internal/domain"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to HTTP status codes. Anything unmapped is a
// 500 with a generic message; the real error only goes to the log.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		notFound   *domain.NotFoundError
		denied     *domain.AccessDeniedError
		validation *domain.ValidationError
		conflict   *domain.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: 400, Message: validation.Message})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Code: 404, Message: notFound.Message})
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, errorBody{Code: 403, Message: denied.Message})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Code: 409, Message: conflict.Message})
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: 500, Message: "internal server error"})
	}
}
