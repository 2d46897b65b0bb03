package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// writeDomainError maps domain error kinds onto HTTP status codes. Unknown
// kinds are reported as internal errors without leaking wrapped detail.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrOperationTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, domain.ErrRemoteService), errors.Is(err, domain.ErrStorage):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}
