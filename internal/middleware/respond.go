package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/lockbox/lockbox/internal/handler/dto"
)

const internalErrorMessage = dto.InternalErrorMessage

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message, Code: code})
}
