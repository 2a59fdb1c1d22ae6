package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lockbox/lockbox/internal/handler/dto"
	"github.com/lockbox/lockbox/internal/middleware"
	"github.com/lockbox/lockbox/internal/service"
)

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service errors to HTTP responses. Causes behind
// storage and unknown errors are logged and never sent to the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	case errors.Is(err, service.ErrDuplicateAccount):
		writeError(w, http.StatusBadRequest, "DUPLICATE_ACCOUNT", "Unable to create account with the provided details")
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect email or password")
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing credentials")
	case errors.Is(err, service.ErrSecretNotFound):
		writeError(w, http.StatusNotFound, "SECRET_NOT_FOUND", "Secret not found")
	case errors.Is(err, service.ErrNoFieldsProvided):
		writeError(w, http.StatusBadRequest, "NO_FIELDS_PROVIDED", "No fields provided for update")
	case errors.Is(err, service.ErrIntegrity):
		logger.ErrorContext(r.Context(), "integrity_error",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "INTEGRITY_ERROR", "Stored secret could not be decrypted")
	default:
		logger.ErrorContext(r.Context(), "internal_error",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", dto.InternalErrorMessage)
	}
}
