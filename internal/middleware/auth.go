package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/service"
)

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Auth requires a valid bearer token and stores the resolved user in the
// request context. Every rejection gets the same 401 body so callers cannot
// tell a bad signature from an expired token or a deleted account. A store
// failure while resolving the user is a 500, not a rejection.
func Auth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				rejectAuth(w, r, logger, "missing_token")
				return
			}

			user, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrStorage) {
					logger.ErrorContext(r.Context(), "authentication unavailable",
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("error", err.Error()),
					)
					writeError(w, http.StatusInternalServerError, internalErrorMessage, "INTERNAL_ERROR")
					return
				}

				reason := "invalid_token"
				switch {
				case errors.Is(err, service.ErrTokenExpired):
					reason = "expired_token"
				case errors.Is(err, service.ErrInvalidCredentials):
					reason = "unknown_user"
				}
				rejectAuth(w, r, logger, reason)
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectAuth(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	logger.WarnContext(r.Context(), "authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "Invalid or missing credentials", "UNAUTHORIZED")
}
