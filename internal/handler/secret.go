package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/handler/dto"
	"github.com/lockbox/lockbox/internal/service"
)

// SecretHandler handles HTTP requests for the caller's secrets.
type SecretHandler struct {
	svc    *service.VaultService
	logger *slog.Logger
}

// NewSecretHandler creates a new SecretHandler.
func NewSecretHandler(svc *service.VaultService, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /secrets.
func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user := auth.MustUserFromContext(r.Context())
	secret, err := h.svc.Create(r.Context(), user, req.ToInput())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "secret_created",
		slog.String("secret_id", secret.ID),
		slog.String("user_id", user.ID),
	)

	writeJSON(w, http.StatusCreated, dto.ToSecretResponse(secret))
}

// List handles GET /secrets?offset=&limit=&search=. The legacy "skip"
// parameter is accepted in place of offset.
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offsetParam := query.Get("offset")
	if offsetParam == "" {
		offsetParam = query.Get("skip")
	}
	offset, ok := parseQueryInt(offsetParam, 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "offset must be an integer")
		return
	}
	limit, ok := parseQueryInt(query.Get("limit"), service.DefaultListLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "limit must be an integer")
		return
	}

	out, err := h.svc.List(r.Context(), auth.MustUserFromContext(r.Context()), service.ListSecretsInput{
		Offset: offset,
		Limit:  limit,
		Search: query.Get("search"),
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSecretListResponse(out))
}

// Get handles GET /secrets/{id}.
func (h *SecretHandler) Get(w http.ResponseWriter, r *http.Request) {
	secret, err := h.svc.Get(r.Context(), auth.MustUserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSecretResponse(secret))
}

// Update handles PATCH /secrets/{id}.
func (h *SecretHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user := auth.MustUserFromContext(r.Context())
	secret, err := h.svc.Update(r.Context(), user, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "secret_updated",
		slog.String("secret_id", secret.ID),
		slog.String("user_id", user.ID),
		slog.Bool("password_changed", req.Password != nil),
	)

	writeJSON(w, http.StatusOK, dto.ToSecretResponse(secret))
}

// Delete handles DELETE /secrets/{id}.
func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), user, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "secret_deleted",
		slog.String("secret_id", id),
		slog.String("user_id", user.ID),
	)

	w.WriteHeader(http.StatusNoContent)
}

// parseQueryInt parses an optional integer parameter. Range clamping is
// left to the service.
func parseQueryInt(s string, fallback int) (int, bool) {
	if s == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
