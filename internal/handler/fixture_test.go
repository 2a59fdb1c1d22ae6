package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/seal"
	"github.com/lockbox/lockbox/internal/service"
)

type testEnv struct {
	store   *repository.MemoryStore
	authSvc *service.AuthService
	auth    *AuthHandler
	secrets *SecretHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()

	cipher, err := seal.New(bytes.Repeat([]byte{3}, seal.KeySize))
	if err != nil {
		t.Fatalf("seal.New: %v", err)
	}

	tokens := auth.NewTokenService([]byte("handler-test-signing-key-0123456789abcdef"))
	authSvc := service.NewAuthService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens, 30*time.Minute, nil, logger)
	vault := service.NewVaultService(store, cipher, nil, logger)

	return &testEnv{
		store:   store,
		authSvc: authSvc,
		auth:    NewAuthHandler(authSvc, logger),
		secrets: NewSecretHandler(vault, logger),
	}
}

func (e *testEnv) register(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := e.authSvc.Register(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

// request builds a request authenticated as user with the given chi URL params.
func request(method, target string, body any, user *model.User, params map[string]string) *http.Request {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if user != nil {
		ctx = auth.ContextWithUser(ctx, user)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
