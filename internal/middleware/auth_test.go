package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lockbox/lockbox/internal/auth"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/service"
)

type stubAuthenticator map[string]error

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*model.User, error) {
	err, ok := s[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &model.User{ID: "user-" + token, Email: token + "@example.com"}, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	authenticator := stubAuthenticator{
		"good":    nil,
		"expired": service.ErrTokenExpired,
		"deleted": service.ErrInvalidCredentials,
		"broken":  service.ErrStorage,
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "user-good"},
		{"lowercase scheme", "bearer good", http.StatusOK, "user-good"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"expired token", "Bearer expired", http.StatusUnauthorized, ""},
		{"deleted user", "Bearer deleted", http.StatusUnauthorized, ""},
	}

	var firstBody string
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var gotUser string
		h := Auth(authenticator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser = auth.UserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
		if gotUser != tt.wantUser {
			t.Errorf("%s: user = %q, want %q", tt.name, gotUser, tt.wantUser)
		}
		if tt.wantStatus != http.StatusUnauthorized {
			continue
		}

		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Errorf("%s: WWW-Authenticate = %q", tt.name, rec.Header().Get("WWW-Authenticate"))
		}
		body := rec.Body.String()
		if firstBody == "" {
			firstBody = body
		} else if body != firstBody {
			t.Errorf("%s: body %q differs from %q", tt.name, body, firstBody)
		}
		if !strings.Contains(buf.String(), "authentication failed") {
			t.Errorf("%s: missing warn log", tt.name)
		}
	}

	if !strings.Contains(firstBody, `"code":"UNAUTHORIZED"`) {
		t.Errorf("body = %s", firstBody)
	}
}

func TestAuth_StorageFailureIsInternalError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	called := false
	h := Auth(stubAuthenticator{"broken": service.ErrStorage}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("next handler ran after a storage failure")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "" {
		t.Errorf("unexpected WWW-Authenticate %q", rec.Header().Get("WWW-Authenticate"))
	}

	want := `{"error":"An internal error occurred","code":"INTERNAL_ERROR"}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
	if strings.Contains(buf.String(), "authentication failed") {
		t.Error("storage failure logged as an authentication rejection")
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("missing error log: %s", buf.String())
	}
}
