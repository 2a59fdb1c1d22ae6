package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lockbox/lockbox/internal/handler/dto"
)

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["name"] != "lockbox" || response["version"] != Version {
		t.Errorf("unexpected response: %v", response)
	}
}

func TestHandler_ErrorResponses(t *testing.T) {
	h := New()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		code    string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "NOT_FOUND"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}

			var response dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, response.Code)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"email":"a@b.c"}`, false},
		{"trailing whitespace", "{\"email\":\"a@b.c\"}\n", false},
		{"unknown fields ignored", `{"email":"a@b.c","extra":1}`, false},
		{"empty", ``, true},
		{"malformed", `{"email":`, true},
		{"two values", `{}{}`, true},
		{"wrong type", `{"email":42}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst dto.RegisterRequest
			err := decodeJSON(req, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeJSON(%q) error = %v, wantErr %v", tt.body, err, tt.wantErr)
			}
		})
	}
}
