package dto

import (
	"time"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/service"
)

// CreateSecretRequest is the body of POST /secrets.
// Username is accepted as an alias of login_name.
type CreateSecretRequest struct {
	Title     string  `json:"title"`
	LoginName string  `json:"login_name"`
	Username  string  `json:"username,omitempty"`
	Password  string  `json:"password"`
	URL       *string `json:"url,omitempty"`
}

// ToInput converts the request to service input.
func (r CreateSecretRequest) ToInput() service.CreateSecretInput {
	login := r.LoginName
	if login == "" {
		login = r.Username
	}
	return service.CreateSecretInput{
		Title:     r.Title,
		LoginName: login,
		Password:  r.Password,
		URL:       r.URL,
	}
}

// UpdateSecretRequest is the body of PATCH /secrets/{id}. Absent and null
// fields are left unchanged.
type UpdateSecretRequest struct {
	Title     *string `json:"title,omitempty"`
	LoginName *string `json:"login_name,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	URL       *string `json:"url,omitempty"`
}

// ToInput converts the request to service input.
func (r UpdateSecretRequest) ToInput() service.UpdateSecretInput {
	login := r.LoginName
	if login == nil {
		login = r.Username
	}
	return service.UpdateSecretInput{
		Title:     r.Title,
		LoginName: login,
		Password:  r.Password,
		URL:       r.URL,
	}
}

// SecretSummary is a list entry. It never carries the password.
type SecretSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	LoginName string    `json:"login_name"`
	URL       *string   `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SecretResponse is a single secret including its decrypted password.
type SecretResponse struct {
	SecretSummary
	Password string `json:"password"`
}

// SecretListResponse is a page of secrets.
type SecretListResponse struct {
	Data       []SecretSummary `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// Pagination describes the returned page.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Count  int `json:"count"`
}

// ToSecretSummary converts a Secret model to SecretSummary.
func ToSecretSummary(s *model.Secret) SecretSummary {
	return SecretSummary{
		ID:        s.ID,
		Title:     s.Title,
		LoginName: s.LoginName,
		URL:       s.URL,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToSecretResponse converts a revealed secret to SecretResponse.
func ToSecretResponse(s *model.RevealedSecret) SecretResponse {
	return SecretResponse{
		SecretSummary: ToSecretSummary(&s.Secret),
		Password:      s.Password,
	}
}

// ToSecretListResponse converts a list result to SecretListResponse.
func ToSecretListResponse(out *service.ListSecretsOutput) SecretListResponse {
	data := make([]SecretSummary, 0, len(out.Secrets))
	for _, s := range out.Secrets {
		data = append(data, ToSecretSummary(s))
	}
	return SecretListResponse{
		Data: data,
		Pagination: Pagination{
			Offset: out.Offset,
			Limit:  out.Limit,
			Count:  len(data),
		},
	}
}
