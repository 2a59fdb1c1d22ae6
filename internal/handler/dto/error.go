// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// InternalErrorMessage is the only message clients see for unexpected failures.
const InternalErrorMessage = "An internal error occurred"
