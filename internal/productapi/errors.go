package productapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound matches an *APIError with status 404.
var ErrNotFound = errors.New("product not found")

// APIError is a non-2xx response of the Product API.
type APIError struct {
	StatusCode int
	// Message is the response body text, or the "error" field of a JSON error body.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("product API responded with status %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newAPIError(status int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error != "":
			text = envelope.Error
		case envelope.Message != "":
			text = envelope.Message
		}
	}
	return &APIError{StatusCode: status, Message: text}
}
