package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const maxErrorBody = 512

// ConfigurationError is returned by New when the client cannot be configured,
// most often because the base URL is malformed.
type ConfigurationError struct {
	URL string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid client configuration for %q: %v", e.URL, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// APIError is returned by every operation on a non-2xx response, a network
// failure, or a body that does not match the expected shape.
// StatusCode is 0 when no response was received.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: API error: status %d: %s: %v", e.Operation, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: API error: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// problemDetails mirrors the RFC 7807 body the Web API returns on failure.
type problemDetails struct {
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail"`
	Errors map[string][]string `json:"errors"`
}

func newStatusError(operation string, statusCode int, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    errorMessage(statusCode, body),
		Body:       text,
	}
}

func errorMessage(statusCode int, body []byte) string {
	var pd problemDetails
	if err := json.Unmarshal(body, &pd); err != nil || (pd.Title == "" && pd.Detail == "") {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) <= maxErrorBody {
			return fmt.Sprintf("%s: %s", http.StatusText(statusCode), text)
		}
		return http.StatusText(statusCode)
	}

	parts := make([]string, 0, 2)
	if pd.Title != "" {
		parts = append(parts, pd.Title)
	}
	if pd.Detail != "" {
		parts = append(parts, pd.Detail)
	}
	msg := strings.Join(parts, ": ")

	if len(pd.Errors) > 0 {
		keys := make([]string, 0, len(pd.Errors))
		for k := range pd.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg += fmt.Sprintf(" [%s: %s]", k, strings.Join(pd.Errors[k], "; "))
		}
	}
	return msg
}
