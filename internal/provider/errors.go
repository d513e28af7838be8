package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorType classifies a vendor failure.
type ErrorType string

const (
	ErrorTypeAPIError  ErrorType = "api_error"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeAuth      ErrorType = "auth_error"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeServer    ErrorType = "server_error"
	ErrorTypeTimeout   ErrorType = "timeout"
)

// APIError is the typed failure for a non-2xx vendor response.
type APIError struct {
	Provider   ID
	StatusCode int
	Type       ErrorType
	Message    string
	Retryable  bool
	Original   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Original
}

// newAPIError builds an APIError from a raw HTTP response body. The vendor
// message is used when it can be parsed, otherwise the HTTP status.
func newAPIError(p ID, status int, body []byte) *APIError {
	msg := vendorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return classify(p, status, msg, nil)
}

// classify assigns type and retryability from the status code.
func classify(p ID, status int, msg string, original error) *APIError {
	e := &APIError{Provider: p, StatusCode: status, Message: msg, Original: original}
	switch {
	case status == http.StatusTooManyRequests:
		e.Type, e.Retryable = ErrorTypeRateLimit, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Type = ErrorTypeAuth
	case status == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
	case status >= 500:
		e.Type, e.Retryable = ErrorTypeServer, true
	default:
		e.Type = ErrorTypeAPIError
	}
	return e
}

// vendorMessage extracts the error message from the JSON error shapes used
// by the supported vendors:
//
//	{"error":{"message":"..."}}            OpenAI, Anthropic, Google, OpenRouter
//	{"error":"..."}                        some OpenAI-compatible vendors
//	{"message":"..."}                      Mistral
func vendorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &flat) == nil {
		if flat.Error != "" {
			return flat.Error
		}
		return flat.Message
	}
	return ""
}

// fromOpenAI converts go-openai errors into APIError.
func fromOpenAI(p ID, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", apiErr.HTTPStatusCode)
		}
		return classify(p, apiErr.HTTPStatusCode, msg, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify(p, reqErr.HTTPStatusCode, fmt.Sprintf("HTTP %d", reqErr.HTTPStatusCode), err)
	}
	return err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// IsTransient reports whether err carries a 429 or 5xx signature.
func IsTransient(err error) bool {
	status := StatusCode(err)
	return status == http.StatusTooManyRequests || status >= 500
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// UserFriendlyError wraps errors with helpful user-facing messages
type UserFriendlyError struct {
	Title      string
	Message    string
	Suggestion string
	Original   error
}

func (e *UserFriendlyError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Title)
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Suggestion != "" {
		sb.WriteString("\n\nSuggestion: ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

func (e *UserFriendlyError) Unwrap() error {
	return e.Original
}

// MakeUserFriendly converts a failed call into a message for the chat UI.
func MakeUserFriendly(err error, p ID) error {
	if err == nil {
		return nil
	}
	var uf *UserFriendlyError
	if errors.As(err, &uf) {
		return err
	}
	if IsTimeout(err) {
		return &UserFriendlyError{
			Title:      "Request Timeout",
			Message:    fmt.Sprintf("%s did not answer in time.", p),
			Suggestion: "Wait a moment and try again.",
			Original:   err,
		}
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &UserFriendlyError{
			Title:    "API Error",
			Message:  fmt.Sprintf("The %s API returned an error: %v", p, err),
			Original: err,
		}
	}
	switch apiErr.Type {
	case ErrorTypeAuth:
		return &UserFriendlyError{
			Title:      "Authentication Failed",
			Message:    apiErr.Message,
			Suggestion: fmt.Sprintf("Check the %s API key and its permissions.", p),
			Original:   err,
		}
	case ErrorTypeRateLimit:
		return &UserFriendlyError{
			Title:      "Rate Limit Exceeded",
			Message:    apiErr.Message,
			Suggestion: "Wait a few moments or check the plan quota at the provider's dashboard.",
			Original:   err,
		}
	case ErrorTypeNotFound:
		return &UserFriendlyError{
			Title:      "Model or Endpoint Not Found",
			Message:    apiErr.Message,
			Suggestion: "Verify the model is available for this key, or refresh the model list.",
			Original:   err,
		}
	default:
		return &UserFriendlyError{
			Title:    "API Error",
			Message:  apiErr.Message,
			Original: err,
		}
	}
}
