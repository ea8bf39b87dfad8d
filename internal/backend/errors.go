package backend

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is the single error shape returned by every backend call.
// Status 0 means the request never got an HTTP response.
type APIError struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Body    map[string]any `json:"body,omitempty"`

	cause error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "backend unreachable: " + e.Message
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func newNetworkError(err error) *APIError {
	msg := "network error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &APIError{Status: 0, Message: msg, cause: err}
}

func newStatusError(status int, body map[string]any) *APIError {
	msg := bodyString(body, "message")
	if msg == "" {
		msg = bodyString(body, "error")
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{Status: status, Message: msg, Body: body}
}

func bodyString(body map[string]any, key string) string {
	if body == nil {
		return ""
	}
	v, ok := body[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or -1 when err is not an APIError
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return -1
}

func IsStatus(err error, status int) bool {
	return StatusOf(err) == status
}

func IsNetwork(err error) bool {
	return StatusOf(err) == 0
}

// ServerMessage returns the message the backend put in its error body, if any
func ServerMessage(err error) string {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return ""
	}
	if msg := bodyString(apiErr.Body, "message"); msg != "" {
		return msg
	}
	return bodyString(apiErr.Body, "error")
}

const (
	msgBadRequest   = "The submitted data is not valid. Please check it and try again."
	msgUnauthorized = "You are not authorized to perform this action. Please sign in again."
	msgForbidden    = "You do not have permission to perform this action."
	msgNotFound     = "The requested resource was not found."
	msgValidation   = "The provided data is not valid. Please check it and try again."
	msgUserExists   = "The user already exists. Please check the e-mail address."
	msgEmailInvalid = "The e-mail address is not valid or is already in use."
	msgPassword     = "The password does not meet the security requirements."
	msgServer       = "A server error occurred. Please try again later."
	msgUnavailable  = "The service is unavailable right now. Please try again later."
	msgUnexpected   = "An unexpected error occurred. Please try again."
)

// FriendlyMessage turns an error into text that can be shown to a user
func FriendlyMessage(err error) string {
	if err == nil {
		return ""
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		if msg := err.Error(); msg != "" {
			return msg
		}
		return msgUnexpected
	}

	fromBody := bodyString(apiErr.Body, "error")
	if fromBody == "" {
		fromBody = bodyString(apiErr.Body, "message")
	}
	orDefault := func(def string) string {
		if fromBody != "" {
			return fromBody
		}
		return def
	}

	switch apiErr.Status {
	case 400:
		return orDefault(msgBadRequest)
	case 401:
		return orDefault(msgUnauthorized)
	case 403:
		return orDefault(msgForbidden)
	case 404:
		return orDefault(msgNotFound)
	case 422:
		text := strings.ToLower(bodyString(apiErr.Body, "error"))
		switch {
		case strings.Contains(text, "user") && (strings.Contains(text, "exist") || strings.Contains(text, "already")):
			return msgUserExists
		case strings.Contains(text, "email"):
			return msgEmailInvalid
		case strings.Contains(text, "password"):
			return msgPassword
		}
		return orDefault(msgValidation)
	case 500:
		return orDefault(msgServer)
	case 503:
		return orDefault(msgUnavailable)
	}

	if fromBody != "" {
		return fromBody
	}
	if apiErr.Message != "" && apiErr.Message != fmt.Sprintf("HTTP %d", apiErr.Status) {
		return apiErr.Message
	}
	return fmt.Sprintf("An error occurred (%d). Please try again.", apiErr.Status)
}
