package domain

import (
	"encoding/json"
	"net/http"
)

// ErrorKind classifies a normalized backend error.
type ErrorKind string

const (
	// KindCredential covers rejected login/register attempts; the caller keeps
	// the form interactive and shows the message.
	KindCredential ErrorKind = "credential"
	// KindAuthorization covers access rejections for an authenticated user.
	KindAuthorization ErrorKind = "authorization"
	// KindValidation covers malformed or incomplete request payloads.
	KindValidation ErrorKind = "validation"
	// KindUnavailable covers transport failures and backend 5xx responses.
	KindUnavailable ErrorKind = "unavailable"
)

// APIError is the single tagged error value produced from the backend's
// loosely shaped error bodies.
type APIError struct {
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return e.Message
}

// NormalizeErrorBody builds an APIError from a backend error response.
// The message is chosen by probing the body in a fixed priority order:
// "detail", then "message", then the field-specific "email" error, then the
// supplied fallback.
func NormalizeErrorBody(status int, body []byte, fallback string) *APIError {
	var payload struct {
		Detail  string          `json:"detail"`
		Message string          `json:"message"`
		Email   json.RawMessage `json:"email"`
	}
	_ = json.Unmarshal(body, &payload)

	message := fallback
	switch {
	case payload.Detail != "":
		message = payload.Detail
	case payload.Message != "":
		message = payload.Message
	default:
		if fieldMsg := firstString(payload.Email); fieldMsg != "" {
			message = fieldMsg
		}
	}

	return &APIError{
		Kind:    kindForStatus(status),
		Message: message,
		Status:  status,
	}
}

// firstString extracts a message from a field error that may be either a bare
// string or a list of strings.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500 || status == 0:
		return KindUnavailable
	default:
		return KindCredential
	}
}
