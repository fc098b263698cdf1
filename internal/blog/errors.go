package blog

import "fmt"

// Error codes carried by APIError.
const (
	CodeInvalidValue   = "value:invalid"
	CodeNotFound       = "value:notfound"
	CodeForbidden      = "permission:forbidden"
	CodeRegisterFailed = "register:failed"
	CodeSigninFailed   = "signin:failed"
)

// APIError is a client-facing failure: a machine-readable code, the
// argument it concerns (if any) and a message.
type APIError struct {
	Code    string `json:"error"`
	Field   string `json:"data,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

func invalidValue(field, msg string) *APIError {
	return &APIError{Code: CodeInvalidValue, Field: field, Message: msg}
}

func notFound(field, msg string) *APIError {
	return &APIError{Code: CodeNotFound, Field: field, Message: msg}
}

func forbidden(msg string) *APIError {
	return &APIError{Code: CodeForbidden, Message: msg}
}
