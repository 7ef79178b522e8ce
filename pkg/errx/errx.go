package errx

import (
	"fmt"
	"net/http"
)

// Type classifies an error for transport mapping and logging
type Type string

const (
	TypeValidation    Type = "VALIDATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeBusiness      Type = "BUSINESS"
	TypeExternal      Type = "EXTERNAL"
	TypeInternal      Type = "INTERNAL"
)

// Error is the application error carried across layers.
// Handlers map it to an HTTP response; services attach details as they wrap.
type Error struct {
	Code       string         `json:"code"`
	Type       Type           `json:"type"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"status"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCode overrides the error code
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// New creates an error of the given type with a default HTTP status
func New(message string, errType Type) *Error {
	return &Error{
		Code:       string(errType),
		Type:       errType,
		Message:    message,
		HTTPStatus: defaultStatus(errType),
	}
}

// Wrap wraps an underlying error with a message and type
func Wrap(err error, message string, errType Type) *Error {
	return &Error{
		Code:       string(errType),
		Type:       errType,
		Message:    message,
		HTTPStatus: defaultStatus(errType),
		Err:        err,
	}
}

func defaultStatus(errType Type) int {
	switch errType {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeAuthorization:
		return http.StatusForbidden
	case TypeBusiness:
		return http.StatusUnprocessableEntity
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code identifies a registered error definition
type Code struct {
	code       string
	errType    Type
	httpStatus int
	message    string
}

// Registry namespaces error codes per domain ("CHAT", "USER", ...)
type Registry struct {
	prefix string
}

// NewRegistry creates a registry with the given domain prefix
func NewRegistry(prefix string) *Registry {
	return &Registry{prefix: prefix}
}

// Register declares an error code under the registry's prefix
func (r *Registry) Register(code string, errType Type, httpStatus int, message string) Code {
	return Code{
		code:       r.prefix + "_" + code,
		errType:    errType,
		httpStatus: httpStatus,
		message:    message,
	}
}

// New instantiates a fresh *Error from a registered code
func (r *Registry) New(c Code) *Error {
	return &Error{
		Code:       c.code,
		Type:       c.errType,
		Message:    c.message,
		HTTPStatus: c.httpStatus,
	}
}

// NewWithError instantiates a registered error wrapping an underlying cause
func (r *Registry) NewWithError(c Code, err error) *Error {
	e := r.New(c)
	e.Err = err
	return e
}

// IsCode reports whether err is an *Error created from the given code
func IsCode(err error, c Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == c.code
}
