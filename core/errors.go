package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a failure. ErrorTranslator maps every Kind to a stable
// HTTP status and body.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindAuthentication      Kind = "AUTHENTICATION_ERROR"
	KindTokenInvalid        Kind = "TOKEN_INVALID"
	KindTokenExpired        Kind = "TOKEN_EXPIRED"
	KindServiceKeyInvalid   Kind = "SERVICE_KEY_INVALID"
	KindAccessDenied        Kind = "ACCESS_DENIED"
	KindInvalidID           Kind = "INVALID_ID"
	KindNotFound            Kind = "NOT_FOUND"
	KindConstraintViolation Kind = "STORAGE_CONSTRAINT_VIOLATION"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUnclassified        Kind = "UNCLASSIFIED"
)

// Error is the tagged failure value returned by the auth core and the user service.
type Error struct {
	Kind    Kind
	Message string            // safe to show to the caller
	Fields  map[string]string // field -> message, validation only
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrTokenInvalid      = &Error{Kind: KindTokenInvalid}
	ErrTokenExpired      = &Error{Kind: KindTokenExpired}
	ErrServiceKeyInvalid = &Error{Kind: KindServiceKeyInvalid}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidID         = &Error{Kind: KindInvalidID}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
)

// ErrRecordNotFound is returned by UserRepository lookups that match no row.
var ErrRecordNotFound = errors.New("record not found")

func AuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func InvalidIDError(message string) *Error {
	return &Error{Kind: KindInvalidID, Message: message}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func tokenInvalid(cause error) *Error {
	return &Error{Kind: KindTokenInvalid, Message: "invalid token", Cause: cause}
}

// TxError marks a failure raised while running a storage transaction.
// The translator classifies the wrapped error, one level down.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// ValidationFailed converts a request binding failure into a ValidationError
// carrying one message per offending field.
func ValidationFailed(err error) *Error {
	var (
		ve        validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	fields := map[string]string{}
	switch {
	case errors.As(err, &ve):
		for _, fe := range ve {
			fields[fieldName(fe)] = fieldMessage(fe)
		}
	case errors.As(err, &typeErr):
		name := typeErr.Field
		if name == "" {
			name = "body"
		}
		fields[name] = fmt.Sprintf("must be of type %s", typeErr.Type)
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		fields["body"] = "malformed JSON"
	default:
		fields["body"] = "invalid request body"
	}
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields, Cause: err}
}

func fieldName(fe validator.FieldError) string {
	// Namespace is "RegisterUserRequest.email"; drop the struct name.
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be blank"
	case "email":
		return "must be a well-formed email address"
	case "min":
		return "size must be at least " + fe.Param()
	case "max":
		return "size must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
