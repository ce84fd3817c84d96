package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	constraint := duplicateEmail("a@x.com")

	tests := []struct {
		name   string
		err    error
		status int
		errors map[string]string // nil: empty body
	}{
		{
			name:   "validation",
			err:    &Error{Kind: KindValidation, Fields: map[string]string{"email": "must be a well-formed email address"}},
			status: http.StatusBadRequest,
			errors: map[string]string{"email": "must be a well-formed email address"},
		},
		{
			name:   "authentication",
			err:    AuthenticationError("bad credentials"),
			status: http.StatusBadRequest,
			errors: map[string]string{"Authentication error": "bad credentials"},
		},
		{name: "token invalid", err: tokenInvalid(errors.New("sig")), status: http.StatusForbidden},
		{name: "token expired", err: ErrTokenExpired, status: http.StatusForbidden},
		{name: "service key", err: ErrServiceKeyInvalid, status: http.StatusForbidden},
		{name: "access denied", err: fmt.Errorf("delete: %w", ErrAccessDenied), status: http.StatusForbidden},
		{
			name:   "invalid id",
			err:    InvalidIDError("Id must be greater than 0"),
			status: http.StatusBadRequest,
			errors: map[string]string{"Invalid Id": "Id must be greater than 0"},
		},
		{
			name:   "not found",
			err:    NotFoundError("User with id %d not found", 9),
			status: http.StatusNotFound,
			errors: map[string]string{"Not found in database": "User with id 9 not found"},
		},
		{
			name:   "constraint violation",
			err:    fmt.Errorf("create user: %w", constraint),
			status: http.StatusBadRequest,
			errors: map[string]string{"Database error": `duplicate key value violates unique constraint "users_email_key". Detail: Key (email)=(a@x.com) already exists.`},
		},
		{
			name:   "constraint violation inside transaction",
			err:    &TxError{Op: "update", Err: constraint},
			status: http.StatusBadRequest,
			errors: map[string]string{"Database error": `duplicate key value violates unique constraint "users_email_key". Detail: Key (email)=(a@x.com) already exists.`},
		},
		{
			name:   "missing row inside transaction",
			err:    &TxError{Op: "update", Err: ErrRecordNotFound},
			status: http.StatusNotFound,
			errors: map[string]string{"Not found in database": "record not found"},
		},
		{
			name:   "pgx no rows",
			err:    pgx.ErrNoRows,
			status: http.StatusNotFound,
			errors: map[string]string{"Not found in database": "record not found"},
		},
		{
			name:   "non-constraint pg error",
			err:    &pgconn.PgError{Code: "42P01", Message: `relation "users" does not exist`},
			status: http.StatusInternalServerError,
			errors: map[string]string{"Unexpected error": unexpectedErrorMessage},
		},
		{
			name:   "unclassified hides internals",
			err:    errors.New("dial tcp 10.0.0.5:5432: secret=hunter2"),
			status: http.StatusInternalServerError,
			errors: map[string]string{"Unexpected error": unexpectedErrorMessage},
		},
		{
			name:   "rate limited",
			err:    &Error{Kind: KindRateLimited, Message: "slow down"},
			status: http.StatusTooManyRequests,
			errors: map[string]string{"Rate limit": "slow down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := TranslateError(tt.err)
			assert.Equal(t, tt.status, status)
			if tt.errors == nil {
				assert.Nil(t, body)
				return
			}
			require.NotNil(t, body)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.errors, body.Errors)
		})
	}
}

func TestValidationFailed(t *testing.T) {
	useJSONFieldNames()

	err := binding.Validator.ValidateStruct(&RegisterUserRequest{Username: "ab", Password: "short", Email: "nope"})
	require.Error(t, err)

	e := ValidationFailed(err)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, map[string]string{
		"username": "size must be at least 3",
		"password": "size must be at least 8",
		"email":    "must be a well-formed email address",
	}, e.Fields)

	e = ValidationFailed(errors.New("EOF"))
	assert.Equal(t, map[string]string{"body": "invalid request body"}, e.Fields)
}
