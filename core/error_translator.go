package core

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorsResponse is the structured error body: {status, errors: name -> message}.
type ErrorsResponse struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

const unexpectedErrorMessage = "internal server error"

// TranslateError maps a failure to its HTTP status and body. A nil body means
// the response carries no content (the security-sensitive 403 cases).
func TranslateError(err error) (int, *ErrorsResponse) {
	return translate(classify(unwrapTx(err)))
}

func translate(e *Error) (int, *ErrorsResponse) {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest, errorsBody(http.StatusBadRequest, e.Fields)
	case KindAuthentication:
		return http.StatusBadRequest, singleError(http.StatusBadRequest, "Authentication error", e.Message)
	case KindTokenInvalid, KindTokenExpired, KindServiceKeyInvalid, KindAccessDenied:
		return http.StatusForbidden, nil
	case KindInvalidID:
		return http.StatusBadRequest, singleError(http.StatusBadRequest, "Invalid Id", e.Message)
	case KindNotFound:
		return http.StatusNotFound, singleError(http.StatusNotFound, "Not found in database", e.Message)
	case KindConstraintViolation:
		return http.StatusBadRequest, singleError(http.StatusBadRequest, "Database error", e.Message)
	case KindRateLimited:
		return http.StatusTooManyRequests, singleError(http.StatusTooManyRequests, "Rate limit", e.Message)
	default:
		return http.StatusInternalServerError, singleError(http.StatusInternalServerError, "Unexpected error", unexpectedErrorMessage)
	}
}

// classify finds the most specific Kind for err.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindValidation && len(e.Fields) == 0 {
			return &Error{Kind: KindValidation, Fields: map[string]string{"body": e.Message}}
		}
		return e
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isConstraintViolation(pgErr) {
		return &Error{Kind: KindConstraintViolation, Message: rootCauseMessage(pgErr), Cause: err}
	}
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Message: "record not found", Cause: err}
	}
	return &Error{Kind: KindUnclassified, Cause: err}
}

// isConstraintViolation reports SQLSTATE class 23 (integrity constraint violation).
func isConstraintViolation(pgErr *pgconn.PgError) bool {
	return len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
}

func rootCauseMessage(pgErr *pgconn.PgError) string {
	if pgErr.Detail != "" {
		return fmt.Sprintf("%s. Detail: %s", pgErr.Message, pgErr.Detail)
	}
	return pgErr.Message
}

func errorsBody(status int, fields map[string]string) *ErrorsResponse {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return &ErrorsResponse{Status: status, Errors: out}
}

func singleError(status int, name, message string) *ErrorsResponse {
	return &ErrorsResponse{Status: status, Errors: map[string]string{name: message}}
}

// ErrorMiddleware is the single boundary where recorded handler errors are
// turned into responses.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		respondError(c, c.Errors.Last().Err)
	}
}

// RecoveryMiddleware answers panics as unclassified failures.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		respondError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// respondError writes the translated response and logs the underlying cause.
func respondError(c *gin.Context, err error) {
	e := classify(unwrapTx(err))
	status, body := translate(e)
	if status >= http.StatusInternalServerError {
		log.Printf("[error] request_id=%s %s %s: %v", requestID(c), c.Request.Method, c.Request.URL.Path, err)
	} else {
		log.Printf("[reject] request_id=%s %s %s status=%d kind=%s", requestID(c), c.Request.Method, c.Request.URL.Path, status, e.Kind)
	}
	if body == nil {
		c.Status(status)
		c.Writer.WriteHeaderNow()
		return
	}
	c.JSON(status, body)
}

// unwrapTx strips exactly one transaction layer.
func unwrapTx(err error) error {
	var txErr *TxError
	if errors.As(err, &txErr) && txErr.Err != nil {
		return txErr.Err
	}
	return err
}
