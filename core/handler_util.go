package core

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// abortWithError records err for ErrorMiddleware and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON decodes and validates the request body into dst.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return ValidationFailed(err)
	}
	return nil
}

// pathID parses the :id path parameter; non-positive ids are InvalidId.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, InvalidIDError("Path variable id must be a number")
	}
	if id <= 0 {
		return 0, InvalidIDError("Id must be greater than 0")
	}
	return id, nil
}

// principal returns the caller identity set by TokenCheck.
func principal(c *gin.Context) (Principal, error) {
	p, ok := PrincipalFromContext(c.Request.Context())
	if !ok {
		return Principal{}, ErrTokenInvalid
	}
	return p, nil
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	fields := map[string]string{}
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			fields["page"] = "must be an integer greater than 0"
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			fields["per_page"] = "must be an integer greater than 0"
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	if len(fields) > 0 {
		return 0, 0, &Error{Kind: KindValidation, Message: "invalid pagination", Fields: fields, Cause: errors.New("invalid pagination")}
	}
	return page, perPage, nil
}
