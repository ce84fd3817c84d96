package core

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
)

// Check is one step of a request pipeline. It returns nil to continue or the
// terminal failure for the request.
type Check func(c *gin.Context) error

// Pipeline runs checks in order and stops at the first failure.
func Pipeline(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range checks {
			if err := check(c); err != nil {
				abortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}

// ServiceKeyCheck applies the gate to the paths it guards. It runs before any
// token parsing.
func ServiceKeyCheck(gate *ServiceKeyGate) Check {
	return func(c *gin.Context) error {
		if !gate.Guards(c.Request.URL.Path) {
			return nil
		}
		return gate.Check(c.GetHeader(ServiceKeyHeader))
	}
}

// TokenCheck verifies the bearer token and stores the principal in the
// request context.
func TokenCheck(verifier TokenVerifier) Check {
	return func(c *gin.Context) error {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			return ErrTokenInvalid
		}
		p, err := verifier.Verify(token)
		if err != nil {
			return err
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		return nil
	}
}

// LoginRateLimitCheck throttles login attempts per client IP. Limiter errors
// are logged and the request continues.
func LoginRateLimitCheck(limiter LoginLimiter) Check {
	return func(c *gin.Context) error {
		if limiter == nil {
			return nil
		}
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("[ratelimit] request_id=%s limiter error: %v", requestID(c), err)
			return nil
		}
		if !allowed {
			return &Error{Kind: KindRateLimited, Message: "too many login attempts, retry later"}
		}
		return nil
	}
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by TokenCheck.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
