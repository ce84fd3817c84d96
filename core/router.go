package core

import (
	"log"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report JSON field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// NewRouter constructs the Gin engine with routes wired. limiter and health may be nil.
func NewRouter(cfg Config, users UserRepository, hasher PasswordHasher, limiter LoginLimiter, health *HealthChecker) *gin.Engine {
	useJSONFieldNames()

	key := SigningKey(cfg.JWTSecret)
	issuer := NewJWTIssuer(key, nil)
	verifier := NewJWTVerifier(key, nil)
	authenticator := NewCredentialAuthenticator(users, hasher)
	gate := NewServiceKeyGate(cfg.ServiceKey, cfg.ServiceKeyPaths)
	userService := NewUserService(users, hasher)

	r := gin.New()
	// Global middleware: request id -> access log -> recovery -> error boundary -> origin/CORS
	r.Use(RequestIDMiddleware(), gin.Logger(), RecoveryMiddleware(), ErrorMiddleware(), OriginMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		st, failed := health.Collect(c.Request.Context())
		for name, err := range failed {
			log.Printf("[health] request_id=%s %s down: %v", requestID(c), name, err)
		}
		status := http.StatusOK
		if st.Status != statusOK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, st)
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", func(c *gin.Context) {
			var req RegisterUserRequest
			if err := bindJSON(c, &req); err != nil {
				abortWithError(c, err)
				return
			}
			saved, err := userService.Register(c.Request.Context(), req)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusCreated, saved)
		})

		auth.POST("/login", Pipeline(LoginRateLimitCheck(limiter)), func(c *gin.Context) {
			var req LoginRequest
			if err := bindJSON(c, &req); err != nil {
				abortWithError(c, err)
				return
			}
			p, err := authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				abortWithError(c, err)
				return
			}
			token, err := issuer.Issue(p)
			if err != nil {
				abortWithError(c, err)
				return
			}
			log.Printf("login ok user_id=%d request_id=%s", p.ID, requestID(c))
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}

	// Service key first, then token: untrusted callers never reach token parsing.
	userGroup := r.Group("/user", Pipeline(ServiceKeyCheck(gate), TokenCheck(verifier)))
	{
		userGroup.GET("", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			items, total, err := userService.List(c.Request.Context(), page, perPage)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.Header("X-Total-Count", strconv.Itoa(total))
			c.JSON(http.StatusOK, items)
		})

		userGroup.GET("/:id", func(c *gin.Context) {
			id, err := pathID(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			p, err := principal(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			dto, err := userService.FindByID(c.Request.Context(), p, id)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, dto)
		})

		userGroup.PUT("/:id", func(c *gin.Context) {
			var req UpdateUserRequest
			if err := bindJSON(c, &req); err != nil {
				abortWithError(c, err)
				return
			}
			id, err := pathID(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			p, err := principal(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			if err := userService.Update(c.Request.Context(), p, id, req); err != nil {
				abortWithError(c, err)
				return
			}
			c.Header("Location", resourceURL(c))
			c.Status(http.StatusNoContent)
		})

		userGroup.DELETE("/:id", func(c *gin.Context) {
			id, err := pathID(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			p, err := principal(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			if err := userService.Delete(c.Request.Context(), p, id); err != nil {
				abortWithError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}

	return r
}

// resourceURL is the absolute URI of the current request.
func resourceURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path}
	return u.String()
}
