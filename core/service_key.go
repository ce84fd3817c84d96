package core

import (
	"crypto/subtle"
	"strings"
)

// ServiceKeyHeader carries the shared internal-service secret.
const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyGate rejects callers that do not present the shared service secret.
type ServiceKeyGate struct {
	secret []byte
	paths  []string
}

// NewServiceKeyGate guards the given paths. A path ending in "/*" guards
// everything below it; any other path is matched exactly.
func NewServiceKeyGate(secret string, paths []string) *ServiceKeyGate {
	return &ServiceKeyGate{secret: []byte(secret), paths: paths}
}

// Check succeeds iff headerValue equals the configured secret. An absent
// header arrives as "" and fails like any mismatch.
func (g *ServiceKeyGate) Check(headerValue string) error {
	if headerValue == "" || len(g.secret) == 0 {
		return ErrServiceKeyInvalid
	}
	if subtle.ConstantTimeCompare([]byte(headerValue), g.secret) != 1 {
		return ErrServiceKeyInvalid
	}
	return nil
}

// Guards reports whether requests to path must pass Check.
func (g *ServiceKeyGate) Guards(path string) bool {
	for _, p := range g.paths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p || path == p+"/" {
			return true
		}
	}
	return false
}
