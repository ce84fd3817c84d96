package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHealthChecker_Collect(t *testing.T) {
	mr, client := newMiniredisClient(t)

	h := NewHealthChecker(time.Now().Add(-time.Minute))
	h.Add("redis", PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }))
	h.Add("postgres", PingFunc(func(context.Context) error { return nil }))

	st, failed := h.Collect(context.Background())
	assert.Equal(t, statusOK, st.Status)
	assert.Equal(t, map[string]string{"redis": "up", "postgres": "up"}, st.Dependencies)
	assert.Empty(t, failed)
	assert.GreaterOrEqual(t, st.UptimeSeconds, int64(59))

	mr.Close()
	st, failed = h.Collect(context.Background())
	assert.Equal(t, statusDegraded, st.Status)
	assert.Equal(t, "down", st.Dependencies["redis"])
	assert.Equal(t, "up", st.Dependencies["postgres"])
	assert.Contains(t, failed, "redis")
}

func TestHealthChecker_Nil(t *testing.T) {
	var h *HealthChecker
	st, failed := h.Collect(context.Background())
	assert.Equal(t, SystemStatus{Status: statusOK}, st)
	assert.Nil(t, failed)
}

func TestHealthzEndpoint(t *testing.T) {
	h := NewHealthChecker(time.Now())
	h.Add("postgres", PingFunc(func(context.Context) error { return errors.New("connection refused") }))
	router := NewRouter(testConfig(), newMemUserRepository(), NewBcryptHasher(bcrypt.MinCost), nil, h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var st SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, statusDegraded, st.Status)
	assert.Equal(t, map[string]string{"postgres": "down"}, st.Dependencies)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
