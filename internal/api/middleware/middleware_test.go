package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"encore/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(constant.UserIdKey))
	})...)
	return r
}

func do(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAuth(t *testing.T) {
	r := newEngine(HandleAuth())

	w := do(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	w = do(r, map[string]string{constant.HeaderUserId: "user-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestRequireModerator(t *testing.T) {
	r := newEngine(HandleAuth(), RequireModerator())

	w := do(r, map[string]string{constant.HeaderUserId: "user-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	w = do(r, map[string]string{constant.HeaderUserId: "mod-1", constant.HeaderRole: constant.RoleModerator})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_PerUserBuckets(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	limiter := NewRateLimiter(0.001, 2, logger)
	r := newEngine(HandleAuth(), limiter.Handle)

	alice := map[string]string{constant.HeaderUserId: "alice"}
	assert.Equal(t, http.StatusOK, do(r, alice).Code)
	assert.Equal(t, http.StatusOK, do(r, alice).Code)

	w := do(r, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, do(r, map[string]string{constant.HeaderUserId: "bob"}).Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1, logrus.New())
	now := time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.getLimiter("idle")
	now = now.Add(10 * time.Minute)
	limiter.getLimiter("active")

	assert.Equal(t, 1, limiter.Cleanup(5*time.Minute))
	assert.Len(t, limiter.limiters, 1)
}
