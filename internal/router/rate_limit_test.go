package router

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(`{"email":" Test@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "test@example.com|1.2.3.4" {
		t.Fatalf("key want test@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Test@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareBlocksOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, mock := redismock.NewClientMock()
	rule := RateLimitRule{Prefix: "cl:rate:purchase", WindowSeconds: 60, MaxRequests: 2, BlockSeconds: 300, Message: "too many purchase attempts"}
	key := "cl:rate:purchase:1.2.3.4"
	keys := []string{key, key + ":blocked"}

	mock.ExpectEvalSha(rateLimitScript.Hash(), keys, 60, 300, 2).SetVal([]interface{}{int64(1), int64(60)})
	mock.ExpectEvalSha(rateLimitScript.Hash(), keys, 60, 300, 2).SetVal([]interface{}{int64(3), int64(300)})
	mock.ExpectEvalSha(rateLimitScript.Hash(), keys, 60, 300, 2).SetVal([]interface{}{int64(-1), int64(298)})

	r := gin.New()
	r.POST("/purchase", RateLimitMiddleware(client, rule, KeyByIP), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	send := func() string {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/purchase", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		r.ServeHTTP(w, req)
		return w.Body.String()
	}

	if body := send(); !strings.Contains(body, `"status_code":0`) {
		t.Fatalf("first request should pass, got %s", body)
	}
	if body := send(); !strings.Contains(body, `"status_code":429`) || !strings.Contains(body, "retry after 300 seconds") {
		t.Fatalf("request over limit should be blocked, got %s", body)
	}
	if body := send(); !strings.Contains(body, "retry after 298 seconds") {
		t.Fatalf("blocked key should report remaining ttl, got %s", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations not met: %v", err)
	}
}

func TestRateLimitMiddlewareRedisError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, mock := redismock.NewClientMock()
	rule := RateLimitRule{WindowSeconds: 60, MaxRequests: 5}
	mock.ExpectEvalSha(rateLimitScript.Hash(), []string{"1.2.3.4", "1.2.3.4:blocked"}, 60, 0, 5).SetErr(errors.New("connection refused"))

	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(client, rule, KeyByIP), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	r.ServeHTTP(w, req)

	if strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("handler must not run when limiter fails")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := []struct {
		ttl    int64
		window int
		want   int
	}{
		{ttl: 42, window: 60, want: 42},
		{ttl: -1, window: 60, want: 60},
		{ttl: 0, window: 0, want: 1},
	}
	for _, tc := range cases {
		if got := retryAfterSeconds(tc.ttl, tc.window); got != tc.want {
			t.Fatalf("retryAfterSeconds(%d, %d) want %d got %d", tc.ttl, tc.window, tc.want, got)
		}
	}
}

func TestPeekJSONStringIgnoresNonStringField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username":42}`))

	if got := peekJSONString(c, "username"); got != "" {
		t.Fatalf("non-string field should be ignored, got %q", got)
	}
	if got := peekJSONString(c, "missing"); got != "" {
		t.Fatalf("missing field should be empty, got %q", got)
	}
}
