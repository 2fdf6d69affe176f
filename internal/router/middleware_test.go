package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/courtline/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveAllowedOrigin(t *testing.T) {
	cases := []struct {
		name        string
		origin      string
		allowed     []string
		credentials bool
		want        string
	}{
		{"wildcard", "https://arena.example.com", []string{"*"}, false, "*"},
		{"wildcard with credentials echoes origin", "https://arena.example.com", []string{"*"}, true, "https://arena.example.com"},
		{"allow list match is case insensitive", "https://Box.Example.com", []string{"https://box.example.com"}, false, "https://Box.Example.com"},
		{"allow list miss", "https://evil.example.com", []string{"https://box.example.com"}, false, ""},
		{"no origin header", "", []string{"https://box.example.com"}, false, ""},
	}
	for _, tc := range cases {
		if got := resolveAllowedOrigin(tc.origin, tc.allowed, tc.credentials); got != tc.want {
			t.Fatalf("%s: want %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://box.example.com"}, MaxAge: 600}))
	r.POST("/api/v1/public/ticket-types/:id/purchase", func(c *gin.Context) {
		t.Fatalf("preflight must not reach handler")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/ticket-types/1/purchase", nil)
	req.Header.Set("Origin", "https://box.example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status want 204 got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://box.example.com" {
		t.Fatalf("unexpected allow origin: %s", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != requestIDHeader {
		t.Fatalf("request id header should be exposed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Stripe-Signature") {
		t.Fatalf("default allow headers should include Stripe-Signature, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("max age want 600 got %q", got)
	}
}

func TestSanitizeRequestID(t *testing.T) {
	valid := []string{"req-123", "  edge:gw_01.a  ", strings.Repeat("a", requestIDMaxLength)}
	for _, raw := range valid {
		if sanitizeRequestID(raw) != strings.TrimSpace(raw) {
			t.Fatalf("expected %q to be accepted", raw)
		}
	}
	invalid := []string{"", "   ", "has space", "bad\nline", "<script>", strings.Repeat("a", requestIDMaxLength+1)}
	for _, raw := range invalid {
		if got := sanitizeRequestID(raw); got != "" {
			t.Fatalf("expected %q to be rejected, got %q", raw, got)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	serve := func(header string) (string, string) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if header != "" {
			req.Header.Set(requestIDHeader, header)
		}
		r.ServeHTTP(w, req)
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal response failed: %v", err)
		}
		return w.Header().Get(requestIDHeader), body["request_id"]
	}

	if header, ctxID := serve("gate-7:scan-42"); header != "gate-7:scan-42" || ctxID != header {
		t.Fatalf("trusted id should pass through, header=%q ctx=%q", header, ctxID)
	}
	header, ctxID := serve("bad id with spaces")
	if header == "" || header == "bad id with spaces" || ctxID != header {
		t.Fatalf("invalid id should be replaced, header=%q ctx=%q", header, ctxID)
	}
	if header, _ := serve(""); len(header) != 36 {
		t.Fatalf("generated id should be a uuid, got %q", header)
	}
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestLoggerMiddlewareLevelsAndSkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, logs := newObservedLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, "/health", "/metrics"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/tickets/:code", func(c *gin.Context) {
		c.Set("admin_id", uint(9))
		c.Status(http.StatusOK)
	})
	r.POST("/purchase", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
	r.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, target := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodGet, "/tickets/ABC123"},
		{http.MethodPost, "/purchase"},
		{http.MethodPost, "/webhook"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(target.method, target.path, nil))
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("skip paths should not be logged, want 3 entries got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] {
			t.Fatalf("entry %d level want %s got %s", i, wantLevels[i], entry.Level)
		}
	}
	first := entries[0].ContextMap()
	if first["route"] != "/tickets/:code" {
		t.Fatalf("route template should be logged, got %v", first["route"])
	}
	if first["admin_id"] != uint64(9) {
		t.Fatalf("admin_id should be logged, got %v (%T)", first["admin_id"], first["admin_id"])
	}
	if id, _ := first["request_id"].(string); id == "" {
		t.Fatalf("request_id should be logged")
	}
	if _, ok := entries[1].ContextMap()["admin_id"]; ok {
		t.Fatalf("anonymous request should not carry admin_id")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware("", nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("business errors keep http 200, got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}
