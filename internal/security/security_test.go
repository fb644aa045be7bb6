package security

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()

	assert.Contains(t, config.AllowedOrigins, "http://localhost:3000")
	assert.Equal(t, int64(1<<20), config.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, config.RequestTimeout)
	assert.False(t, config.EnableHSTS)
	assert.Equal(t, "/swagger/", config.DocsPrefix)
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		maxLen      int
		expectError bool
		errorMsg    string
	}{
		{"valid input", "hello there", 1000, false, ""},
		{"exactly at limit", strings.Repeat("a", 10), 10, false, ""},
		{"multibyte counted as runes", strings.Repeat("é", 10), 10, false, ""},
		{"too long", strings.Repeat("a", 11), 10, true, "message exceeds maximum length of 10 characters"},
		{"null bytes", "test\x00input", 10, true, "message contains invalid characters"},
		{"invalid UTF-8", "test\xff\xfe", 10, true, "message contains invalid UTF-8 encoding"},
		{"no limit", strings.Repeat("a", 5000), 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText("message", tt.input, tt.maxLen)
			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "  hello world  ", "hello world"},
		{"script removed", "hi<script>alert('xss')</script> there", "hi there"},
		{"multiline script removed", "<SCRIPT>\nalert(1)\n</SCRIPT>ok", "ok"},
		{"tags stripped", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"blanks collapsed", "a  \t b", "a b"},
		{"line breaks kept", "line one\nline two", "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		hsts     bool
		wantHSTS bool
	}{
		{"default", false, false},
		{"hsts enabled", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewSecurityMiddleware(SecurityConfig{EnableHSTS: tt.hsts})
			r := gin.New()
			r.Use(sm.SecurityHeaders)
			r.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "test"})
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
			assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
			assert.Equal(t, tt.wantHSTS, w.Header().Get("Strict-Transport-Security") != "")
		})
	}
}

func TestSecurityHeadersDocsPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(DefaultSecurityConfig())
	r := gin.New()
	r.Use(sm.SecurityHeaders)
	r.GET("/swagger/*any", func(c *gin.Context) { c.String(http.StatusOK, "ui") })
	r.GET("/api/github", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/swagger/index.html", nil)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "script-src 'self'")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/github", nil)
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestValidateContentType(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(DefaultSecurityConfig())
	r := gin.New()
	r.Use(sm.ValidateContentType)
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"json", "application/json", `{}`, http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"empty body", "", "", http.StatusOK},
		{"plain text", "text/plain", "hello", http.StatusUnsupportedMediaType},
		{"form", "application/x-www-form-urlencoded", "a=b", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/test", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				assert.JSONEq(t, `{"error":"unsupported content type"}`, w.Body.String())
			}
		})
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(SecurityConfig{MaxBodyBytes: 8})
	r := gin.New()
	r.Use(sm.LimitBody)
	r.POST("/test", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/test", bytes.NewBufferString("small"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/test", bytes.NewBufferString(strings.Repeat("x", 64)))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(SecurityConfig{AllowedOrigins: []string{"https://portfolio.example"}})
	r := gin.New()
	r.Use(sm.CORS())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", "GET", "https://portfolio.example", http.StatusOK, "https://portfolio.example"},
		{"disallowed origin", "GET", "https://evil.example", http.StatusForbidden, ""},
		{"no origin", "GET", "", http.StatusOK, ""},
		{"preflight", "OPTIONS", "https://portfolio.example", http.StatusNoContent, "https://portfolio.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == "OPTIONS" {
				req.Header.Set("Access-Control-Request-Method", "GET")
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflightAllowsWriteMethods(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(SecurityConfig{AllowedOrigins: []string{"http://localhost:3000"}})
	r := gin.New()
	r.Use(sm.CORS())
	r.PATCH("/api/admin/chat/messages/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, method := range []string{"POST", "PUT", "PATCH", "DELETE"} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("OPTIONS", "/api/admin/chat/messages/1", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", method)
			req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), method)
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sm := NewSecurityMiddleware(SecurityConfig{RequestTimeout: 5 * time.Second})
	r := gin.New()
	r.Use(sm.RequestTimeout)

	var hasDeadline bool
	r.GET("/test", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-Timeout"))
	assert.True(t, hasDeadline)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("X-Timeout"))
	assert.False(t, hasDeadline)
}
