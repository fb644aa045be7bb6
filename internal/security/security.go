package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/devfolio/internal/errors"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins []string      `json:"allowed_origins"`
	MaxBodyBytes   int64         `json:"max_body_bytes"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
	DocsPrefix     string        `json:"docs_prefix"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 30 * time.Second,
		DocsPrefix:     "/swagger/",
	}
}

// SecurityMiddleware groups the request hardening middleware
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

// CORS allows the configured site origins to call the API from a browser
func (sm *SecurityMiddleware) CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     sm.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// ValidateContentType rejects request bodies that aren't JSON
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.ContentLength == 0 || c.Request.Method == http.MethodGet {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	if !strings.HasPrefix(contentType, "application/json") {
		appErr := errors.NewValidationError("unsupported content type")
		appErr.HTTPStatus = http.StatusUnsupportedMediaType
		errors.Respond(c, appErr)
		return
	}

	c.Next()
}

// LimitBody caps the request body size
func (sm *SecurityMiddleware) LimitBody(c *gin.Context) {
	if sm.config.MaxBodyBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sm.config.MaxBodyBytes)
	}
	c.Next()
}

// RequestTimeout bounds every request context. Websocket upgrades are exempt.
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	if sm.config.RequestTimeout <= 0 || isWebsocket(c.Request) {
		c.Next()
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

var (
	scriptPattern     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
)

// SanitizeText strips markup from visitor-supplied text and collapses runs of blanks.
// Line breaks are kept.
func SanitizeText(input string) string {
	input = strings.TrimSpace(input)
	input = scriptPattern.ReplaceAllString(input, "")
	input = htmlTagPattern.ReplaceAllString(input, "")
	input = whitespacePattern.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateText checks encoding and length of visitor-supplied text
func ValidateText(field, input string, maxLen int) error {
	if strings.Contains(input, "\x00") {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	if !utf8.ValidString(input) {
		return fmt.Errorf("%s contains invalid UTF-8 encoding", field)
	}
	if maxLen > 0 && utf8.RuneCountInString(input) > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d characters", field, maxLen)
	}
	return nil
}
