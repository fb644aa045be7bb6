package security

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// apiContentSecurityPolicy forbids everything; the API only serves JSON
	apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"

	// docsContentSecurityPolicy lets the bundled Swagger UI load its own assets
	docsContentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityHeaders adds security headers to all responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	if sm.config.DocsPrefix != "" && strings.HasPrefix(c.Request.URL.Path, sm.config.DocsPrefix) {
		c.Header("Content-Security-Policy", docsContentSecurityPolicy)
	} else {
		c.Header("Content-Security-Policy", apiContentSecurityPolicy)
	}

	if sm.config.EnableHSTS || c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}
