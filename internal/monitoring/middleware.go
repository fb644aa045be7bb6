package monitoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns a request id when the client did not send one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, id)
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// MonitoringMiddleware creates Gin middleware for request monitoring
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.IncrementRequest()

		ip := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(statusCode)

		if statusCode >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(method, path, ip, userAgent, statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, statusCode)
		}

		// websocket sessions are long-lived by nature
		if duration > 5*time.Second && !strings.HasSuffix(path, "/ws") {
			logger.PerformanceLogger("slow_request", duration.Seconds(), "seconds")
		}

		if statusCode >= 500 {
			logger.SystemLogger("server_error_response", fmt.Sprintf("Status %d for %s %s", statusCode, method, path))
		}
	}
}

// SecurityMonitoringMiddleware monitors for suspicious activity
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := c.GetHeader("User-Agent")
		details := make(map[string]interface{})

		switch {
		case containsSQLInjectionPatterns(c.Request.URL.RawQuery):
			details["type"] = "potential_sql_injection"
			details["query"] = c.Request.URL.RawQuery
		case c.Request.Method == "POST" && c.Request.ContentLength > 64*1024:
			details["type"] = "large_request_body"
			details["size_bytes"] = c.Request.ContentLength
		case containsSuspiciousUserAgent(userAgent):
			details["type"] = "suspicious_user_agent"
		}

		if len(details) > 0 {
			logger.SecurityLogger("suspicious_activity_detected", c.ClientIP(), userAgent, details)
		}

		c.Next()
	}
}

func containsSQLInjectionPatterns(query string) bool {
	patterns := []string{
		"union select",
		"union all",
		"select * from",
		"drop table",
		"delete from",
		"';--",
		"/*",
		"*/",
	}

	query = strings.ToLower(query)
	for _, pattern := range patterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}

	return false
}

func containsSuspiciousUserAgent(userAgent string) bool {
	suspiciousAgents := []string{
		"sqlmap",
		"nmap",
		"masscan",
		"zmap",
		"dirbuster",
		"gobuster",
		"nikto",
		"acunetix",
	}

	userAgent = strings.ToLower(userAgent)
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}

	return false
}
