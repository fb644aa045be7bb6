package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryConfiguration    ErrorCategory = "configuration"
	CategoryUpstream         ErrorCategory = "upstream"
	CategoryUpstreamSemantic ErrorCategory = "upstream_semantic"
	CategoryValidation       ErrorCategory = "validation"
	CategoryConflict         ErrorCategory = "conflict"
	CategoryNotFound         ErrorCategory = "not_found"
	CategoryUnauthorized     ErrorCategory = "unauthorized"
	CategoryRateLimit        ErrorCategory = "rate_limit"
	CategoryTimeout          ErrorCategory = "timeout"
	CategoryInternal         ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the HTTP contract of the failing endpoint.
// Public is the message clients see; Details carries the upstream body, if any.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory
	HTTPStatus int
	Public     string
	Details    string
	Provider   string
	Timestamp  time.Time
	StackTrace string
}

// Error implements the error interface
func (e *AppError) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.Category {
	case CategoryConfiguration:
		codeStr = "CONFIGURATION_ERROR"
	case CategoryUpstream:
		codeStr = "UPSTREAM_ERROR"
	case CategoryUpstreamSemantic:
		codeStr = "UPSTREAM_SEMANTIC_ERROR"
	case CategoryValidation:
		codeStr = "VALIDATION_ERROR"
	case CategoryConflict:
		codeStr = "CONFLICT"
	case CategoryNotFound:
		codeStr = "NOT_FOUND"
	case CategoryUnauthorized:
		codeStr = "UNAUTHORIZED"
	case CategoryRateLimit:
		codeStr = "RATE_LIMIT_EXCEEDED"
	case CategoryTimeout:
		codeStr = "TIMEOUT_ERROR"
	case CategoryInternal:
		codeStr = "INTERNAL_ERROR"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// Response is the JSON envelope written for every failed request
type Response struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Response renders the client-facing envelope
func (e *AppError) Response() Response {
	msg := e.Public
	if msg == "" {
		msg = e.ErrBuilder.Msg
	}
	return Response{Error: msg, Details: e.Details}
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewConfigurationError reports a missing server-held secret or identifier.
// It is raised before any upstream call is attempted.
func NewConfigurationError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	appErr := NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
	appErr.Public = message
	return appErr
}

// NewUpstreamError reports a transport failure or non-success status from a provider.
// status is the HTTP status the endpoint should answer with.
func NewUpstreamError(provider, public string, status int, details string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("provider", errors.New(provider))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s upstream error", provider)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}

	appErr := NewAppError(builder, CategoryUpstream, status)
	appErr.Public = public
	appErr.Details = details
	appErr.Provider = provider
	return appErr
}

// NewSemanticError reports a transport-level success whose payload signals failure
func NewSemanticError(provider, public string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("provider", errors.New(provider))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("%s returned an error payload", provider)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryUpstreamSemantic, http.StatusInternalServerError)
	appErr.Public = public
	appErr.Provider = provider
	return appErr
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	detailStr := ""
	if len(details) > 0 {
		detailStr = fmt.Sprintf("%v", details[0])
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if detailStr != "" {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(detailStr))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	appErr := NewAppError(builder, CategoryValidation, http.StatusBadRequest)
	appErr.Public = message
	appErr.Details = detailStr
	return appErr
}

// NewConflictError reports a uniqueness violation
func NewConflictError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeAlreadyExists).
		WithMsg(message)

	appErr := NewAppError(builder, CategoryConflict, http.StatusConflict)
	appErr.Public = message
	return appErr
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s not found", resource))

	return NewAppError(builder, CategoryNotFound, http.StatusNotFound)
}

// NewUnauthorizedError reports missing or invalid credentials on an admin route
func NewUnauthorizedError(message string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnauthenticated).
		WithMsg(message)

	appErr := NewAppError(builder, CategoryUnauthorized, http.StatusUnauthorized)
	appErr.Public = message
	return appErr
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
	appErr.Details = "retry after " + retryAfter
	return appErr
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// Respond logs err and writes its envelope with the error's status
func Respond(c *gin.Context, err error) {
	appErr := ToAppError(err)
	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

// ErrorHandler is a Gin middleware that renders errors attached with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		Respond(c, c.Errors.Last().Err)
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)
		appErr.StackTrace = captureStackTrace()

		Respond(c, appErr)
	})
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)
	if err.Provider != "" {
		logEntry = logEntry.With("provider", err.Provider)
	}

	errorMsg := err.ErrBuilder.Msg
	cause := err.ErrBuilder.Unwrap()

	switch err.Category {
	case CategoryValidation, CategoryConflict, CategoryNotFound, CategoryUnauthorized, CategoryRateLimit:
		logEntry.Warn(errorMsg)
	case CategoryUpstream, CategoryUpstreamSemantic, CategoryTimeout:
		if cause != nil {
			logEntry.Warn(errorMsg, "cause", cause)
		} else {
			logEntry.Warn(errorMsg)
		}
	default:
		if cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	switch ToAppError(err).Category {
	case CategoryUpstream, CategoryTimeout, CategoryRateLimit:
		return true
	default:
		return false
	}
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
