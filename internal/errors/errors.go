package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation       ErrorCategory = "validation"
	CategoryInsufficientData ErrorCategory = "insufficient_data"
	CategoryDataUnavailable  ErrorCategory = "data_unavailable"
	CategoryTimeout          ErrorCategory = "timeout"
	CategoryRateLimit        ErrorCategory = "rate_limit"
	CategoryInternal         ErrorCategory = "internal"
	CategoryConfiguration    ErrorCategory = "configuration"
)

var categoryCodes = map[ErrorCategory]string{
	CategoryValidation:       "VALIDATION_ERROR",
	CategoryInsufficientData: "INSUFFICIENT_DATA",
	CategoryDataUnavailable:  "DATA_UNAVAILABLE",
	CategoryTimeout:          "TIMEOUT_ERROR",
	CategoryRateLimit:        "RATE_LIMIT_EXCEEDED",
	CategoryInternal:         "INTERNAL_ERROR",
	CategoryConfiguration:    "CONFIGURATION_ERROR",
}

// AppError wraps an errbuilder error with the HTTP context the handlers need
type AppError struct {
	*errbuilder.ErrBuilder `json:"-"`

	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   ErrorCategory     `json:"category"`
	HTTPStatus int               `json:"http_status"`
	Timestamp  time.Time         `json:"timestamp"`
	Details    map[string]string `json:"details,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	code, ok := categoryCodes[category]
	if !ok {
		code = "UNKNOWN_ERROR"
	}
	return &AppError{
		ErrBuilder: builder,
		Code:       code,
		Message:    builder.Msg,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func (e *AppError) withDetails(details map[string]string) *AppError {
	if len(details) == 0 {
		return e
	}
	errorMap := errbuilder.ErrorMap{}
	for k, v := range details {
		errorMap.Set(k, errors.New(v))
	}
	e.ErrBuilder = e.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))
	e.Details = details
	return e
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	appErr := NewAppError(builder, CategoryValidation, http.StatusBadRequest)
	if len(details) > 0 {
		appErr = appErr.withDetails(map[string]string{"validation_details": fmt.Sprintf("%v", details[0])})
	}
	return appErr
}

// NewParseError reports a dataset that could not be read
func NewParseError(cause *dataset.ParseError) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("Could not parse %s dataset", cause.Kind)).
		WithCause(cause)

	details := map[string]string{"reason": cause.Err.Error()}
	if cause.Row > 0 {
		details["row"] = strconv.Itoa(cause.Row)
	}
	if cause.Column != "" {
		details["column"] = cause.Column
	}
	return NewAppError(builder, CategoryValidation, http.StatusBadRequest).withDetails(details)
}

// NewSourceReadError reports a dataset held by the server, in the data dir or
// Postgres, that exists but could not be read. The client cannot fix it
func NewSourceReadError(cause *dataset.LoadError) *AppError {
	name := cause.Name
	if name == "" {
		name = cause.Source
	}
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("Failed to read %s", name)).
		WithCause(cause)

	return NewAppError(builder, CategoryInternal, http.StatusInternalServerError).
		withDetails(map[string]string{"source": cause.Source, "reason": cause.Err.Error()})
}

// NewInsufficientDataError reports that quintile scoring cannot run on the input
func NewInsufficientDataError(cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("Not enough data to compute RFM quintile scores").
		WithCause(cause)

	details := map[string]string{}
	var insufficient *rfm.InsufficientDataError
	if errors.As(cause, &insufficient) {
		details["reason"] = insufficient.Reason
		details["rows"] = strconv.Itoa(insufficient.Rows)
		if insufficient.Metric != "" {
			details["metric"] = insufficient.Metric
			details["distinct"] = strconv.Itoa(insufficient.Distinct)
		}
	}
	return NewAppError(builder, CategoryInsufficientData, http.StatusUnprocessableEntity).withDetails(details)
}

// NewDataUnavailableError reports that a dataset has not been provided yet
func NewDataUnavailableError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryDataUnavailable, http.StatusNotFound)
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

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests).
		withDetails(map[string]string{"retry_after": retryAfter})
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error")

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError).
		withDetails(map[string]string{"internal_details": message})

	if gin.Mode() == gin.DebugMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause == nil {
		return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
	}
	return NewAppError(builder.WithCause(cause), CategoryConfiguration, http.StatusInternalServerError).
		withDetails(map[string]string{"config_details": cause.Error()})
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that renders the last c.Error as an AppError
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
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

	var (
		loadErr  *dataset.LoadError
		parseErr *dataset.ParseError
	)
	switch {
	case errors.Is(err, rfm.ErrInsufficientData):
		return NewInsufficientDataError(err)
	case errors.As(err, &loadErr) && !loadErr.FromUpload():
		return NewSourceReadError(loadErr)
	case errors.As(err, &parseErr):
		return NewParseError(parseErr)
	case errors.Is(err, dataset.ErrNotFound):
		return NewDataUnavailableError("Dataset not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("Request deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewTimeoutError("Request cancelled", err)
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// Abort logs err and writes it as the response
func Abort(c *gin.Context, err error) {
	appErr := ToAppError(err)
	LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.Code,
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	cause := err.ErrBuilder.Unwrap()
	switch err.Category {
	case CategoryValidation, CategoryRateLimit, CategoryInsufficientData, CategoryDataUnavailable:
		if len(err.Details) > 0 {
			logEntry.Warn(err.Message, "details", err.Details)
		} else {
			logEntry.Warn(err.Message)
		}
	case CategoryTimeout:
		logEntry.Info(err.Message, "cause", cause)
	default:
		if cause != nil {
			logEntry.Error(err.Message, "cause", cause)
		} else {
			logEntry.Error(err.Message)
		}
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
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
