package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Error kinds. Match them with errors.Is against any error returned by the
// agent packages.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtraction        = errors.New("document extraction failed")
	ErrSummarization     = errors.New("summarization failed")
	ErrAuth              = errors.New("llm authentication failed")
	ErrRateLimit         = errors.New("llm rate limit exceeded")
	ErrTimeout           = errors.New("llm request timed out")
	ErrProvider          = errors.New("llm provider error")
	ErrLogSink           = errors.New("conversation log sink failed")
	ErrRedis             = errors.New(RedisErrorMessage)
)

// AppError wraps an underlying error with a kind, an HTTP-like status and a safe message.
type AppError struct {
	Kind    error
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target is the error's kind. The wrapped chain is
// walked by errors.Is through Unwrap.
func (e *AppError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// New creates a new AppError with the provided information.
func New(kind error, err error, status int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// UnsupportedFormat reports a document extension the extractor cannot read.
func UnsupportedFormat(ext string) *AppError {
	return New(ErrUnsupportedFormat, nil, http.StatusUnsupportedMediaType,
		fmt.Sprintf("unsupported document format %q", ext))
}

// Extraction wraps a failure to read text out of a supported document.
func Extraction(err error) *AppError {
	return New(ErrExtraction, err, http.StatusUnprocessableEntity, ErrExtraction.Error())
}

// Summarization wraps a failed compaction call.
func Summarization(err error) *AppError {
	return New(ErrSummarization, err, http.StatusBadGateway, ErrSummarization.Error())
}

// Auth wraps a rejected LLM credential.
func Auth(err error) *AppError {
	return New(ErrAuth, err, http.StatusUnauthorized, ErrAuth.Error())
}

// RateLimit wraps a throttled LLM call.
func RateLimit(err error) *AppError {
	return New(ErrRateLimit, err, http.StatusTooManyRequests, ErrRateLimit.Error())
}

// Timeout wraps an LLM call that exceeded its deadline.
func Timeout(err error) *AppError {
	return New(ErrTimeout, err, http.StatusGatewayTimeout, ErrTimeout.Error())
}

// Provider wraps any other LLM failure.
func Provider(err error) *AppError {
	return New(ErrProvider, err, http.StatusBadGateway, ErrProvider.Error())
}

// LogSink wraps an audit log write failure.
func LogSink(err error) *AppError {
	return New(ErrLogSink, err, http.StatusInternalServerError, ErrLogSink.Error())
}

// Recoverable reports whether err is one of the turn-level kinds that leave
// the process and conversation state intact.
func Recoverable(err error) bool {
	for _, kind := range []error{
		ErrUnsupportedFormat, ErrExtraction, ErrSummarization,
		ErrAuth, ErrRateLimit, ErrTimeout, ErrProvider, ErrLogSink, ErrRedis,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
