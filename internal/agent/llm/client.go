package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/cloudwego/eino/schema"

	errx "github.com/vmk-assistant/server/internal/core/error"
)

// Client is the black-box completion service the agent talks to.
// Implementations classify failures into errx.ErrAuth, errx.ErrRateLimit,
// errx.ErrTimeout or errx.ErrProvider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Request is one stateless completion call.
type Request struct {
	Model       string
	Messages    []*schema.Message
	Temperature float32
	// MaxTokens of 0 leaves the provider default.
	MaxTokens int
}

// Completion is the provider-neutral reply.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, req Request) (*Completion, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}

// classifyStatus maps an HTTP-like status code onto an error kind.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errx.Auth(err)
	case status == http.StatusTooManyRequests:
		return errx.RateLimit(err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errx.Timeout(err)
	default:
		return errx.Provider(err)
	}
}

// classifyTransport maps a failed round trip onto an error kind.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errx.Timeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errx.Timeout(err)
	}
	return errx.Provider(err)
}
