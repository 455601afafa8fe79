package conversations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vmk-assistant/server/internal/agent/llm"
	"github.com/vmk-assistant/server/internal/agent/model"
	"github.com/vmk-assistant/server/internal/agent/prompts"
	errx "github.com/vmk-assistant/server/internal/core/error"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

const DefaultSummaryTurnCap = 500

// Summarizer collapses a list of turns into a short synopsis.
type Summarizer interface {
	Summarize(ctx context.Context, turns []model.Turn) (string, error)
}

type SummarizerConfig struct {
	Model       string
	Temperature float32
	// TurnCap bounds each turn's content in the transcript, in characters.
	TurnCap int
	// Timeout bounds the completion call; 0 relies on the caller's context.
	Timeout time.Duration
}

// LLMSummarizer summarizes through a single completion call.
type LLMSummarizer struct {
	client llm.Client
	config SummarizerConfig
}

func NewLLMSummarizer(client llm.Client, config SummarizerConfig) *LLMSummarizer {
	if config.TurnCap <= 0 {
		config.TurnCap = DefaultSummaryTurnCap
	}
	return &LLMSummarizer{client: client, config: config}
}

// Summarize returns the trimmed synopsis or an errx.ErrSummarization error.
func (s *LLMSummarizer) Summarize(ctx context.Context, turns []model.Turn) (string, error) {
	if s.client == nil {
		return "", errx.Summarization(fmt.Errorf("llm client is nil"))
	}

	messages, err := prompts.RenderSummaryRequest(ctx, Transcript(turns, s.config.TurnCap))
	if err != nil {
		return "", errx.Summarization(err)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	out, err := s.client.Complete(ctx, llm.Request{
		Model:       s.config.Model,
		Messages:    messages,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", errx.Summarization(err)
	}

	summary := strings.TrimSpace(out.Content)
	if summary == "" {
		return "", errx.Summarization(fmt.Errorf("empty summary"))
	}

	logx.Debug().
		Int("turns", len(turns)).
		Int("summary_chars", len([]rune(summary))).
		Msg("Conversation summarized")
	return summary, nil
}

// Transcript serializes turns as "role: content" lines, truncating each
// content to turnCap characters (no cap when turnCap <= 0).
func Transcript(turns []model.Turn, turnCap int) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(truncateRunes(t.Content, turnCap))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var _ Summarizer = (*LLMSummarizer)(nil)
