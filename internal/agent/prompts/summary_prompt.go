package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/summary_prompt.txt
var summarySystemPrompt string

// RenderSummaryRequest renders the summarization messages via the eino prompt
// component: the fixed instruction as system message and the transcript as
// the user message.
func RenderSummaryRequest(ctx context.Context, transcript string) ([]*schema.Message, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(strings.TrimSpace(summarySystemPrompt)),
		schema.MessagesPlaceholder("transcript", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"transcript": []*schema.Message{schema.UserMessage(transcript)},
	})
	if err != nil {
		return nil, fmt.Errorf("summary prompt render: %w", err)
	}
	if len(msgs) != 2 {
		return nil, fmt.Errorf("summary prompt render: expected 2 messages, got %d", len(msgs))
	}
	return msgs, nil
}
