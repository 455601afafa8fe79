package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/openai"

	logx "github.com/vmk-assistant/server/pkg/logger"
)

// OpenAIConfig configures NewOpenAIChatModel. BaseURL selects any
// OpenAI-compatible endpoint, e.g. "https://openrouter.ai/api/v1".
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	// HTTPClient defaults to http.DefaultClient; deadlines come from the request context.
	HTTPClient *http.Client
}

// NewOpenAIChatModel creates an eino chat model for an OpenAI-compatible API.
func NewOpenAIChatModel(ctx context.Context, config OpenAIConfig) (*openai.ChatModel, error) {
	cmCfg := &openai.ChatModelConfig{
		APIKey:      config.APIKey,
		BaseURL:     config.BaseURL,
		Model:       config.Model,
		Temperature: &config.Temperature,
		HTTPClient:  config.HTTPClient,
	}
	if config.MaxTokens > 0 {
		cmCfg.MaxTokens = &config.MaxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, cmCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating OpenAI chat model")
		return nil, fmt.Errorf("error creating OpenAI chat model: %w", err)
	}
	return chatModel, nil
}
