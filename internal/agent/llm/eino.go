package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"google.golang.org/genai"

	errx "github.com/vmk-assistant/server/internal/core/error"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

// EinoClient adapts an eino chat model to Client.
type EinoClient struct {
	chatModel einomodel.BaseChatModel
	name      string
	handlers  []einocb.Handler
}

// NewEinoClient wraps chatModel. name labels the model in callbacks; handlers
// are attached to every call (see NewModelCallbacks).
func NewEinoClient(chatModel einomodel.BaseChatModel, name string, handlers ...einocb.Handler) *EinoClient {
	return &EinoClient{chatModel: chatModel, name: name, handlers: handlers}
}

// Complete runs a single Generate call with per-request options.
func (c *EinoClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if c.chatModel == nil {
		return nil, errx.Provider(fmt.Errorf("chat model is nil"))
	}

	opts := []einomodel.Option{einomodel.WithTemperature(req.Temperature)}
	if req.Model != "" {
		opts = append(opts, einomodel.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(req.MaxTokens))
	}

	if len(c.handlers) > 0 {
		ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
			Name:      c.name,
			Type:      c.name,
			Component: components.ComponentOfChatModel,
		}, c.handlers...)
	}

	out, err := c.chatModel.Generate(ctx, req.Messages, opts...)
	if err != nil {
		return nil, classifyEino(ctx, err)
	}
	if out == nil {
		return nil, errx.Provider(fmt.Errorf("chat model returned no message"))
	}

	result := &Completion{Content: out.Content}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		result.PromptTokens = out.ResponseMeta.Usage.PromptTokens
		result.CompletionTokens = out.ResponseMeta.Usage.CompletionTokens
	}
	return result, nil
}

// classifyEino reads the HTTP status out of the provider SDK errors the
// Gemini and OpenAI components wrap.
func classifyEino(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, err)
	}
	var oaiErr *goopenai.APIError
	if errors.As(err, &oaiErr) && oaiErr.HTTPStatusCode > 0 {
		return classifyStatus(oaiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	return classifyTransport(ctx, err)
}

// GeminiConfig configures NewGeminiChatModel.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewGeminiChatModel creates a Gemini-backed eino chat model.
func NewGeminiChatModel(ctx context.Context, config GeminiConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	gemCfg := &gemini.Config{
		Client:      client,
		Model:       config.Model,
		Temperature: &config.Temperature,
	}
	if config.MaxTokens > 0 {
		gemCfg.MaxTokens = &config.MaxTokens
	}

	chatModel, err := gemini.NewChatModel(ctx, gemCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return chatModel, nil
}

var _ Client = (*EinoClient)(nil)
