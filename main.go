package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"github.com/vmk-assistant/server/internal/agent/conversations"
	"github.com/vmk-assistant/server/internal/agent/documents"
	"github.com/vmk-assistant/server/internal/agent/llm"
	"github.com/vmk-assistant/server/internal/agent/model"
	"github.com/vmk-assistant/server/internal/agent/orchestrator"
	"github.com/vmk-assistant/server/internal/agent/repo"
	"github.com/vmk-assistant/server/internal/core"
	"github.com/vmk-assistant/server/internal/transport/telegram"
	logx "github.com/vmk-assistant/server/pkg/logger"
	pkgredis "github.com/vmk-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the bot,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	Telegram model.TelegramConfig

	// LLM provider
	LLM model.LLMConfig

	// Agent configs
	Response     model.ResponseModelConfig
	Summary      model.SummaryModelConfig
	Conversation model.ConversationConfig
	Document     model.DocumentConfig
	Reply        model.ReplyConfig
	AuditLog     model.AuditLogConfig
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load %s: %v\n", *envFile, err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
	logDiagnostics(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildLLMClient(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build LLM client")
	}

	sink, closeSink, err := buildLogSink(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build conversation log sink")
	}
	defer closeSink()

	summaryModel := cfg.Summary.Model
	if summaryModel == "" {
		summaryModel = cfg.Response.Model
	}
	summarizer := conversations.NewLLMSummarizer(client, conversations.SummarizerConfig{
		Model:       summaryModel,
		Temperature: cfg.Summary.Temperature,
		TurnCap:     cfg.Summary.TurnCap,
		Timeout:     cfg.LLM.Timeout,
	})

	store, err := conversations.NewContextStore(summarizer, conversations.StoreConfig{
		CompactThreshold: cfg.Conversation.CompactThreshold,
		RetainTurns:      cfg.Conversation.RetainTurns,
		Persona:          cfg.Conversation.Persona,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Invalid conversation config")
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Store:       store,
		Client:      client,
		Extractor:   documents.NewExtractor(cfg.Document.MaxChars),
		Log:         repo.NewConversationLog(sink, cfg.AuditLog.FieldCap),
		Model:       cfg.Response.Model,
		Temperature: cfg.Response.Temperature,
		MaxTokens:   cfg.Response.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		ChunkSize:   cfg.Reply.ChunkSize,
		UploadDir:   cfg.Document.UploadDir,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build orchestrator")
	}

	bot := telegram.NewBot(
		telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.Token, http.DefaultClient),
		orch,
		telegram.BotConfig{
			PollTimeout: cfg.Telegram.PollTimeout,
			MaxWorkers:  cfg.Telegram.MaxWorkers,
		},
	)

	logx.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.Response.Model).
		Str("audit_log", cfg.AuditLog.Sink).
		Msg("Bot started, polling for updates")

	if err := bot.Run(ctx); err != nil {
		logx.Fatal().Err(err).Msg("Bot stopped with error")
	}
	logx.Info().Msg("Bot stopped")
}

func buildLLMClient(ctx context.Context, cfg AppConfig) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "openai", "":
		chatModel, err := llm.NewOpenAIChatModel(ctx, llm.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.Response.Model,
			Temperature: cfg.Response.Temperature,
			MaxTokens:   cfg.Response.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return llm.NewEinoClient(chatModel, cfg.Response.Model, llm.NewModelCallbacks()), nil
	case "gemini":
		chatModel, err := llm.NewGeminiChatModel(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.Response.Model,
			Temperature: cfg.Response.Temperature,
			MaxTokens:   cfg.Response.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return llm.NewEinoClient(chatModel, cfg.Response.Model, llm.NewModelCallbacks()), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLM.Provider)
	}
}

func buildLogSink(ctx context.Context, cfg AppConfig) (model.LogSink, func(), error) {
	switch cfg.AuditLog.Sink {
	case "file", "":
		sink, err := repo.NewFileSink(cfg.AuditLog.Dir)
		return sink, func() {}, err
	case "redis":
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise redis client: %w", err)
		}
		return repo.NewRedisSink(rdb, cfg.AuditLog.TTL), func() { closeQuietly(rdb) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown AUDIT_LOG_SINK %q", cfg.AuditLog.Sink)
	}
}

// logDiagnostics reports which credentials are present without their values.
func logDiagnostics(cfg AppConfig) {
	logx.Info().
		Bool("telegram_token_set", cfg.Telegram.Token != "").
		Int("telegram_token_len", len(cfg.Telegram.Token)).
		Bool("llm_api_key_set", cfg.LLM.APIKey != "").
		Int("llm_api_key_len", len(cfg.LLM.APIKey)).
		Str("llm_base_url", cfg.LLM.BaseURL).
		Int("compact_threshold", cfg.Conversation.CompactThreshold).
		Int("retain_turns", cfg.Conversation.RetainTurns).
		Msg("Environment diagnostic")
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logx.Warn().Err(err).Msg("close failed")
	}
}
