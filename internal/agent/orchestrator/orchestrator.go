package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vmk-assistant/server/internal/agent/chunker"
	"github.com/vmk-assistant/server/internal/agent/documents"
	"github.com/vmk-assistant/server/internal/agent/llm"
	"github.com/vmk-assistant/server/internal/agent/model"
	errx "github.com/vmk-assistant/server/internal/core/error"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

const (
	Greeting = "🧠 Hello! I'm VMK. Ask a medical question or send a PDF/TXT file."

	msgUnsupportedFormat = "❌ Unsupported format. Only PDF or TXT files are accepted."
	msgExtraction        = "❌ Could not process the file. Please check that it is not damaged and try again."
	msgAuth              = "⚠️ The language model rejected the service credentials. Please contact the administrator."
	msgRateLimit         = "⚠️ The language model is overloaded right now. Please try again in a minute."
	msgTimeout           = "⚠️ The language model did not answer in time. Please try again."
	msgProvider          = "⚠️ The language model failed to answer. Please try again later."
)

// ContextStore is the conversation state the orchestrator drives.
type ContextStore interface {
	AppendUserTurn(key, text string) model.Turn
	Compact(ctx context.Context, key string) (bool, error)
	BuildPrompt(key string) []model.Turn
	AppendAssistantTurn(key, text string) model.Turn
}

// TurnLog persists completed turns.
type TurnLog interface {
	Record(ctx context.Context, key, input, output string)
}

// Config holds everything needed to serve turns.
type Config struct {
	Store     ContextStore
	Client    llm.Client
	Extractor *documents.Extractor
	Log       TurnLog

	Model       string
	Temperature float32
	MaxTokens   int
	// Timeout bounds each reply completion.
	Timeout time.Duration

	ChunkSize int
	// UploadDir holds uploads while they are processed; empty means os.TempDir.
	UploadDir string
}

// Orchestrator turns inbound messages into chunked replies.
type Orchestrator struct {
	store     ContextStore
	client    llm.Client
	extractor *documents.Extractor
	log       TurnLog

	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	chunkSize   int
	uploadDir   string
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("context store is nil")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("llm client is nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is empty")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = documents.NewExtractor(documents.DefaultMaxChars)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultMaxLen
	}

	return &Orchestrator{
		store:       cfg.Store,
		client:      cfg.Client,
		extractor:   cfg.Extractor,
		log:         cfg.Log,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		chunkSize:   cfg.ChunkSize,
		uploadDir:   cfg.UploadDir,
	}, nil
}

// OnStart returns the static greeting.
func (o *Orchestrator) OnStart(key string) []string {
	return chunker.Split(Greeting, o.chunkSize)
}

// OnTextTurn answers a typed message. Failures come back as an explanatory
// message; the store then holds the user turn without an assistant reply.
func (o *Orchestrator) OnTextTurn(ctx context.Context, key, text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	turnID := uuid.NewString()
	reply, err := o.processTurn(ctx, turnID, key, text)
	if err != nil {
		logx.Error().Err(err).
			Str("conversation_key", key).
			Str("turn_id", turnID).
			Bool("recoverable", errx.Recoverable(err)).
			Msg("Turn failed")
		return chunker.Split(UserMessage(err), o.chunkSize)
	}
	return chunker.Split(reply, o.chunkSize)
}

// OnDocumentTurn extracts an uploaded file and answers it as user input.
// The upload is staged in a temporary file that is removed on every path;
// a file that cannot be read never reaches the store.
func (o *Orchestrator) OnDocumentTurn(ctx context.Context, key string, data []byte, fileName string) []string {
	text, err := o.extractUpload(data, fileName)
	if err != nil {
		logx.Warn().Err(err).
			Str("conversation_key", key).
			Str("file_name", fileName).
			Msg("Document rejected")
		return chunker.Split(UserMessage(err), o.chunkSize)
	}
	return o.OnTextTurn(ctx, key, text)
}

func (o *Orchestrator) extractUpload(data []byte, fileName string) (string, error) {
	ext := documents.ExtensionOf(fileName)
	pattern := "upload-*"
	if ext != "" {
		pattern += "." + ext
	}

	f, err := os.CreateTemp(o.uploadDir, pattern)
	if err != nil {
		return "", errx.Extraction(fmt.Errorf("stage upload: %w", err))
	}
	path := f.Name()
	defer os.Remove(path)

	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", errx.Extraction(fmt.Errorf("stage upload: %w", werr))
	}

	return o.extractor.ExtractFile(path)
}

func (o *Orchestrator) processTurn(ctx context.Context, turnID, key, text string) (string, error) {
	o.store.AppendUserTurn(key, text)

	if _, err := o.store.Compact(ctx, key); err != nil {
		// the prompt is larger than usual this turn; compaction is retried next turn
		logx.Warn().Err(err).
			Str("conversation_key", key).
			Str("turn_id", turnID).
			Msg("Compaction skipped")
	}

	prompt := o.store.BuildPrompt(key)

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	started := time.Now()
	out, err := o.client.Complete(callCtx, llm.Request{
		Model:       o.model,
		Messages:    model.Messages(prompt),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, errx.ErrTimeout) {
			err = errx.Timeout(err)
		}
		return "", err
	}
	if strings.TrimSpace(out.Content) == "" {
		return "", errx.Provider(fmt.Errorf("empty reply"))
	}

	o.store.AppendAssistantTurn(key, out.Content)

	inC, outC, totalC := model.ComputeCost(out.PromptTokens, out.CompletionTokens, model.ResolvePricing(o.model))
	logx.Debug().
		Str("conversation_key", key).
		Str("turn_id", turnID).
		Str("model", o.model).
		Int("prompt_turns", len(prompt)).
		Int("prompt_tokens", out.PromptTokens).
		Int("completion_tokens", out.CompletionTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Dur("latency", time.Since(started)).
		Msg("LLM usage")

	if o.log != nil {
		// a completed turn is recorded even if ctx was cancelled after the reply
		o.log.Record(context.WithoutCancel(ctx), key, text, out.Content)
	}
	return out.Content, nil
}

// UserMessage converts a turn failure into the text shown to the end user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, errx.ErrUnsupportedFormat):
		return msgUnsupportedFormat
	case errors.Is(err, errx.ErrExtraction):
		return msgExtraction
	case errors.Is(err, errx.ErrAuth):
		return msgAuth
	case errors.Is(err, errx.ErrRateLimit):
		return msgRateLimit
	case errors.Is(err, errx.ErrTimeout):
		return msgTimeout
	default:
		return msgProvider
	}
}
