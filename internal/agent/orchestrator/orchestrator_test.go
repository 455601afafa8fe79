package orchestrator

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmk-assistant/server/internal/agent/conversations"
	"github.com/vmk-assistant/server/internal/agent/documents"
	"github.com/vmk-assistant/server/internal/agent/llm"
	"github.com/vmk-assistant/server/internal/agent/model"
	"github.com/vmk-assistant/server/internal/agent/prompts"
	"github.com/vmk-assistant/server/internal/agent/repo"
	errx "github.com/vmk-assistant/server/internal/core/error"
)

type summarizerFunc func(ctx context.Context, turns []model.Turn) (string, error)

func (f summarizerFunc) Summarize(ctx context.Context, turns []model.Turn) (string, error) {
	return f(ctx, turns)
}

type recordedTurn struct {
	key, input, output string
}

type memoryLog struct {
	mu      sync.Mutex
	recs    []recordedTurn
	ctxErrs []error
}

func (l *memoryLog) Record(ctx context.Context, key, input, output string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, recordedTurn{key, input, output})
	l.ctxErrs = append(l.ctxErrs, ctx.Err())
}

func (l *memoryLog) records() []recordedTurn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedTurn(nil), l.recs...)
}

type harness struct {
	orch  *Orchestrator
	store *conversations.ContextStore
	log   *memoryLog

	mu       sync.Mutex
	requests []llm.Request
}

func (h *harness) lastRequest() llm.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[len(h.requests)-1]
}

func newHarness(t *testing.T, reply llm.ClientFunc, summarize summarizerFunc, mutate func(*Config)) *harness {
	t.Helper()
	if summarize == nil {
		summarize = func(ctx context.Context, turns []model.Turn) (string, error) {
			return "patient discussed symptoms", nil
		}
	}
	store, err := conversations.NewContextStore(summarize, conversations.StoreConfig{})
	require.NoError(t, err)

	h := &harness{store: store, log: &memoryLog{}}
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		h.mu.Lock()
		h.requests = append(h.requests, req)
		h.mu.Unlock()
		return reply(ctx, req)
	})

	cfg := Config{
		Store:       store,
		Client:      client,
		Log:         h.log,
		Model:       "openai/gpt-4o",
		Temperature: 0.3,
		UploadDir:   t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.orch, err = New(cfg)
	require.NoError(t, err)
	return h
}

func echoReply(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.Completion{Content: "re: " + last.Content, PromptTokens: 10, CompletionTokens: 5}, nil
}

func TestNew_Validates(t *testing.T) {
	store, err := conversations.NewContextStore(summarizerFunc(nil), conversations.StoreConfig{})
	require.NoError(t, err)
	client := llm.ClientFunc(echoReply)

	_, err = New(Config{Client: client, Model: "m"})
	assert.Error(t, err)
	_, err = New(Config{Store: store, Model: "m"})
	assert.Error(t, err)
	_, err = New(Config{Store: store, Client: client})
	assert.Error(t, err)
	_, err = New(Config{Store: store, Client: client, Model: "m"})
	assert.NoError(t, err)
}

func TestOnStart(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)
	assert.Equal(t, []string{Greeting}, h.orch.OnStart("1"))
	assert.Zero(t, h.store.Len())
}

func TestOnTextTurn_Success(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)

	out := h.orch.OnTextTurn(context.Background(), "42", "I have a headache")
	assert.Equal(t, []string{"re: I have a headache"}, out)

	req := h.lastRequest()
	assert.Equal(t, "openai/gpt-4o", req.Model)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, schema.System, req.Messages[0].Role)
	assert.Equal(t, prompts.DefaultPersona(), req.Messages[0].Content)
	assert.Equal(t, schema.User, req.Messages[1].Role)

	snap, ok := h.store.Snapshot("42")
	require.True(t, ok)
	require.Len(t, snap.History, 2)
	assert.Equal(t, model.RoleUser, snap.History[0].Role)
	assert.Equal(t, model.RoleAssistant, snap.History[1].Role)
	assert.Equal(t, "re: I have a headache", snap.History[1].Content)

	assert.Equal(t, []recordedTurn{{"42", "I have a headache", "re: I have a headache"}}, h.log.records())
}

func TestOnTextTurn_RecordsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, func(callCtx context.Context, req llm.Request) (*llm.Completion, error) {
		cancel()
		return &llm.Completion{Content: "take ibuprofen"}, nil
	}, nil, nil)

	out := h.orch.OnTextTurn(ctx, "3", "my tooth aches")
	assert.Equal(t, []string{"take ibuprofen"}, out)

	require.Len(t, h.log.records(), 1)
	h.log.mu.Lock()
	assert.NoError(t, h.log.ctxErrs[0])
	h.log.mu.Unlock()
}

func TestOnTextTurn_FileLogSurvivesCancellation(t *testing.T) {
	sink, err := repo.NewFileSink(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, func(callCtx context.Context, req llm.Request) (*llm.Completion, error) {
		cancel()
		return &llm.Completion{Content: "rest and fluids"}, nil
	}, nil, func(c *Config) { c.Log = repo.NewConversationLog(sink, 0) })

	h.orch.OnTextTurn(ctx, "3", "I have a cold")

	raw, err := os.ReadFile(sink.Path("3"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"output":"rest and fluids"`)
}

func TestOnTextTurn_BlankIsIgnored(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)

	assert.Empty(t, h.orch.OnTextTurn(context.Background(), "1", "  \n\t"))
	assert.Zero(t, h.store.Len())
	assert.Empty(t, h.log.records())
}

func TestOnTextTurn_ChunksLongReply(t *testing.T) {
	long := strings.Repeat("a", 10)
	h := newHarness(t, func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Content: long}, nil
	}, nil, func(c *Config) { c.ChunkSize = 4 })

	out := h.orch.OnTextTurn(context.Background(), "1", "hi")
	assert.Equal(t, []string{"aaaa", "aaaa", "aa"}, out)
}

func TestOnTextTurn_ProviderFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errx.Auth(errors.New("401")), msgAuth},
		{errx.RateLimit(errors.New("429")), msgRateLimit},
		{errx.Provider(errors.New("500")), msgProvider},
		{errors.New("unclassified"), msgProvider},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			h := newHarness(t, func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
				return nil, tc.err
			}, nil, nil)

			out := h.orch.OnTextTurn(context.Background(), "9", "hello")
			assert.Equal(t, []string{tc.want}, out)

			snap, ok := h.store.Snapshot("9")
			require.True(t, ok)
			require.Len(t, snap.History, 1)
			assert.Equal(t, model.RoleUser, snap.History[0].Role)
			assert.Empty(t, h.log.records())
		})
	}
}

func TestOnTextTurn_EmptyReply(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Content: "   "}, nil
	}, nil, nil)

	assert.Equal(t, []string{msgProvider}, h.orch.OnTextTurn(context.Background(), "1", "hello"))
	snap, _ := h.store.Snapshot("1")
	assert.Len(t, snap.History, 1)
}

func TestOnTextTurn_Timeout(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil, func(c *Config) { c.Timeout = 20 * time.Millisecond })

	out := h.orch.OnTextTurn(context.Background(), "1", "hello")
	assert.Equal(t, []string{msgTimeout}, out)
}

func TestOnTextTurn_CompactsOnFourthTurn(t *testing.T) {
	var summarized []model.Turn
	h := newHarness(t, echoReply, func(ctx context.Context, turns []model.Turn) (string, error) {
		summarized = turns
		return "S1", nil
	}, nil)
	ctx := context.Background()

	for _, q := range []string{"u1", "u2", "u3"} {
		h.orch.OnTextTurn(ctx, "7", q)
	}
	assert.Nil(t, summarized)
	snap, _ := h.store.Snapshot("7")
	assert.Len(t, snap.History, 6)
	assert.False(t, snap.HasSummary)

	h.orch.OnTextTurn(ctx, "7", "u4")
	require.Len(t, summarized, 7)

	req := h.lastRequest()
	require.Len(t, req.Messages, 4)
	assert.Equal(t, prompts.DefaultPersona(), req.Messages[0].Content)
	assert.Equal(t, prompts.SummaryInstruction("S1"), req.Messages[1].Content)
	assert.Equal(t, schema.System, req.Messages[1].Role)
	assert.Equal(t, "re: u3", req.Messages[2].Content)
	assert.Equal(t, "u4", req.Messages[3].Content)

	snap, _ = h.store.Snapshot("7")
	assert.True(t, snap.HasSummary)
	assert.Equal(t, "S1", snap.Summary)
	require.Len(t, snap.History, 3)
	assert.Equal(t, "re: u4", snap.History[2].Content)
}

func TestOnTextTurn_SummarizerFailureStillReplies(t *testing.T) {
	h := newHarness(t, echoReply, func(ctx context.Context, turns []model.Turn) (string, error) {
		return "", errx.Summarization(errors.New("provider down"))
	}, nil)
	ctx := context.Background()

	for _, q := range []string{"u1", "u2", "u3"} {
		h.orch.OnTextTurn(ctx, "7", q)
	}
	out := h.orch.OnTextTurn(ctx, "7", "u4")
	assert.Equal(t, []string{"re: u4"}, out)

	req := h.lastRequest()
	assert.Len(t, req.Messages, 8)

	snap, _ := h.store.Snapshot("7")
	assert.False(t, snap.HasSummary)
	assert.Len(t, snap.History, 8)
}

func TestOnTextTurn_DistinctKeysDoNotWait(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, req llm.Request) (*llm.Completion, error) {
		if req.Messages[len(req.Messages)-1].Content == "slow" {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return echoReply(ctx, req)
	}, nil, nil)

	slowDone := make(chan []string, 1)
	go func() {
		slowDone <- h.orch.OnTextTurn(context.Background(), "A", "slow")
	}()

	fastDone := make(chan []string, 1)
	go func() {
		fastDone <- h.orch.OnTextTurn(context.Background(), "B", "fast")
	}()

	select {
	case out := <-fastDone:
		assert.Equal(t, []string{"re: fast"}, out)
	case <-time.After(2 * time.Second):
		t.Fatal("turn for B waited on A")
	}

	close(release)
	assert.Equal(t, []string{"re: slow"}, <-slowDone)
}

func TestOnDocumentTurn_Text(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)

	out := h.orch.OnDocumentTurn(context.Background(), "5", []byte("blood pressure 130/85"), "notes.TXT")
	require.Len(t, out, 1)
	assert.Equal(t, "re: "+documents.ContentMarker+"blood pressure 130/85", out[0])

	snap, _ := h.store.Snapshot("5")
	require.Len(t, snap.History, 2)
	assert.Equal(t, documents.ContentMarker+"blood pressure 130/85", snap.History[0].Content)

	entries, err := os.ReadDir(h.orch.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOnDocumentTurn_TruncatesContent(t *testing.T) {
	h := newHarness(t, echoReply, nil, func(c *Config) { c.Extractor = documents.NewExtractor(5) })

	h.orch.OnDocumentTurn(context.Background(), "5", []byte("0123456789"), "a.txt")
	snap, _ := h.store.Snapshot("5")
	require.NotEmpty(t, snap.History)
	assert.Equal(t, documents.ContentMarker+"01234", snap.History[0].Content)
}

func TestOnDocumentTurn_UnsupportedFormat(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)

	out := h.orch.OnDocumentTurn(context.Background(), "5", []byte("PK\x03\x04"), "report.docx")
	assert.Equal(t, []string{msgUnsupportedFormat}, out)
	assert.Zero(t, h.store.Len())

	entries, err := os.ReadDir(h.orch.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOnDocumentTurn_ExtractionFailure(t *testing.T) {
	h := newHarness(t, echoReply, nil, nil)

	out := h.orch.OnDocumentTurn(context.Background(), "5", []byte{0xff, 0xfe, 0x00}, "bad.txt")
	assert.Equal(t, []string{msgExtraction}, out)

	out = h.orch.OnDocumentTurn(context.Background(), "5", []byte("not a pdf"), "scan.pdf")
	assert.Equal(t, []string{msgExtraction}, out)

	assert.Zero(t, h.store.Len())
	assert.Empty(t, h.log.records())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, msgUnsupportedFormat, UserMessage(errx.UnsupportedFormat("doc")))
	assert.Equal(t, msgExtraction, UserMessage(errx.Extraction(errors.New("x"))))
	assert.Equal(t, msgTimeout, UserMessage(errx.Timeout(context.DeadlineExceeded)))
	assert.Equal(t, msgProvider, UserMessage(errors.New("other")))
}
