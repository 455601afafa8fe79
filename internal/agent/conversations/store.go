package conversations

import (
	"context"
	"fmt"
	"sync"

	"github.com/vmk-assistant/server/internal/agent/model"
	"github.com/vmk-assistant/server/internal/agent/prompts"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

const (
	DefaultCompactThreshold = 6
	DefaultRetainTurns      = 2
)

type StoreConfig struct {
	// CompactThreshold is the history length that triggers compaction.
	CompactThreshold int
	// RetainTurns is how many recent turns survive a compaction.
	RetainTurns int
	Persona     string
}

// ContextStore owns the per-conversation history and rolling summary.
//
// Concurrency model:
//   - mu guards only the conversations map.
//   - Each conversation carries its own mutex, created with the conversation
//     and kept for the process lifetime. Every operation on a key runs under
//     that mutex, so different keys never block each other.
//   - Compact holds the conversation mutex across the summarizer call.
type ContextStore struct {
	mu            sync.Mutex
	conversations map[string]*conversation

	summarizer Summarizer
	threshold  int
	retain     int
	persona    string
}

type conversation struct {
	mu         sync.Mutex
	history    []model.Turn
	summary    string
	hasSummary bool
	lastSeq    int64
}

func NewContextStore(summarizer Summarizer, config StoreConfig) (*ContextStore, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer is nil")
	}
	if config.CompactThreshold == 0 {
		config.CompactThreshold = DefaultCompactThreshold
	}
	if config.RetainTurns == 0 {
		config.RetainTurns = DefaultRetainTurns
	}
	if config.RetainTurns < 1 || config.RetainTurns >= config.CompactThreshold {
		return nil, fmt.Errorf("retain turns (%d) must be in [1, compact threshold %d)",
			config.RetainTurns, config.CompactThreshold)
	}

	return &ContextStore{
		conversations: make(map[string]*conversation),
		summarizer:    summarizer,
		threshold:     config.CompactThreshold,
		retain:        config.RetainTurns,
		persona:       prompts.Persona(config.Persona),
	}, nil
}

func (s *ContextStore) lookup(key string, create bool) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[key]
	if !ok && create {
		c = &conversation{}
		s.conversations[key] = c
	}
	return c
}

// AppendUserTurn appends a user turn, creating the conversation on first use.
func (s *ContextStore) AppendUserTurn(key, text string) model.Turn {
	return s.append(key, model.RoleUser, text)
}

// AppendAssistantTurn appends an assistant turn.
func (s *ContextStore) AppendAssistantTurn(key, text string) model.Turn {
	return s.append(key, model.RoleAssistant, text)
}

func (s *ContextStore) append(key string, role model.Role, text string) model.Turn {
	c := s.lookup(key, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSeq++
	t := model.Turn{Role: role, Content: text, Seq: c.lastSeq}
	c.history = append(c.history, t)
	return t
}

// Compact summarizes the history once it reaches the threshold and keeps the
// most recent turns. It reports whether a compaction happened. On summarizer
// failure history and summary are left untouched and the error is returned.
func (s *ContextStore) Compact(ctx context.Context, key string) (bool, error) {
	c := s.lookup(key, false)
	if c == nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) < s.threshold {
		return false, nil
	}

	input := make([]model.Turn, 0, len(c.history)+1)
	if c.hasSummary {
		input = append(input, model.Turn{Role: model.RoleSystem, Content: prompts.SummaryInstruction(c.summary)})
	}
	input = append(input, c.history...)

	summary, err := s.summarizer.Summarize(ctx, input)
	if err != nil {
		logx.Warn().Err(err).
			Str("conversation_key", key).
			Int("history_len", len(c.history)).
			Msg("Compaction failed; history kept")
		return false, err
	}

	c.summary = summary
	c.hasSummary = true
	c.history = append([]model.Turn(nil), c.history[len(c.history)-s.retain:]...)

	logx.Debug().
		Str("conversation_key", key).
		Int("compacted", len(input)).
		Int("history_len", len(c.history)).
		Msg("Conversation compacted")
	return true, nil
}

// BuildPrompt returns the exact message sequence for the next completion:
// persona, optional summary, then the retained history.
func (s *ContextStore) BuildPrompt(key string) []model.Turn {
	prompt := []model.Turn{{Role: model.RoleSystem, Content: s.persona}}

	c := s.lookup(key, false)
	if c == nil {
		return prompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasSummary {
		prompt = append(prompt, model.Turn{Role: model.RoleSystem, Content: prompts.SummaryInstruction(c.summary)})
	}
	return append(prompt, c.history...)
}

// Snapshot returns a copy of the conversation state for key.
func (s *ContextStore) Snapshot(key string) (model.ConversationSnapshot, bool) {
	c := s.lookup(key, false)
	if c == nil {
		return model.ConversationSnapshot{Key: key}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return model.ConversationSnapshot{
		Key:        key,
		History:    append([]model.Turn(nil), c.history...),
		Summary:    c.summary,
		HasSummary: c.hasSummary,
	}, true
}

// Len returns the number of known conversations.
func (s *ContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}
