package repo

import (
	"context"
	"time"

	"github.com/vmk-assistant/server/internal/agent/model"
	errx "github.com/vmk-assistant/server/internal/core/error"
	logx "github.com/vmk-assistant/server/pkg/logger"
)

const DefaultFieldCap = 1000

// ConversationLog records each completed turn to an append-only sink.
// Recording is best-effort: sink failures are logged, never returned.
type ConversationLog struct {
	sink     model.LogSink
	fieldCap int
	now      func() time.Time
}

// NewConversationLog truncates logged fields to fieldCap characters
// (DefaultFieldCap when fieldCap <= 0).
func NewConversationLog(sink model.LogSink, fieldCap int) *ConversationLog {
	if fieldCap <= 0 {
		fieldCap = DefaultFieldCap
	}
	return &ConversationLog{
		sink:     sink,
		fieldCap: fieldCap,
		now:      time.Now,
	}
}

// Record appends one (input, output) pair for key.
func (l *ConversationLog) Record(ctx context.Context, key, input, output string) {
	if l == nil || l.sink == nil {
		return
	}
	rec := model.LogRecord{
		Timestamp:       l.now().UTC(),
		ConversationKey: key,
		Input:           truncateRunes(input, l.fieldCap),
		Output:          truncateRunes(output, l.fieldCap),
	}
	if err := l.sink.Append(ctx, rec); err != nil {
		logx.Warn().
			Err(errx.LogSink(err)).
			Str("conversation_key", key).
			Msg("failed to record conversation turn")
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
