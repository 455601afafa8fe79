package model

import (
	"context"
	"time"
)

// LogRecord is one persisted audit entry for a completed turn.
type LogRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	ConversationKey string    `json:"conversation_key"`
	Input           string    `json:"input"`
	Output          string    `json:"output"`
}

type LogSink interface {
	// Append writes one record to the append-only stream of rec.ConversationKey.
	Append(ctx context.Context, rec LogRecord) error
}

// ConversationSnapshot is a read-only copy of a conversation's state.
type ConversationSnapshot struct {
	Key        string
	History    []Turn
	Summary    string
	HasSummary bool
}
