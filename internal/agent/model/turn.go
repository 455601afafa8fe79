package model

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// Role is the closed set of message authors a conversation can hold.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ParseRole converts an eino role into a Role.
func ParseRole(rt schema.RoleType) (Role, error) {
	r := Role(rt)
	if !r.Valid() {
		return "", fmt.Errorf("unsupported role %q", rt)
	}
	return r, nil
}

// Turn is one immutable message in a conversation.
// Seq is monotonic per conversation starting at 1; synthetic system turns
// assembled for a prompt carry 0.
type Turn struct {
	Role    Role
	Content string
	Seq     int64
}

// Message converts the turn into the eino message the chat models consume.
func (t Turn) Message() *schema.Message {
	switch t.Role {
	case RoleSystem:
		return schema.SystemMessage(t.Content)
	case RoleAssistant:
		return schema.AssistantMessage(t.Content, nil)
	default:
		return schema.UserMessage(t.Content)
	}
}

// Messages converts a prompt into eino messages, preserving order.
func Messages(turns []Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Message())
	}
	return out
}
