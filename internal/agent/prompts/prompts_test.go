package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersona(t *testing.T) {
	assert.NotEmpty(t, DefaultPersona())
	assert.Equal(t, DefaultPersona(), Persona("   "))
	assert.Equal(t, "You are a triage nurse.", Persona(" You are a triage nurse. "))
}

func TestSummaryInstruction(t *testing.T) {
	assert.Equal(t, "Conversation summary:\nback pain for 3 days", SummaryInstruction("back pain for 3 days"))
}

func TestRenderSummaryRequest(t *testing.T) {
	transcript := "user: my dose is {10mg}?\nassistant: ask your doctor"
	msgs, err := RenderSummaryRequest(context.Background(), transcript)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, strings.TrimSpace(summarySystemPrompt), msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, transcript, msgs[1].Content)
}
