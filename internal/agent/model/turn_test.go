package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnMessage(t *testing.T) {
	msgs := Messages([]Turn{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "q", Seq: 1},
		{Role: RoleAssistant, Content: "a", Seq: 2},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "a", msgs[2].Content)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(schema.Assistant)
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	_, err = ParseRole(schema.Tool)
	assert.Error(t, err)
	assert.False(t, Role("moderator").Valid())
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(1_000_000, 500_000, ResolvePricing("openai/gpt-4o"))
	assert.InDelta(t, 2.50, in, 1e-9)
	assert.InDelta(t, 5.00, out, 1e-9)
	assert.InDelta(t, 7.50, total, 1e-9)

	_, _, total = ComputeCost(1000, 1000, ResolvePricing("unknown/model"))
	assert.Zero(t, total)
}
