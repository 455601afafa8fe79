package prompts

import (
	_ "embed"
	"strings"
)

//go:embed template/persona.txt
var defaultPersona string

// SummaryPrefix introduces the rolling summary inside a prompt.
const SummaryPrefix = "Conversation summary:\n"

// DefaultPersona returns the built-in persona instruction.
func DefaultPersona() string {
	return strings.TrimSpace(defaultPersona)
}

// Persona returns override when non-blank, otherwise the built-in persona.
func Persona(override string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	return DefaultPersona()
}

// SummaryInstruction wraps a stored summary for inclusion as a system turn.
func SummaryInstruction(summary string) string {
	return SummaryPrefix + summary
}
