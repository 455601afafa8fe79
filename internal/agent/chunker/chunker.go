// Package chunker splits long replies into transport-sized pieces.
package chunker

// DefaultMaxLen is the Telegram message size limit.
const DefaultMaxLen = 4096

// Split cuts text into consecutive pieces of at most maxLen characters.
// Boundaries are fixed-size and ignore words; joining the result yields text.
// Empty text yields an empty slice; maxLen <= 0 means DefaultMaxLen.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if text == "" {
		return []string{}
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+maxLen-1)/maxLen)
	for start := 0; start < len(runes); start += maxLen {
		end := min(start+maxLen, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
