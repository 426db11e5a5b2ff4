package nlp

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikey/spam-classifier/internal/core"
)

// Normalizer turns raw message text into terms
type Normalizer struct {
	lemmatizer *Lemmatizer
}

// NewNormalizer creates a normalizer. A nil lemmatizer leaves tokens as they are.
func NewNormalizer(lemmatizer *Lemmatizer) *Normalizer {
	return &Normalizer{lemmatizer: lemmatizer}
}

// Normalize lowercases text, strips everything outside [a-z0-9 .,'], splits on
// whitespace and lemmatizes each token.
func (n *Normalizer) Normalize(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", core.ErrInput)
	}

	tokens := strings.Fields(Clean(text))
	if n.lemmatizer != nil {
		for i, token := range tokens {
			tokens[i] = n.lemmatizer.Lemma(token)
		}
	}
	return tokens, nil
}

// Clean lowercases text and replaces each run of disallowed characters with a
// single space.
func Clean(text string) string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	inRun := false
	for _, r := range lower {
		if allowed(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte(' ')
			inRun = true
		}
	}
	return b.String()
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '.', r == ',', r == '\'':
		return true
	}
	return false
}
