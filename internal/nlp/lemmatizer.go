package nlp

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

//go:embed verb_exceptions.txt
var verbExceptionsData string

//go:embed verbs.txt
var verbsData string

// verbRule is a morphological substitution applied to the end of a token
type verbRule struct {
	suffix  string
	replace string
	// undouble also tries the stem with a doubled final consonant reduced,
	// e.g. "stopped" -> "stopp" -> "stop"
	undouble bool
}

// verbRules are tried in order; among accepted candidates the shortest wins
var verbRules = []verbRule{
	{suffix: "s", replace: ""},
	{suffix: "ies", replace: "y"},
	{suffix: "es", replace: "e"},
	{suffix: "es", replace: ""},
	{suffix: "ed", replace: "e"},
	{suffix: "ed", replace: "", undouble: true},
	{suffix: "ing", replace: "e"},
	{suffix: "ing", replace: "", undouble: true},
}

// Lexicon reports whether a word is a verb base form
type Lexicon interface {
	Contains(word string) bool
}

// WordSet is an in-memory Lexicon
type WordSet map[string]struct{}

// NewWordSet builds a WordSet from words
func NewWordSet(words ...string) WordSet {
	set := make(WordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Contains implements Lexicon
func (s WordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// NewVerbSet returns the embedded list of English verb base forms
func NewVerbSet() WordSet {
	var words []string
	for _, line := range strings.Split(verbsData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	return NewWordSet(words...)
}

// FormIndex maps an inflected word to a dictionary base form of any part of
// speech. Its answers are candidates only and still pass the Lexicon.
type FormIndex interface {
	LemmaLower(word string) string
}

// Lemmatizer reduces tokens toward their verb base form. It holds no mutable
// state and is safe for concurrent use.
type Lemmatizer struct {
	lexicon    Lexicon
	forms      FormIndex
	exceptions map[string]string
}

// NewLemmatizer creates a lemmatizer that validates rule output against lexicon
func NewLemmatizer(lexicon Lexicon) *Lemmatizer {
	return &Lemmatizer{
		lexicon:    lexicon,
		exceptions: parseExceptions(verbExceptionsData),
	}
}

// NewEnglishLemmatizer creates a lemmatizer over the embedded verb list. The
// golem English dictionary proposes irregular base forms the rules miss.
func NewEnglishLemmatizer() (*Lemmatizer, error) {
	lem, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load english dictionary: %w", err)
	}
	l := NewLemmatizer(NewVerbSet())
	l.forms = lem
	return l, nil
}

func parseExceptions(data string) map[string]string {
	exceptions := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		exceptions[fields[0]] = fields[1]
	}
	return exceptions
}

// Lemma returns the verb base form of token, or token itself when it has none
func (l *Lemmatizer) Lemma(token string) string {
	if base, ok := l.exceptions[token]; ok {
		return base
	}
	if !isWord(token) {
		return token
	}

	best := ""
	for _, rule := range verbRules {
		if !strings.HasSuffix(token, rule.suffix) {
			continue
		}
		stem := token[:len(token)-len(rule.suffix)]
		candidate := stem + rule.replace
		if !l.accept(candidate) {
			if !rule.undouble || !endsWithDoubledConsonant(stem) {
				continue
			}
			candidate = stem[:len(stem)-1]
			if !l.accept(candidate) {
				continue
			}
		}
		if best == "" || len(candidate) < len(best) {
			best = candidate
		}
	}

	// base forms stay as they are unless a rule fired
	if best == "" && l.forms != nil && !l.accept(token) {
		if candidate := l.forms.LemmaLower(token); candidate != token && l.accept(candidate) {
			best = candidate
		}
	}

	if best == "" {
		return token
	}
	return best
}

func (l *Lemmatizer) accept(candidate string) bool {
	return candidate != "" && l.lexicon != nil && l.lexicon.Contains(candidate)
}

// isWord reports whether token consists only of ASCII letters
func isWord(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 'a' || token[i] > 'z' {
			return false
		}
	}
	return true
}

func endsWithDoubledConsonant(stem string) bool {
	n := len(stem)
	if n < 2 || stem[n-1] != stem[n-2] {
		return false
	}
	return !strings.ContainsRune("aeiou", rune(stem[n-1]))
}
