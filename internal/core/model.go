package core

import (
	"time"
)

// Label is the binary class of a message
type Label int

const (
	// NotSpam is the negative class
	NotSpam Label = 0
	// Spam is the positive class
	Spam Label = 1
)

// spamCategory is the only raw category value mapped to Spam
const spamCategory = "spam"

// ParseLabel maps a raw category to a Label. Only the exact value "spam" is
// spam, every other non-empty value is not spam.
func ParseLabel(category string) (Label, bool) {
	if category == "" {
		return NotSpam, false
	}
	if category == spamCategory {
		return Spam, true
	}
	return NotSpam, true
}

// String returns the display name of the label
func (l Label) String() string {
	if l == Spam {
		return "SPAM"
	}
	return "NOT_SPAM"
}

// Document is a labeled message from a training corpus
type Document struct {
	Text  string
	Label Label
}

// Corpus is an ordered sequence of documents
type Corpus []Document

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// SpamAnalysisResult represents the result of spam analysis
type SpamAnalysisResult struct {
	IsSpam      bool
	Score       float64
	Explanation string
	AnalyzedAt  time.Time
	ModelUsed   string
}

// CacheEntry is a cached classification keyed by message content and model
type CacheEntry struct {
	Key       string
	ModelID   string
	IsSpam    bool
	Score     float64
	LastSeen  time.Time
	ExpiresAt time.Time
}
