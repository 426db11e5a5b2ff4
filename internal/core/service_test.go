package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikey/spam-classifier/internal/utils"
	"github.com/mikey/spam-classifier/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	modelID string
	score   float64
	err     error
	calls   int
	texts   []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (*SpamAnalysisResult, error) {
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &SpamAnalysisResult{
		IsSpam:      f.score >= 0,
		Score:       f.score,
		Explanation: "fake",
		AnalyzedAt:  time.Now(),
		ModelUsed:   f.modelID,
	}, nil
}

func (f *fakeClassifier) ModelID() string {
	return f.modelID
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]CacheEntry)}
}

func (c *mapCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return &entry, nil
}

func (c *mapCache) Set(_ context.Context, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = *entry
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(context.Context) error {
	return nil
}

func newTestService(c Classifier, cache CacheRepository, threshold float64, domains ...string) *SpamFilterService {
	logger := zap.NewNop()
	return NewSpamFilterService(
		c, cache, logger,
		true, time.Hour, threshold,
		whitelist.NewChecker(domains, logger),
		utils.NewTextProcessor(logger),
		16,
	)
}

func TestAnalyzeEmailAppliesThreshold(t *testing.T) {
	c := &fakeClassifier{modelID: "m1", score: 0.4}

	result, err := newTestService(c, nil, 0).AnalyzeEmail(context.Background(), &Email{Body: "win money"})
	require.NoError(t, err)
	assert.True(t, result.IsSpam)
	assert.Equal(t, "m1", result.ModelUsed)

	result, err = newTestService(c, nil, 0.5).AnalyzeEmail(context.Background(), &Email{Body: "win money"})
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
}

func TestAnalyzeEmailTruncatesBody(t *testing.T) {
	c := &fakeClassifier{modelID: "m1", score: -1}
	_, err := newTestService(c, nil, 0).AnalyzeEmail(context.Background(), &Email{Body: "0123456789abcdefghijklmnop"})
	require.NoError(t, err)
	require.Len(t, c.texts, 1)
	assert.Equal(t, "0123456789abcdef", c.texts[0])
}

func TestAnalyzeEmailWhitelist(t *testing.T) {
	c := &fakeClassifier{modelID: "m1", score: 5}
	svc := newTestService(c, nil, 0, "example.com")

	result, err := svc.AnalyzeEmail(context.Background(), &Email{From: "alice@example.com", Body: "win money"})
	require.NoError(t, err)
	assert.False(t, result.IsSpam)
	assert.Equal(t, "whitelist", result.ModelUsed)
	assert.False(t, svc.IsSpam(result))
	assert.Zero(t, c.calls)
}

func TestAnalyzeEmailUsesCachePerModel(t *testing.T) {
	c := &fakeClassifier{modelID: "m1", score: 2}
	cache := newMapCache()
	svc := newTestService(c, cache, 0)
	email := &Email{Body: "win money"}

	first, err := svc.AnalyzeEmail(context.Background(), email)
	require.NoError(t, err)
	second, err := svc.AnalyzeEmail(context.Background(), email)
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, "Result from cache", second.Explanation)

	// a new model must not reuse the old model's verdicts
	c.modelID = "m2"
	c.score = -2
	third, err := svc.AnalyzeEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, 2, c.calls)
	assert.False(t, third.IsSpam)
	assert.Equal(t, "m2", third.ModelUsed)
}

func TestAnalyzeEmailPropagatesErrors(t *testing.T) {
	c := &fakeClassifier{modelID: "", err: ErrMissingArtifact}
	cache := newMapCache()

	_, err := newTestService(c, cache, 0).AnalyzeEmail(context.Background(), &Email{Body: "hello"})
	assert.ErrorIs(t, err, ErrMissingArtifact)
	assert.Empty(t, cache.entries)
}

func TestParseLabel(t *testing.T) {
	label, ok := ParseLabel("spam")
	assert.True(t, ok)
	assert.Equal(t, Spam, label)

	label, ok = ParseLabel("ham")
	assert.True(t, ok)
	assert.Equal(t, NotSpam, label)

	// only the exact lowercase value is spam
	label, ok = ParseLabel("Spam")
	assert.True(t, ok)
	assert.Equal(t, NotSpam, label)

	_, ok = ParseLabel("")
	assert.False(t, ok)

	assert.Equal(t, "SPAM", Spam.String())
	assert.Equal(t, "NOT_SPAM", NotSpam.String())
}
