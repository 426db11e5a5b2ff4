package model

import (
	"testing"
	"time"

	"github.com/mikey/spam-classifier/internal/core"
	"github.com/mikey/spam-classifier/internal/features"
	"github.com/mikey/spam-classifier/internal/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T) *Model {
	t.Helper()

	vocab, err := features.NewVocabulary([]string{"meet", "money", "win"})
	require.NoError(t, err)
	weights, err := svm.NewWeights([]float64{-1, 0.5, 1}, -0.2)
	require.NoError(t, err)

	m, err := New(vocab, weights)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := testModel(t)

	assert.NotEmpty(t, m.ID())
	assert.WithinDuration(t, time.Now(), m.CreatedAt(), time.Minute)
	assert.Equal(t, 3, m.Vocabulary().Size())
	assert.Equal(t, 3, m.Weights().Dim())

	other := testModel(t)
	assert.NotEqual(t, m.ID(), other.ID())
}

func TestRestoreRejectsMismatch(t *testing.T) {
	vocab, err := features.NewVocabulary([]string{"a", "b"})
	require.NoError(t, err)
	weights, err := svm.NewWeights([]float64{1, 2, 3}, 0)
	require.NoError(t, err)

	_, err = Restore("id", time.Now(), vocab, weights)
	assert.ErrorIs(t, err, core.ErrModelCorrupt)

	_, err = Restore("id", time.Now(), nil, weights)
	assert.ErrorIs(t, err, core.ErrModelCorrupt)

	_, err = Restore("", time.Now(), vocab, nil)
	assert.ErrorIs(t, err, core.ErrModelCorrupt)
}

func TestClassify(t *testing.T) {
	m := testModel(t)

	d, err := m.Classify([]string{"win", "money", "win", "lottery"})
	require.NoError(t, err)
	assert.Equal(t, core.Spam, d.Label)
	assert.InDelta(t, 2.3, d.Score, 1e-9)
	assert.Equal(t, 2, d.KnownTerms)
	require.Len(t, d.Contributions, 2)
	assert.Equal(t, "win", d.Contributions[0].Term)
	assert.Equal(t, 2, d.Contributions[0].Count)

	d, err = m.Classify([]string{"meet"})
	require.NoError(t, err)
	assert.Equal(t, core.NotSpam, d.Label)
}

func TestPredictEmptyInputUsesBias(t *testing.T) {
	m := testModel(t)

	label, err := m.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, core.NotSpam, label)

	label, err = m.Predict([]string{"unseen", "words"})
	require.NoError(t, err)
	assert.Equal(t, core.NotSpam, label)
}
