package app

import (
	"math/rand"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"course-quiz-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleOptionsTracksCorrectAnswer(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	options := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	for i := 0; i < 100; i++ {
		correct := i % len(options)
		shuffled, idx := ShuffleOptions(rnd, options, correct)
		require.Len(t, shuffled, len(options))
		assert.Equal(t, options[correct], shuffled[idx])
		assert.ElementsMatch(t, options, shuffled)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "epsilon"}, options, "input must not be mutated")
}

func TestNormalizeClampsToPollLimits(t *testing.T) {
	longPrompt := strings.Repeat("п", 400)
	longOption := strings.Repeat("x", 150)
	p, err := Normalize("Question 1/2:\n", longPrompt, []string{longOption, longOption + "y", "  ", "ok"}, 1, strings.Repeat("e", 250))
	require.NoError(t, err)

	assert.Equal(t, domain.MaxPromptLen, utf8.RuneCountInString(p.Prompt))
	assert.True(t, strings.HasPrefix(p.Prompt, "Question 1/2:\n"))
	assert.True(t, strings.HasSuffix(p.Prompt, "…"))

	require.Len(t, p.Options, 4)
	for _, opt := range p.Options {
		assert.LessOrEqual(t, utf8.RuneCountInString(opt), domain.MaxOptionLen)
	}
	// Both long options collapse to the same text and get told apart.
	assert.NotEqual(t, p.Options[0], p.Options[1])
	assert.True(t, strings.HasSuffix(p.Options[1], " (1)"))
	assert.Equal(t, "Option 3", p.Options[2])
	assert.Equal(t, 1, p.CorrectIdx)

	assert.Equal(t, domain.MaxExplanationLen, utf8.RuneCountInString(p.Explanation))
}

func TestNormalizeRejectsOptionCount(t *testing.T) {
	_, err := Normalize("", "q", []string{"only"}, 0, "")
	require.Error(t, err)

	_, err = Normalize("", "q", make([]string, 11), 0, "")
	require.Error(t, err)
}

func TestPresentPrefixesPosition(t *testing.T) {
	q := domain.Question{Prompt: " Which? ", Options: []string{"a", "b"}, CorrectIdx: 1, Explanation: "because"}
	p, err := Present(rand.New(rand.NewSource(3)), q, 1, 5)
	require.NoError(t, err)

	assert.Equal(t, "Question 2/5:\nWhich?", p.Prompt)
	assert.Equal(t, "b", p.CorrectText())
	assert.Equal(t, "because", p.Explanation)
}

func TestClampOpenPeriod(t *testing.T) {
	assert.Equal(t, domain.MinOpenPeriod, clampOpenPeriod(0))
	assert.Equal(t, domain.MaxOpenPeriod, clampOpenPeriod(domain.MaxOpenPeriod*2))
	assert.Equal(t, 30*time.Second, clampOpenPeriod(30500*time.Millisecond))
}
