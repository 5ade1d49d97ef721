package app

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"

	"course-quiz-bot/internal/domain"
)

const ellipsis = "…"

// ShuffleOptions permutes the options and returns the correct index in the new order.
func ShuffleOptions(rnd *rand.Rand, options []string, correctIdx int) ([]string, int) {
	order := rnd.Perm(len(options))
	shuffled := make([]string, len(options))
	newCorrect := -1
	for newPos, oldPos := range order {
		shuffled[newPos] = options[oldPos]
		if oldPos == correctIdx {
			newCorrect = newPos
		}
	}
	return shuffled, newCorrect
}

// Normalize clamps a presentation to Telegram poll limits. Options that collide
// after truncation get a " (k)" suffix; order and therefore the correct index are kept.
func Normalize(prefix, prompt string, options []string, correctIdx int, explanation string) (domain.Presentation, error) {
	room := domain.MaxPromptLen - utf8.RuneCountInString(prefix)
	if room < 1 {
		room = 1
	}

	out := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for i, opt := range options {
		text := strings.TrimSpace(opt)
		if text == "" {
			text = fmt.Sprintf("Option %d", i+1)
		}
		text = clamp(text, domain.MaxOptionLen)
		base := text
		for k := 1; ; k++ {
			if _, dup := seen[text]; !dup {
				break
			}
			suffix := fmt.Sprintf(" (%d)", k)
			text = truncateRunes(base, domain.MaxOptionLen-utf8.RuneCountInString(suffix)) + suffix
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}

	if len(out) < domain.MinOptions || len(out) > domain.MaxOptions {
		return domain.Presentation{}, fmt.Errorf("poll needs %d-%d options, got %d", domain.MinOptions, domain.MaxOptions, len(out))
	}

	exp := strings.TrimSpace(explanation)
	if exp != "" {
		exp = clamp(exp, domain.MaxExplanationLen)
	}

	return domain.Presentation{
		Prompt:      prefix + clamp(strings.TrimSpace(prompt), room),
		Options:     out,
		CorrectIdx:  correctIdx,
		Explanation: exp,
	}, nil
}

// Present scrambles q and renders it as question idx of total.
func Present(rnd *rand.Rand, q domain.Question, idx, total int) (domain.Presentation, error) {
	options, correct := ShuffleOptions(rnd, q.Options, q.CorrectIdx)
	prefix := fmt.Sprintf("Question %d/%d:\n", idx+1, total)
	return Normalize(prefix, q.Prompt, options, correct, q.Explanation)
}

// clamp shortens s to limit runes, ending with an ellipsis when cut.
func clamp(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimRightFunc(truncateRunes(s, limit-1), unicode.IsSpace) + ellipsis
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
