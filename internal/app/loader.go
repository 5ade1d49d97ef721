package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"course-quiz-bot/internal/domain"
)

// rawQuestion accepts both the current key names and the legacy short ones.
type rawQuestion struct {
	Prompt      *string         `json:"prompt"`
	Q           *string         `json:"q"`
	Options     json.RawMessage `json:"options"`
	CorrectIdx  json.RawMessage `json:"correct_idx"`
	Explanation string          `json:"explanation"`
	Why         string          `json:"why"`
}

// ParseQuestionSet decodes and validates a question-set document.
// The document is either a bare array or an object holding the array under
// "questions", "items" or "data".
func ParseQuestionSet(testCode string, raw []byte) ([]domain.Question, error) {
	items, err := questionItems(raw)
	if err != nil {
		return nil, &domain.ContentError{TestCode: testCode, Reason: "malformed document", Err: err}
	}
	if len(items) == 0 {
		return nil, &domain.ContentError{TestCode: testCode, Reason: "no questions"}
	}

	out := make([]domain.Question, 0, len(items))
	for i, item := range items {
		q, reason := parseQuestion(item)
		if reason != "" {
			return nil, &domain.ContentError{TestCode: testCode, Reason: fmt.Sprintf("question #%d: %s", i+1, reason)}
		}
		out = append(out, q)
	}
	return out, nil
}

func questionItems(raw []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"questions", "items", "data"} {
		body, ok := wrapper[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("no questions array")
}

func parseQuestion(raw json.RawMessage) (domain.Question, string) {
	var item rawQuestion
	if err := json.Unmarshal(raw, &item); err != nil {
		return domain.Question{}, "not an object"
	}

	prompt := item.Prompt
	if prompt == nil {
		prompt = item.Q
	}
	if prompt == nil || strings.TrimSpace(*prompt) == "" {
		return domain.Question{}, "empty prompt"
	}

	var options []string
	if err := json.Unmarshal(item.Options, &options); err != nil {
		return domain.Question{}, "invalid options"
	}
	if len(options) < domain.MinOptions || len(options) > domain.MaxOptions {
		return domain.Question{}, fmt.Sprintf("needs %d-%d options, got %d", domain.MinOptions, domain.MaxOptions, len(options))
	}

	var correct int
	if err := json.Unmarshal(item.CorrectIdx, &correct); err != nil {
		return domain.Question{}, "invalid correct_idx"
	}
	if correct < 0 || correct >= len(options) {
		return domain.Question{}, fmt.Sprintf("correct_idx %d out of range", correct)
	}

	explanation := item.Explanation
	if explanation == "" {
		explanation = item.Why
	}
	return domain.Question{
		Prompt:      *prompt,
		Options:     options,
		CorrectIdx:  correct,
		Explanation: explanation,
	}, ""
}
