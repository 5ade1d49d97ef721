package domain

import "time"

// Telegram limits for quiz polls.
const (
	MaxPromptLen      = 300
	MaxOptionLen      = 100
	MaxExplanationLen = 200
	MinOptions        = 2
	MaxOptions        = 10
	MinOpenPeriod     = 5 * time.Second
	MaxOpenPeriod     = 600 * time.Second
)

// TestMeta describes one knowledge-check test from the registry.
type TestMeta struct {
	Code      string `yaml:"code" json:"code"`
	Title     string `yaml:"title" json:"title"`
	File      string `yaml:"file" json:"file"`
	DependsOn string `yaml:"depends_on" json:"dependsOn,omitempty"`
}

// Question models a single-answer multiple choice question as loaded from content.
type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	CorrectIdx  int      `json:"correct_idx"`
	Explanation string   `json:"explanation,omitempty"`
}

// Presentation is one rendering of a question exactly as it is sent to the chat.
type Presentation struct {
	Prompt      string
	Options     []string
	CorrectIdx  int
	Explanation string
}

// CorrectText returns the as-shown text of the correct option.
func (p Presentation) CorrectText() string {
	if p.CorrectIdx < 0 || p.CorrectIdx >= len(p.Options) {
		return ""
	}
	return p.Options[p.CorrectIdx]
}

// SentPoll is what the transport reports back after a poll was delivered.
type SentPoll struct {
	PollID    string
	MessageID int
}

// Student identifies the chat user taking a test.
type Student struct {
	ID       int64
	Username string
	FullName string
}

// Mention renders "@username" or a dash for admin summaries.
func (s Student) Mention() string {
	if s.Username == "" {
		return "-"
	}
	return "@" + s.Username
}

// Outcome names the signal that finalized a question.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeTimedOut Outcome = "timeout"
	OutcomeClosed   Outcome = "closed"
)

// Result is the persisted score of one finished attempt.
type Result struct {
	UserID    int64     `json:"userId"`
	TestCode  string    `json:"testCode"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Passed    bool      `json:"passed"`
	AttemptID string    `json:"attemptId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Percent returns the rounded share of correct answers.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return (r.Correct*100 + r.Total/2) / r.Total
}

// Notice is an operator-facing event emitted by the quiz engine.
type Notice struct {
	Kind   string    `json:"kind"`
	UserID int64     `json:"userId"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Notice kinds.
const (
	NoticeResult    = "result"
	NoticeCancelled = "cancelled"
	NoticeFailure   = "failure"
)
