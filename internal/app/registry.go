package app

import "course-quiz-bot/internal/domain"

// TestRegistry is the ordered catalogue of tests offered to students.
type TestRegistry struct {
	tests []domain.TestMeta
	byKey map[string]domain.TestMeta
}

func NewTestRegistry(tests []domain.TestMeta) *TestRegistry {
	r := &TestRegistry{byKey: make(map[string]domain.TestMeta, len(tests))}
	for _, t := range tests {
		if _, dup := r.byKey[t.Code]; dup || t.Code == "" {
			continue
		}
		r.tests = append(r.tests, t)
		r.byKey[t.Code] = t
	}
	return r
}

func (r *TestRegistry) Get(code string) (domain.TestMeta, bool) {
	t, ok := r.byKey[code]
	return t, ok
}

func (r *TestRegistry) All() []domain.TestMeta {
	out := make([]domain.TestMeta, len(r.tests))
	copy(out, r.tests)
	return out
}

// Unlocked reports whether the prerequisite of t is among the passed codes.
func Unlocked(t domain.TestMeta, passed map[string]bool) bool {
	return t.DependsOn == "" || passed[t.DependsOn]
}
