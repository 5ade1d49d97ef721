package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"course-quiz-bot/internal/domain"
)

// Source reads question-set JSON files referenced by the test registry.
// Relative paths resolve against Root.
type Source struct {
	Root string
}

func NewSource(root string) *Source {
	return &Source{Root: root}
}

func (s *Source) LoadQuestionSet(_ context.Context, meta domain.TestMeta) ([]byte, error) {
	if meta.File == "" {
		return nil, domain.ErrQuestionSetNotFound
	}
	path := meta.File
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrQuestionSetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
