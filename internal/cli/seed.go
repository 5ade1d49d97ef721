package cli

import (
	"context"
	"fmt"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/config"
	"course-quiz-bot/internal/infra/filesystem"
	pgstore "course-quiz-bot/internal/infra/postgres"
	"course-quiz-bot/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd copies the question-set files of the registry into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Validate question-set files and store them in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	files := filesystem.NewSource(cfg.Quiz.ContentRoot)
	store := pgstore.NewQuestionSource(pool)
	for _, meta := range cfg.Tests {
		raw, err := files.LoadQuestionSet(ctx, meta)
		if err != nil {
			return fmt.Errorf("read %s: %w", meta.Code, err)
		}
		questions, err := app.ParseQuestionSet(meta.Code, raw)
		if err != nil {
			return err
		}
		if err := store.SaveQuestionSet(ctx, meta.Code, raw); err != nil {
			return fmt.Errorf("save %s: %w", meta.Code, err)
		}
		log.WithField("test", meta.Code).WithField("questions", len(questions)).Info("question set seeded")
	}
	return nil
}
