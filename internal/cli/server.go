package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/config"
	"course-quiz-bot/internal/infra/filesystem"
	"course-quiz-bot/internal/infra/memory"
	pgstore "course-quiz-bot/internal/infra/postgres"
	redisstore "course-quiz-bot/internal/infra/redis"
	"course-quiz-bot/internal/logging"
	transport "course-quiz-bot/internal/transport/http"
	"course-quiz-bot/internal/transport/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token not configured")
	}

	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source memory.ContentSource = filesystem.NewSource(cfg.Quiz.ContentRoot)
	if pool != nil {
		source = pgstore.NewQuestionSource(pool)
	}

	contentTTL := config.TTLDuration(cfg.Quiz.ContentTTL, 10*time.Minute)
	var questions app.QuestionRepository
	var sessions app.SessionRegistry
	var dialogues telegram.Dialogues
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, source, contentTTL)
		sessions = redisstore.NewSessionStore(redisClient, redisTTL)
		dialogues = redisstore.NewDialogueStore(redisClient, redisTTL)
	} else {
		questions = memory.NewQuestionRepository(source, contentTTL)
		sessions = memory.NewSessionStore()
		dialogues = memory.NewDialogueStore()
	}

	var progress app.ProgressStore = memory.NewProgressStore()
	if pool != nil {
		progress = pgstore.NewProgressStore(pool)
	}

	_ = tgbotapi.SetLogger(log)
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug
	log.WithField("bot", bot.Self.UserName).Info("authorized on telegram")

	hub := transport.NewHub()
	engine := app.NewEngine(engineConfig(cfg), app.Deps{
		Sessions:  sessions,
		Questions: questions,
		Tests:     app.NewTestRegistry(cfg.Tests),
		Transport: telegram.NewTransport(bot),
		Progress:  progress,
		Notifier:  app.Notifiers{hub, telegram.NewAdminNotifier(bot, cfg.Telegram.AdminIDs, log)},
		Logger:    log,
	})
	defer engine.Close()

	router := telegram.NewRouter(bot, engine, dialogues, progress, log)
	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		router.Run(ctx, bot)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/admin", transport.NewFeedHandler(hub, cfg.Feed.Token, log).ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	<-routerDone
	return err
}

// engineConfig overlays the configured quiz settings on the defaults.
func engineConfig(cfg config.Config) app.Config {
	out := app.DefaultConfig()
	out.TimePerQuestion = config.TTLDuration(cfg.Quiz.TimePerQuestion, out.TimePerQuestion)
	out.Grace = config.TTLDuration(cfg.Quiz.Grace, out.Grace)
	if cfg.Quiz.PassThresholdPct > 0 {
		out.PassThresholdPct = cfg.Quiz.PassThresholdPct
	}
	if cfg.Quiz.PassReward > 0 {
		out.PassReward = cfg.Quiz.PassReward
	}
	if cfg.Quiz.SendAttempts > 0 {
		out.SendAttempts = cfg.Quiz.SendAttempts
	}
	return out
}
