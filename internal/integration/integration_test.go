package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"course-quiz-bot/internal/app"
	"course-quiz-bot/internal/domain"
	pgstore "course-quiz-bot/internal/infra/postgres"
	pgmigrations "course-quiz-bot/internal/infra/postgres/migrations"
	infraredis "course-quiz-bot/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const questionSet = `{"questions": [
	{"prompt": "What is 2 + 2?", "options": ["3", "4", "5"], "correct_idx": 1},
	{"prompt": "Which keyword starts a goroutine?", "options": ["go", "defer"], "correct_idx": 0, "explanation": "go f()"}
]}`

// recordingTransport hands out poll ids and remembers what was shown.
type recordingTransport struct {
	mu    sync.Mutex
	polls []domain.Presentation
	texts []string
}

func (r *recordingTransport) SendQuiz(_ context.Context, _ int64, p domain.Presentation, _ time.Duration) (domain.SentPoll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, p)
	n := len(r.polls)
	return domain.SentPoll{PollID: fmt.Sprintf("poll-%d", n), MessageID: n}, nil
}

func (r *recordingTransport) StopPoll(context.Context, int64, int) error { return nil }

func (r *recordingTransport) SendText(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingTransport) current() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.polls)
	return fmt.Sprintf("poll-%d", n), r.polls[n-1].CorrectIdx
}

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	source := pgstore.NewQuestionSource(pool)
	if err := source.SaveQuestionSet(ctx, "theory_1", []byte(questionSet)); err != nil {
		t.Fatalf("seed question set: %v", err)
	}
	progress := pgstore.NewProgressStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	transport := &recordingTransport{}
	logger, _ := test.NewNullLogger()
	engine := app.NewEngine(app.DefaultConfig(), app.Deps{
		Sessions:  infraredis.NewSessionStore(redisClient, 5*time.Minute),
		Questions: infraredis.NewQuestionRepository(redisClient, source, 5*time.Minute),
		Tests:     app.NewTestRegistry([]domain.TestMeta{{Code: "theory_1", Title: "Theory 1"}}),
		Transport: transport,
		Progress:  progress,
		Logger:    logger,
	})
	defer engine.Close()

	dialogues := infraredis.NewDialogueStore(redisClient, 5*time.Minute)
	const userID = int64(1001)
	err = engine.StartQuiz(ctx, app.StartRequest{
		Student:  domain.Student{ID: userID, Username: "alice", FullName: "Alice"},
		ChatID:   userID,
		TestCode: "theory_1",
		Dialogue: dialogues.Handle(userID),
	})
	if err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if n, _ := redisClient.Exists(ctx, "quiz:questions:theory_1", "quiz:session:1001").Result(); n != 2 {
		t.Fatalf("expected cached question set and session mirror, got %d keys", n)
	}

	for i := 0; i < 2; i++ {
		pollID, correct := transport.current()
		if !engine.HandleAnswer(ctx, pollID, []int{correct}) {
			t.Fatalf("answer %d was not accepted", i+1)
		}
	}

	passed, err := progress.PassedCodes(ctx, userID)
	if err != nil {
		t.Fatalf("passed codes: %v", err)
	}
	if !passed["theory_1"] {
		t.Fatalf("expected theory_1 to be passed, got %v", passed)
	}
	points, err := progress.TotalPoints(ctx, userID)
	if err != nil {
		t.Fatalf("total points: %v", err)
	}
	if points != app.DefaultConfig().PassReward {
		t.Fatalf("expected %d points, got %d", app.DefaultConfig().PassReward, points)
	}
	if running, _ := dialogues.Running(ctx, userID); running {
		t.Fatalf("expected dialogue state to be cleared")
	}
	if n, _ := redisClient.Exists(ctx, "quiz:session:1001").Result(); n != 0 {
		t.Fatalf("expected session mirror to be removed")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "bot", "POSTGRES_PASSWORD": "botpass", "POSTGRES_DB": "coursebot"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://bot:botpass@%s:%s/coursebot?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
