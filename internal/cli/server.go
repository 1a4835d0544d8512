package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	pgloader "live-quiz-service/internal/infra/postgres"
	redisinfra "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/stream"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
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
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	var scores app.ScoreLedger
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		scores = redisinfra.NewScoreLedger(redisClient)
	} else {
		store = memory.NewSessionStore()
		scores = memory.NewScoreLedger()
	}

	registry := stream.NewRegistry()
	timing := app.Timing{
		StartDelay:       config.Duration(cfg.Session.StartDelay, 2*time.Second),
		QuestionInterval: config.Duration(cfg.Session.QuestionInterval, 10*time.Second),
	}
	service := app.NewSessionService(store, quizRepo, scores, registry, timing)

	idleTimeout := config.Duration(cfg.Session.IdleTimeout, 5*time.Minute)
	handler := transport.NewStreamHandler(service, registry, idleTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal quiz set for running without Postgres.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:    1,
			Title: "General knowledge",
			Questions: []domain.Question{
				{
					ID:    10,
					Title: "What is 2 + 2?",
					Answers: []domain.Answer{
						{No: 1, Content: "3"},
						{No: 2, Content: "4", Correct: true},
						{No: 3, Content: "5"},
					},
				},
				{
					ID:    11,
					Title: "Which planet is closest to the sun?",
					Answers: []domain.Answer{
						{No: 1, Content: "Mercury", Correct: true},
						{No: 2, Content: "Venus"},
						{No: 3, Content: "Mars"},
					},
				},
			},
		},
	}
}
