package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	pgstore "quizmaster-service/internal/infra/postgres"
	redisstore "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/logging"
	"quizmaster-service/internal/metrics"
	transport "quizmaster-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format))

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
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	var db *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		db = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL))), pgdialect.New())
		defer db.Close()
	}

	loader, err := quizLoader(cfg, pool)
	if err != nil {
		return err
	}
	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, config.Duration(cfg.Redis.TTL, 2*time.Hour))
	} else {
		sessions = memory.NewSessionStore()
	}

	var results app.ResultsStore
	switch {
	case db != nil:
		results = pgstore.NewResultsStore(db)
	case redisClient != nil:
		results = redisstore.NewResultsStore(redisClient, config.Duration(cfg.Redis.ResultsTTL, 0))
	default:
		results = memory.NewResultsStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := transport.NewHub()
	defaults := app.DefaultTimings()
	registry := app.NewRegistry(app.RegistryConfig{
		Sessions: sessions,
		Results:  results,
		Notifier: hub,
		Timings: app.Timings{
			EarlyEndGrace: config.Duration(cfg.Game.EarlyEndGrace, defaults.EarlyEndGrace),
			RevealDelay:   config.Duration(cfg.Game.RevealDelay, defaults.RevealDelay),
			AdvanceDelay:  config.Duration(cfg.Game.AdvanceDelay, defaults.AdvanceDelay),
			StartDelay:    config.Duration(cfg.Game.StartDelay, defaults.StartDelay),
		},
		LobbyIdleTimeout: config.Duration(cfg.Game.LobbyIdleTimeout, app.DefaultLobbyIdleTimeout),
		Metrics:          m,
	})
	service := app.NewGameService(registry, quizRepo, hub, m)
	wsHandler := transport.NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runJanitor(janitorCtx, registry, config.Duration(cfg.Game.PruneInterval, time.Minute))

	go func() {
		slog.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	stopJanitor()
	registry.Wait()
	return err
}

// quizLoader prefers postgres, then the configured library file, then the
// built-in sample quiz.
func quizLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuizLoader, error) {
	if pool != nil {
		return pgstore.NewQuizLoader(pool), nil
	}
	if cfg.Quiz.Library != "" {
		f, err := os.Open(cfg.Quiz.Library)
		if err != nil {
			return nil, fmt.Errorf("open quiz library: %w", err)
		}
		defer f.Close()
		return memory.ReadQuizLibrary(f)
	}
	return memory.NewStaticQuizLoader(sampleQuizzes()), nil
}

// runJanitor prunes idle lobbies until ctx is done.
func runJanitor(ctx context.Context, registry *app.Registry, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			registry.PruneIdleLobbies()
		case <-ctx.Done():
			return
		}
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text:          "What is 2 + 2?",
					Type:          domain.MultipleChoice,
					Difficulty:    domain.Easy,
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: []byte(`1`),
				},
			},
		},
	}
}
