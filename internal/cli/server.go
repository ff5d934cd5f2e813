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
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/memory"
	"trivia-quiz-service/internal/infra/postgres"
	rediscache "trivia-quiz-service/internal/infra/redis"
	"trivia-quiz-service/internal/play"
	transport "trivia-quiz-service/internal/transport/http"
	"trivia-quiz-service/internal/trivia"
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

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	var health []transport.Pinger

	var (
		sessions app.SessionRepository
		results  app.ResultRepository
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		resultStore := postgres.NewResultStore(pool)
		sessions = postgres.NewSessionStore(db)
		results = resultStore
		health = append(health, resultStore)
	} else {
		log.Printf("postgres url not configured, using in-memory stores")
		store := memory.NewStore()
		sessions, results = store, store
	}

	triviaClient := trivia.NewClient(
		&http.Client{Timeout: config.TTLDuration(cfg.Trivia.Timeout, 10*time.Second)},
		trivia.WithBaseURL(cfg.Trivia.BaseURL),
	)
	categoriesTTL := config.TTLDuration(cfg.Quiz.CategoriesTTL, time.Hour)

	var (
		categories app.CategoryRepository
		resume     play.ResumeCache
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		categories = rediscache.NewCategoryRepository(redisClient, triviaClient, categoriesTTL)
		resume = rediscache.NewResumeCache(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		health = append(health, redisPinger{redisClient})
	} else {
		categories = memory.NewCategoryRepository(triviaClient, categoriesTTL)
		resume = memory.NewResumeCache()
	}

	service := app.NewQuizService(sessions, results, categories)
	wsHandler := transport.NewWSHandler(triviaClient, service, resume,
		transport.WithQuizDuration(config.TTLDuration(cfg.Quiz.Duration, play.DefaultDuration)),
	)

	router := transport.NewRouter(transport.RouterDeps{
		Service:  service,
		WS:       wsHandler,
		Verifier: issuer,
		Health:   health,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia quiz service on :%s", finalPort)
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

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
