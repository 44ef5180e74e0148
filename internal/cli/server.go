package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"readnex-service/internal/app"
	"readnex-service/internal/config"
	"readnex-service/internal/domain"
	"readnex-service/internal/infra/memory"
	pgloader "readnex-service/internal/infra/postgres"
	redisinfra "readnex-service/internal/infra/redis"
	"readnex-service/internal/infra/restapi"
	transport "readnex-service/internal/transport/http"
)

const defaultBackendURL = "http://localhost:8000"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session and quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := logrus.New()

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
	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 0))

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, quizTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, quizTTL)
	}

	var credStore app.CredentialStore
	if redisClient != nil {
		credStore = redisinfra.NewCredentialStore(redisClient, "", sessionTTL)
	} else {
		credStore = memory.NewCredentialStore()
	}

	backendURL := cfg.Backend.URL
	if backendURL == "" {
		backendURL = defaultBackendURL
	}
	backendTimeout := config.TTLDuration(cfg.Backend.Timeout, 15*time.Second)
	backend := restapi.NewClient(backendURL, backendTimeout)

	sessions := app.NewSessionManager(credStore, backend, log)
	// Resolve the initial session state before anything can consult a guard.
	snap := sessions.Restore(ctx)
	log.WithField("state", snap.State.String()).Info("session restored")

	attempts := memory.NewAttemptStore()
	quizzes := app.NewQuizService(questionRepo, attempts)

	wsHandler := transport.NewWSHandler(quizzes, log)
	sessionHandler := transport.NewSessionHandler(sessions, attempts, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/quiz", wsHandler.ServeWS)
	sessionHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting readnex service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a demo quiz when no Postgres is configured.
func sampleQuestions() map[string][]domain.QuizQuestion {
	return map[string][]domain.QuizQuestion{
		"book-1": {
			{
				ID:            "q1",
				Question:      "Who narrates the opening chapter?",
				Options:       []string{"The captain", "The stowaway", "The librarian", "The cartographer"},
				CorrectAnswer: 1,
				Explanation:   "The stowaway's diary frames the whole story.",
				Difficulty:    "easy",
				Category:      "plot",
			},
			{
				ID:            "q2",
				Question:      "What does the map in chapter three actually show?",
				Options:       []string{"A trade route", "The harbor defenses", "The way home", "Nothing at all"},
				CorrectAnswer: 3,
				Explanation:   "The map is blank; the crew projects their hopes onto it.",
				Difficulty:    "medium",
				Category:      "themes",
			},
		},
	}
}
