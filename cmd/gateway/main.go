package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/cache"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	config.LoadDotEnv()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	var store quiz.Store = quiz.NewSQLStore(dbh, cfg.DBDriver)

	// --- Optional catalog cache ---
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("[gateway] catalog cache disabled: %v", err)
		} else {
			defer rc.Close()
			store = quiz.NewCachedStore(store, rc, cfg.CatalogCacheTTL)
			log.Printf("[gateway] catalog cache on %s (ttl=%s)", cfg.RedisAddr, cfg.CatalogCacheTTL)
		}
	}

	// --- Attempt events: always logged, optionally published ---
	events := syncx.NewEventRepo(dbh)
	var pub syncx.Publisher
	if cfg.AMQPURL != "" {
		mq, err := syncx.NewRabbitMQClient(cfg.AMQPURL)
		if err != nil {
			log.Printf("[gateway] event publishing disabled: %v", err)
		} else {
			defer mq.Close()
			pub = mq
			log.Printf("[gateway] publishing attempt events to queue %q", cfg.AMQPQueue)
		}
	}
	emitter := syncx.NewEmitter(events, pub, cfg.AMQPQueue, cfg.SiteID)

	svc := quiz.NewService(store, emitter, rbac.NewPolicy(nil))
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.AuthTokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Quizzes:         svc,
		Users:           users.NewStore(dbh),
		Auth:            authSvc,
		Events:          events,
		DB:              dbh,
		EnableLocalAuth: cfg.EnableLocalAuth,
		AllowClaimRole:  cfg.Mode == config.ModeOffline,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s, site=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.SiteID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[gateway] shutdown: %v", err)
	}
	log.Println("gateway stopped")
}
