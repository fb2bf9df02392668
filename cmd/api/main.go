package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/cedarbaum/runstreak.app/internal/config"
	"github.com/cedarbaum/runstreak.app/internal/http/routes"
	"github.com/cedarbaum/runstreak.app/internal/store"
	"github.com/cedarbaum/runstreak.app/internal/throttle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Printf("starting api on :%s", cfg.Port)

	// DB
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()
	st := store.New(pool)

	// Sessions
	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	// Background job client
	tasks := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := tasks.Close(); err != nil {
			logger.Error().Err(err).Msg("closing task client")
		}
	}()

	// Per-athlete Strava request budget
	budget := throttle.New(pool, cfg.Strava.DailyAPILimit)

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:      sess,
		Store:     st,
		Registrar: st,
		Tasks:     tasks,
		Budget:    budget,
		Cfg:       cfg,
		Log:       logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	log.Fatal(srv.ListenAndServe())
}
