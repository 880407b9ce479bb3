package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/handler"
	"clinic-booking-api/internal/logging"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/ratelimit"
	"clinic-booking-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logging.Init()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatalw("bad reference timezone", "tz", cfg.Timezone, "err", err)
	}

	// database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("db connect", "err", err)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatalw("db ping", "err", err)
	}
	logger.Info("connected to postgres")

	// run migrations
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		logger.Warnw("migration file not found, skipping", "err", err)
	} else if _, err := pool.Exec(context.Background(), string(migration)); err != nil {
		logger.Warnw("migration", "err", err)
	} else {
		logger.Info("migration applied")
	}

	clock := clockwork.NewRealClock()
	st := store.NewPostgres(pool, loc)

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL, clock)
	gate := auth.NewGate(st, auth.BcryptHasher{}, codec, logger)
	limiter := ratelimit.NewLoginLimiter(clock, logger)
	throttle := ratelimit.NewThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst)
	bookings := booking.NewService(st, clock, loc, logger)

	h := handler.New(gate, bookings, limiter, throttle, middleware.RemoteHostKey, logger)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Infow("http listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http", "err", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
