package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/database"
	"github.com/iliyamo/space-reservation/internal/handler"
	"github.com/iliyamo/space-reservation/internal/queue"
	"github.com/iliyamo/space-reservation/internal/repository"
	"github.com/iliyamo/space-reservation/internal/router"
	"github.com/iliyamo/space-reservation/internal/service"
	"github.com/iliyamo/space-reservation/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("mysql connection failed")
	}
	defer db.Close()

	// Redis is optional: without it the catalog cache and rate limiter
	// are simply disabled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unavailable; response cache and rate limiting disabled")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	spaces := repository.NewSpaceRepo(db)
	reservations := repository.NewReservationRepo(db)
	settings := repository.NewSettingRepo(db)

	// Core services.
	clock := service.SystemClock{}
	availability := service.NewAvailability(reservations)
	cancellation := service.NewCancellationPolicy(settings, clock)
	notifier := queue.NewPublisher(cfg.RabbitURL)
	engine := service.NewReservationService(reservations, spaces, users, availability, cancellation, notifier, clock)

	// Background workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewNoShowSweeper(reservations, clock, cfg.SweepInterval)
	go sweeper.Start(ctx)
	go queue.StartNotificationConsumer(cfg.RabbitURL)

	// HTTP layer.
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	authH := handler.NewAuthHandler(cfg, users, tokens)
	spaceH := handler.NewSpaceHandler(spaces)
	reservationH := handler.NewReservationHandler(engine)
	adminH := handler.NewAdminHandler(engine, settings)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, spaceH, rdb)
	router.RegisterReservations(e, reservationH, cfg.JWTSecret)
	router.RegisterAdmin(e, spaceH, adminH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logrus.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			logrus.WithError(err).Info("http server stopped")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("forced shutdown")
	}
}
