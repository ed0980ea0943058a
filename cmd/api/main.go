package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/noah-isme/smart-attendance/api/swagger"
	"github.com/noah-isme/smart-attendance/internal/handler"
	"github.com/noah-isme/smart-attendance/internal/repository"
	"github.com/noah-isme/smart-attendance/internal/service"
	"github.com/noah-isme/smart-attendance/pkg/cache"
	"github.com/noah-isme/smart-attendance/pkg/config"
	"github.com/noah-isme/smart-attendance/pkg/database"
	"github.com/noah-isme/smart-attendance/pkg/logger"
	"github.com/noah-isme/smart-attendance/pkg/notify"
	"github.com/noah-isme/smart-attendance/pkg/qrcode"
	"github.com/noah-isme/smart-attendance/pkg/storage"
)

// @title Smart Attendance API
// @version 1.0.0
// @description Attendance sessions with QR, code and NFC redemption.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis, logr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	notifier, stopNotifier, err := notify.FromConfig(ctx, cfg.Notify, logr)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	defer stopNotifier()

	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	sessions := repository.NewSessionRepository(db)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if _, _, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	userSvc := service.NewUserService(users, validate, logr)
	courseSvc := service.NewCourseService(courses, users, validate, logr)
	reportSvc := service.NewReportService(sessions, validate, logr)
	sessionSvc := service.NewSessionService(service.SessionDependencies{
		Sessions:  sessions,
		Courses:   courses,
		Cards:     userSvc,
		Registry:  repository.NewCodeRegistry(redisClient, logr),
		Codec:     qrcode.NewCodec(cfg.QR.Size, cfg.QR.Recovery),
		Signer:    storage.NewLinkSigner(cfg.QR.LinkSecret, cfg.QR.LinkTTL),
		Codes:     service.NewRandomCodeGenerator(cfg.Sessions.CodeLength),
		Notifier:  notifier,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	}, service.SessionConfig{
		DefaultTTL:        cfg.Sessions.DefaultTTL,
		MaxTTL:            cfg.Sessions.MaxTTL,
		CodeAttempts:      cfg.Sessions.CodeAttempts,
		RequireEnrollment: cfg.Sessions.RequireEnrollment,
	})

	deps := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		deps["redis"] = cache.Pinger{Client: redisClient}
	}

	router := newRouter(cfg, logr, routes{
		tokens:   authSvc,
		metrics:  metrics,
		auth:     handler.NewAuthHandler(authSvc),
		users:    handler.NewUserHandler(userSvc),
		courses:  handler.NewCourseHandler(courseSvc),
		sessions: handler.NewSessionHandler(sessionSvc, cfg.APIPrefix),
		reports:  handler.NewReportHandler(reportSvc),
		health:   handler.NewMetricsHandler(metrics, deps),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
