package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/config"
	"github.com/xxxsen/icec/internal/db"
	"github.com/xxxsen/icec/internal/handler"
	"github.com/xxxsen/icec/internal/job"
	"github.com/xxxsen/icec/internal/metrics"
	"github.com/xxxsen/icec/internal/middleware"
	"github.com/xxxsen/icec/internal/render"
	"github.com/xxxsen/icec/internal/repo"
	"github.com/xxxsen/icec/internal/schedule"
	"github.com/xxxsen/icec/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "icec",
		Short: "icec account backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run icec server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.ApplyMigrations(cfg.Database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.ApplyMigrations(cfg.Database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			logutil.GetLogger(cmd.Context()).Info("migrations applied")
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "remove expired pending registrations once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer conn.Close()
			return schedule.RunOnce(cmd.Context(), job.NewPendingCleanupJob(repo.NewPendingRepo(conn), nil))
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("public_base_url", cfg.PublicBaseURL),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
	)

	var recorder metrics.Recorder = metrics.Nop{}
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewCollector(reg)
		metricsServer = metrics.NewServer(cfg.MetricsListen, reg)
	}

	userRepo := repo.NewUserRepo(conn)
	pendingRepo := repo.NewPendingRepo(conn)

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	mailSender := service.NewEmailSender(cfg.Mail)
	secret := []byte(cfg.JWTSecret)

	authService := service.NewAuthService(userRepo, pendingRepo, mailSender, renderer, secret, cfg.PublicBaseURL, service.WithMetrics(recorder))
	resetService := service.NewPasswordResetService(userRepo, mailSender, renderer, secret, cfg.PublicBaseURL, service.WithMetrics(recorder))
	userService := service.NewUserService(userRepo)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService, resetService, renderer),
		Users:     handler.NewUserHandler(userService),
		JWTSecret: secret,
		RateLimit: middleware.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	}

	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewPendingCleanupJob(pendingRepo, recorder), cfg.PendingCleanupCron); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if metricsServer != nil {
		logutil.GetLogger(context.Background()).Info("metrics listening", zap.String("addr", metricsServer.Addr))
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logutil.GetLogger(context.Background()).Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() { _ = metricsServer.Shutdown(context.Background()) }()
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
