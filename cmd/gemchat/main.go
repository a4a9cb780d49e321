package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gemchat/internal/ai"
	"github.com/xxxsen/gemchat/internal/config"
	"github.com/xxxsen/gemchat/internal/handler"
	"github.com/xxxsen/gemchat/internal/job"
	"github.com/xxxsen/gemchat/internal/repo"
	"github.com/xxxsen/gemchat/internal/schedule"
	"github.com/xxxsen/gemchat/internal/service"
)

const (
	// One generation request per client and endpoint per second; guards
	// against double-submits from the client.
	chatRateWindow  = time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "gemchat",
		Short: "gemchat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run gemchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db, cfg.DB.MigrationsDir); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
	)

	conversationRepo := repo.NewConversationRepo(db, cfg.DB.Driver)
	messageRepo := repo.NewMessageRepo(db, cfg.DB.Driver)
	cacheRepo := repo.NewCachedResponseRepo(db, cfg.DB.Driver)
	uploadRepo := repo.NewUploadedFileRepo(db, cfg.DB.Driver)

	generator, err := ai.NewProvider(cfg.AI.Provider, cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}

	conversationService := service.NewConversationService(conversationRepo, messageRepo)
	chatService := service.NewChatService(
		conversationService,
		messageRepo,
		cacheRepo,
		uploadRepo,
		generator,
		cfg.AI.Model,
		cfg.Cache.TTLDays,
		cfg.AI.TimeoutSec,
	)
	exportService := service.NewExportService(conversationRepo, messageRepo)

	router := handler.NewRouter(handler.RouterDeps{
		Chat:           handler.NewChatHandler(chatService),
		Conversations:  handler.NewConversationHandler(conversationService, exportService),
		CORSOrigins:    cfg.CORSOrigins,
		ChatRateWindow: chatRateWindow,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := schedule.New()
	if err := sched.Add(job.NewUploadCleanupJob(uploadRepo), "17 * * * *"); err != nil {
		return fmt.Errorf("schedule upload cleanup: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: router,
	}
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
