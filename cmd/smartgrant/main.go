package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/smartgrant-oss/app/internal/common"
	"github.com/smartgrant-oss/app/internal/expert"
	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/server"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env 파일은 선택 사항
	_ = godotenv.Load()

	if err := common.InitConfig(os.Getenv("SMARTGRANT_CONFIG")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := common.NewLogger("smartgrant")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rootCmd := &cobra.Command{
		Use:     "smartgrant",
		Short:   "SmartGrant - Multi-agent grant review CLI",
		Long:    `SmartGrant is a command-line interface for running multi-agent grant review cycles and expert recommendation.`,
		Version: fmt.Sprintf("%s (built at %s)", Version, BuildTime),
	}

	// serve 명령어
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review API server",
		Long:  `Start the HTTP API server exposing review, expert recommendation and chat endpoints.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logger)
		},
	}

	// health 명령어
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check application health status",
		Long:  `Check if the application configuration is usable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.GetConfig().Validate(); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(buildReviewCommands(logger))
	rootCmd.AddCommand(buildExpertCommands(logger))
	rootCmd.AddCommand(buildProjectCommands(logger))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}

// runServe는 API 서버를 시작하고 종료 신호까지 대기합니다.
func runServe(logger *zap.Logger) error {
	cfg := common.GetConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("Starting SmartGrant server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("transport_mode", cfg.ResolveTransportMode()),
	)

	repo, cleanup, err := initStorage(logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer cleanup()

	completer, err := gateway.NewCompleter(logger.Named("gateway"), cfg)
	if err != nil {
		return err
	}

	registry := review.NewRegistry(cfg.OpenRouter.Models)
	orch := review.NewOrchestrator(logger.Named("review"), completer, repo, repo, registry)

	search := expert.NewTavilyClient(cfg.Tavily.APIKey,
		expert.WithTavilyBaseURL(cfg.Tavily.BaseURL),
		expert.WithTavilyMaxResults(cfg.Tavily.MaxResults),
		expert.WithTavilyLogger(logger.Named("tavily")),
	)
	recommender := expert.NewRecommender(logger.Named("expert"), completer, search, repo, registry.ExpertHunter().Model)

	apiServer := server.NewServer(logger.Named("server"), cfg.Server.Addr, orch, recommender, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
		cancel()
	case err := <-errChan:
		logger.Error("Server error", zap.Error(err))
		cancel()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// initStorage는 설정에 따라 데이터베이스를 열고 Repository를 준비합니다.
func initStorage(logger *zap.Logger) (*storage.Repository, func(), error) {
	cfg, err := storage.ConfigFromEnv()
	if err != nil {
		return nil, func() {}, err
	}

	db, err := storage.Open(cfg)
	if err != nil {
		return nil, func() {}, err
	}

	if err := storage.AutoMigrate(db); err != nil {
		_ = storage.Close(db)
		return nil, func() {}, err
	}

	repo, err := storage.NewRepository(db)
	if err != nil {
		_ = storage.Close(db)
		return nil, func() {}, err
	}

	cleanup := func() {
		if err := storage.Close(db); err != nil {
			logger.Warn("Failed to close storage", zap.Error(err))
		}
	}

	return repo, cleanup, nil
}

// newCompleter는 일회성 CLI 명령용 Completer를 생성합니다.
func newCompleter(logger *zap.Logger) (gateway.Completer, *common.Config, error) {
	cfg := common.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	completer, err := gateway.NewCompleter(logger.Named("gateway"), cfg)
	if err != nil {
		return nil, nil, err
	}
	return completer, cfg, nil
}
