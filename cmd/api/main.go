package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chefito-worker/internal/api"
	"chefito-worker/internal/core/ai/gemini"
	"chefito-worker/internal/core/ai/service"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含可選的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("gemini_api_key", config.MaskAPIKey(cfg.Gemini.APIKey)),
		zap.String("gemini_backend", cfg.Gemini.Backend),
		zap.Strings("gemini_api_versions", cfg.Gemini.APIVersions),
		zap.String("nanonets_api_key", config.MaskAPIKey(cfg.Nanonets.APIKey)),
		zap.String("nanonets_model_id", cfg.Nanonets.ModelID),
	)
	if cfg.Gemini.APIKey == "" {
		common.LogWarn("GOOGLE_API_KEY 未設定，/recipes/generate 與 /models 將回傳 500")
	}

	p, err := gemini.NewProvider(context.Background(), &cfg.Gemini, service.KnownVersions(&cfg.Gemini))
	if err != nil {
		common.LogFatal("Failed to initialize generation provider", zap.Error(err))
	}

	services, err := api.NewServices(cfg, p)
	if err != nil {
		common.LogFatal("Failed to initialize services", zap.Error(err))
	}
	defer services.AI.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, services)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
