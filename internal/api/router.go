package api

import (
	"fmt"
	"net/http"

	"chefito-worker/internal/api/handlers/health"
	ocrHandler "chefito-worker/internal/api/handlers/ocr"
	recipeHandler "chefito-worker/internal/api/handlers/recipe"
	"chefito-worker/internal/api/middleware"
	"chefito-worker/internal/core/ai/provider"
	"chefito-worker/internal/core/ai/service"
	"chefito-worker/internal/core/ocr"
	recipeService "chefito-worker/internal/core/recipe"
	"chefito-worker/internal/infrastructure/config"
	"chefito-worker/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Content-Type", "Authorization"}
)

// Services 路由使用的服務
type Services struct {
	AI     *service.Service
	Recipe *recipeService.Service
	OCR    *ocr.NanonetsClient
}

// NewServices 以生成式模型提供者組裝所有服務
func NewServices(cfg *config.Config, p provider.Provider) (*Services, error) {
	aiService, err := service.NewService(&cfg.Gemini, p)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	return &Services{
		AI:     aiService,
		Recipe: recipeService.NewService(aiService, cfg),
		OCR:    ocr.NewNanonetsClient(&cfg.Nanonets, &cfg.Image),
	}, nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc *Services) (*gin.Engine, error) {
	if svc == nil || svc.AI == nil || svc.Recipe == nil || svc.OCR == nil {
		return nil, fmt.Errorf("services are not initialized")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	// CORS：任何來源，不帶憑證
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    corsMethods,
		AllowHeaders:    corsHeaders,
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg)
	router.GET("/", healthHandler.HealthCheck)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// 上游呼叫的路由才套用限流與去重
	upstream := router.Group("/")
	if cfg.RateLimit.Enabled {
		upstream.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	upstream.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		recipes := recipeHandler.NewHandler(svc.Recipe, svc.AI, cfg.Gemini.APIKey)
		upstream.GET("/models", recipes.HandleListModels)
		upstream.POST("/recipes/generate", recipes.HandleGenerateRecipes)

		ocrHandlerInstance := ocrHandler.NewHandler(svc.OCR)
		upstream.POST("/nanonets/parse", ocrHandlerInstance.HandleParse)
		upstream.POST("/ocr/parse", ocrHandlerInstance.HandleParse)
	}

	// 沒有 Origin 的預檢請求不會被 cors 中間件攔截
	router.OPTIONS("/*path", handlePreflight)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	common.LogInfo("Router setup completed successfully",
		zap.String("gemini_backend", cfg.Gemini.Backend),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

func handlePreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
	c.AbortWithStatus(http.StatusNoContent)
}
