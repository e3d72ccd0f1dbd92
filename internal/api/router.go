package api

import (
	"context"
	"fmt"
	"time"

	"nutriplan/internal/api/handlers"
	chatHandler "nutriplan/internal/api/handlers/chat"
	"nutriplan/internal/api/handlers/health"
	planHandler "nutriplan/internal/api/handlers/plan"
	"nutriplan/internal/api/middleware"
	"nutriplan/internal/core/ai/cache"
	"nutriplan/internal/core/ai/openrouter"
	"nutriplan/internal/core/ai/service"
	chatcore "nutriplan/internal/core/chat"
	"nutriplan/internal/core/mealplan"
	"nutriplan/internal/core/profile"
	"nutriplan/internal/core/suggestion"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB，純文字 API 用不到更多)
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由並組裝服務
func SetupRouter(cfg *config.Config, db *gorm.DB, cacheManager *cache.Manager, redisService *cache.Service) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 初始化 AI 服務
	aiClient := openrouter.NewClient(cfg)
	aiService := service.NewService(cfg, aiClient)
	if aiService == nil {
		return nil, fmt.Errorf("failed to initialize AI service")
	}

	// 初始化存取層與核心服務
	planStore := mealplan.NewGormStore(db)
	profileStore := profile.NewGormStore(db)
	sessionStore := chatcore.NewGormSessionStore(db)
	mutationService := mealplan.NewMutationService(planStore)
	engine := suggestion.NewEngine(cfg, aiService, cacheManager, redisService)

	orchestrator := chatcore.NewOrchestrator(
		chatcore.NewClassifier(),
		chatcore.NewTargetResolver(chatcore.TargetPolicy{
			DefaultMealForDay: cfg.Planner.DefaultMealForDay,
			PreferLargestMeal: cfg.Planner.PreferLargestMeal,
		}),
		engine,
		mutationService,
		aiService,
		planStore,
		profileStore,
		sessionStore,
	)

	common.LogInfo("Services initialized",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Strings("models", cfg.OpenRouter.Models),
		zap.Duration("timeout", timeoutDuration),
	)

	// 全局中間件：設置請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// 健康檢查
	router.GET("/health", health.HealthCheck(cfg))
	router.GET("/health/ready", health.ReadinessCheck(db))
	router.GET("/health/live", health.LivenessCheck)

	// 業務路由
	chatH := chatHandler.NewHandler(orchestrator)
	planH := planHandler.NewHandler(planStore, profileStore, engine, mutationService)

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	v1.Use(middleware.Deduplication(cfg))
	{
		v1.POST("/chat/message", chatH.HandleMessage)
		v1.GET("/plan", planH.GetPlan)
		v1.POST("/plan/replace/suggest", planH.SuggestReplacement)
		v1.POST("/plan/replace/confirm", planH.ConfirmReplacement)
		v1.GET("/cache/stats", handlers.CacheStats(cacheManager))
	}

	common.LogInfo("Router setup complete")
	return router, nil
}
