package router

import (
	"fmt"
	"strings"

	"github.com/promodeal-next/internal/cache"
	"github.com/promodeal-next/internal/config"
	adminhandlers "github.com/promodeal-next/internal/http/handlers/admin"
	publichandlers "github.com/promodeal-next/internal/http/handlers/public"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pd"
	}
	redisClient := cache.Client()
	purchaseRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:purchase", redisPrefix),
		WindowSeconds: cfg.Security.PurchaseRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PurchaseRateLimit.MaxRequests,
		Message:       "too many purchase attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（识别可选的用户身份，供独立访客统计使用）
		public := apiV1.Group("/public")
		public.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			public.GET("/deals", publicHandler.ListDeals)
			public.GET("/deals/:id", publicHandler.GetDeal)
			public.POST("/deals/:id/click", publicHandler.TrackDealClick)
			public.POST("/deals/:id/price", publicHandler.CalculateDealPrice)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/deals/:id/eligibility", publicHandler.CheckDealEligibility)
			user.POST("/deals/:id/purchases",
				RateLimitMiddleware(redisClient, purchaseRule, KeyByUserID),
				publicHandler.RecordDealPurchase,
			)
			user.GET("/me/deal-purchases", publicHandler.ListMyDealPurchases)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.AdminJWT.SecretKey))
		{
			admin.GET("/deals", adminHandler.ListDeals)
			admin.GET("/deals/expiring", adminHandler.ListExpiringDeals)
			admin.POST("/deals", adminHandler.CreateDeal)
			admin.GET("/deals/:id", adminHandler.GetDeal)
			admin.PUT("/deals/:id", adminHandler.UpdateDeal)
			admin.DELETE("/deals/:id", adminHandler.DeleteDeal)
			admin.POST("/deals/:id/products", adminHandler.AddDealProducts)
			admin.DELETE("/deals/:id/products/:product_id", adminHandler.RemoveDealProduct)
			admin.GET("/deals/:id/analytics", adminHandler.GetDealAnalytics)
			admin.GET("/deals/:id/purchases", adminHandler.ListDealPurchases)
			admin.POST("/deals/lifecycle/sweep", adminHandler.RunLifecycleSweep)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
