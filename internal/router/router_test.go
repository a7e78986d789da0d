package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/promodeal-next/internal/config"
	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/provider"
	"github.com/promodeal-next/internal/repository"
	"github.com/promodeal-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRouterTest(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("debug", logger.Options{})

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Deal{}, &models.DealProduct{}, &models.DealPurchase{}, &models.DealAnalytics{}, &models.Product{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.UserJWT.SecretKey = "router-test-secret"
	cfg.AdminJWT.SecretKey = "router-test-admin-secret"

	container := &provider.Container{
		Config:            cfg,
		DealRepo:          repository.NewDealRepository(db),
		DealProductRepo:   repository.NewDealProductRepository(db),
		DealPurchaseRepo:  repository.NewDealPurchaseRepository(db),
		DealAnalyticsRepo: repository.NewDealAnalyticsRepository(db),
		ProductRepo:       repository.NewProductRepository(db),
		UserRepo:          repository.NewUserRepository(db),
	}
	container.PricingService = service.NewPricingService()
	container.EligibilityService = service.NewEligibilityService()
	container.DealService = service.NewDealService(container.DealRepo, container.ProductRepo, container.DealProductRepo, container.DealAnalyticsRepo)
	container.PurchaseService = service.NewPurchaseService(container.DealRepo, container.DealPurchaseRepo, container.UserRepo, container.DealAnalyticsRepo, container.EligibilityService, nil)
	container.LifecycleService = service.NewLifecycleService(container.DealRepo, container.DealAnalyticsRepo, nil)
	container.AnalyticsService = service.NewAnalyticsService(container.DealRepo, container.DealAnalyticsRepo, time.Hour)

	return SetupRouter(cfg, container), db, cfg
}

func seedRouterDeal(t *testing.T, db *gorm.DB) *models.Deal {
	t.Helper()
	now := time.Now()
	deal := &models.Deal{
		Name:               "router deal",
		Type:               constants.DealTypePercentage,
		Status:             constants.DealStatusActive,
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(time.Hour),
		DiscountPercentage: 15,
		TotalStock:         10,
		RemainingStock:     10,
	}
	if err := db.Create(deal).Error; err != nil {
		t.Fatalf("create deal failed: %v", err)
	}
	analytics := &models.DealAnalytics{DealID: deal.ID, InitialStock: 10, StockRemaining: 10}
	if err := db.Create(analytics).Error; err != nil {
		t.Fatalf("create analytics failed: %v", err)
	}
	return deal
}

func TestPublicDealDetailCountsUniqueViewsForAuthenticatedViewer(t *testing.T) {
	r, db, cfg := setupRouterTest(t)
	deal := seedRouterDeal(t, db)

	user := &models.User{Email: "viewer@example.com", LoyaltyTier: constants.LoyaltyTierBronze, Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	token, err := service.GenerateUserToken(cfg.UserJWT.SecretKey, 1, user)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	get := func(authorization string) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/public/deals/%d", deal.ID), nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("http status want 200 got %d", w.Code)
		}
		var resp struct {
			StatusCode int `json:"status_code"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response failed: %v", err)
		}
		if resp.StatusCode != 0 {
			t.Fatalf("status_code want 0 got %d", resp.StatusCode)
		}
	}

	// 同一登录用户两次浏览：总浏览 +2，独立访客 +1
	get("Bearer " + token)
	get("Bearer " + token)
	// 匿名浏览只计总浏览
	get("")
	// 坏令牌按匿名放行，不得 401
	get("Bearer not-a-token")

	var row models.DealAnalytics
	if err := db.Where("deal_id = ?", deal.ID).First(&row).Error; err != nil {
		t.Fatalf("reload analytics failed: %v", err)
	}
	if row.TotalViews != 4 {
		t.Fatalf("expected 4 total views, got %d", row.TotalViews)
	}
	if row.UniqueViews != 1 {
		t.Fatalf("expected 1 unique view for the authenticated viewer, got %d", row.UniqueViews)
	}
}

func TestOptionalUserJWTMiddlewareNeverAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:optional_jwt_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	userRepo := repository.NewUserRepository(db)
	user := &models.User{Email: "opt@example.com", LoyaltyTier: constants.LoyaltyTierBronze, Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	secret := "optional-secret"
	r := gin.New()
	r.Use(OptionalUserJWTMiddleware(secret, userRepo))
	r.GET("/view", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})

	do := func(authorization string) map[string]uint {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/view", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status want 200 got %d", w.Code)
		}
		var resp map[string]uint
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response failed: %v", err)
		}
		return resp
	}

	if resp := do(""); resp["user_id"] != 0 {
		t.Fatalf("anonymous request should carry no user, got %d", resp["user_id"])
	}
	if resp := do("Bearer garbage"); resp["user_id"] != 0 {
		t.Fatalf("invalid token should fall back to anonymous, got %d", resp["user_id"])
	}

	token, err := service.GenerateUserToken(secret, 1, user)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if resp := do("Bearer " + token); resp["user_id"] != user.ID {
		t.Fatalf("valid token should set user, want %d got %d", user.ID, resp["user_id"])
	}
}
