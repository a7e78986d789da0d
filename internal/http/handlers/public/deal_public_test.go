package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/provider"
	"github.com/promodeal-next/internal/repository"
	"github.com/promodeal-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPublicHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Deal{}, &models.DealProduct{}, &models.DealPurchase{}, &models.DealAnalytics{}, &models.Product{}); err != nil {
		t.Fatalf("migrate test database failed: %v", err)
	}
	models.DB = db

	container := &provider.Container{
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
	container.AnalyticsService = service.NewAnalyticsService(container.DealRepo, container.DealAnalyticsRepo, time.Hour)

	return New(container), db
}

func seedPublicDeal(t *testing.T, db *gorm.DB, status string) *models.Deal {
	t.Helper()
	now := time.Now()
	deal := &models.Deal{
		Name:               "public deal",
		Type:               constants.DealTypePercentage,
		Status:             status,
		StartsAt:           now.Add(-time.Hour),
		EndsAt:             now.Add(time.Hour),
		DiscountPercentage: 25,
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

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp
}

func TestCalculateDealPrice(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	deal := seedPublicDeal(t, db, constants.DealStatusActive)

	r := gin.New()
	r.POST("/deals/:id/price", h.CalculateDealPrice)

	w := httptest.NewRecorder()
	body := `{"unit_price": 100, "quantity": 2}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/deals/%d/price", deal.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var quote struct {
		TotalOriginal string `json:"total_original"`
		TotalFinal    string `json:"total_final"`
		Savings       string `json:"savings"`
	}
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		t.Fatalf("unmarshal quote failed: %v", err)
	}
	if quote.TotalOriginal != "200.00" {
		t.Fatalf("total_original want 200.00 got %s", quote.TotalOriginal)
	}
	if quote.TotalFinal != "150.00" {
		t.Fatalf("total_final want 150.00 got %s", quote.TotalFinal)
	}
	if quote.Savings != "50.00" {
		t.Fatalf("savings want 50.00 got %s", quote.Savings)
	}
}

func TestCalculateDealPriceInactiveDeal(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	deal := seedPublicDeal(t, db, constants.DealStatusEnded)

	r := gin.New()
	r.POST("/deals/:id/price", h.CalculateDealPrice)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/deals/%d/price", deal.ID), strings.NewReader(`{"unit_price": 100, "quantity": 1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 409 {
		t.Fatalf("status_code want 409 got %d", resp.StatusCode)
	}
}

func TestGetDealTracksView(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	deal := seedPublicDeal(t, db, constants.DealStatusActive)

	r := gin.New()
	r.GET("/deals/:id", h.GetDeal)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/deals/%d", deal.ID), nil)
	r.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	var row models.DealAnalytics
	if err := db.Where("deal_id = ?", deal.ID).First(&row).Error; err != nil {
		t.Fatalf("reload analytics failed: %v", err)
	}
	if row.TotalViews != 1 {
		t.Fatalf("expected view to be tracked, got %d", row.TotalViews)
	}
}

func TestGetDealNotFound(t *testing.T) {
	h, _ := setupPublicHandlerTest(t)

	r := gin.New()
	r.GET("/deals/:id", h.GetDeal)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/deals/9999", nil)
	r.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 404 {
		t.Fatalf("status_code want 404 got %d", resp.StatusCode)
	}
}

func TestRecordDealPurchaseEndToEnd(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	deal := seedPublicDeal(t, db, constants.DealStatusActive)
	user := &models.User{Email: "h@example.com", LoyaltyTier: constants.LoyaltyTierBronze, Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	r := gin.New()
	r.POST("/deals/:id/purchases", func(c *gin.Context) {
		c.Set("user_id", user.ID)
		h.RecordDealPurchase(c)
	})

	w := httptest.NewRecorder()
	body := `{"order_no": "H-1", "quantity": 1, "purchase_price": 75, "discount_applied": 25}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/deals/%d/purchases", deal.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	var reloaded models.Deal
	if err := db.First(&reloaded, deal.ID).Error; err != nil {
		t.Fatalf("reload deal failed: %v", err)
	}
	if reloaded.RemainingStock != 9 {
		t.Fatalf("expected remaining stock 9, got %d", reloaded.RemainingStock)
	}

	// 资格不满足时返回 403 业务码
	if err := db.Model(&models.Deal{}).Where("id = ?", deal.ID).Update("remaining_stock", 0).Error; err != nil {
		t.Fatalf("drain stock failed: %v", err)
	}
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/deals/%d/purchases", deal.ID), strings.NewReader(`{"order_no": "H-2", "quantity": 1, "purchase_price": 75}`))
	req2.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w2, req2)

	resp2 := decodeEnvelope(t, w2)
	if resp2.StatusCode != 403 {
		t.Fatalf("status_code want 403 got %d (%s)", resp2.StatusCode, resp2.Msg)
	}
}
