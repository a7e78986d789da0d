package public

import (
	"strconv"
	"time"

	handlershared "github.com/promodeal-next/internal/http/handlers/shared"
	"github.com/promodeal-next/internal/http/response"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"
	"github.com/promodeal-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListDeals 获取活动列表（支持状态/类型/分类/推荐筛选）
func (h *Handler) ListDeals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.DealListFilter{
		Status:     c.Query("status"),
		Type:       c.Query("type"),
		Keyword:    c.Query("keyword"),
		Page:       page,
		PageSize:   pageSize,
	}
	if categoryID, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil {
		filter.CategoryID = uint(categoryID)
	}
	if c.Query("featured") != "" {
		featured := c.Query("featured") == "true" || c.Query("featured") == "1"
		filter.IsFeatured = &featured
	}

	deals, total, err := h.DealService.ListDeals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "deal list failed", err)
		return
	}

	response.SuccessWithPage(c, deals, response.NewPagination(page, pageSize, total))
}

// GetDeal 获取活动详情（附状态摘要），同时记录一次浏览
func (h *Handler) GetDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	detail, err := h.DealService.GetDeal(dealID, time.Now())
	if err != nil {
		respondDealError(c, err)
		return
	}

	// 浏览计数为旁路行为，失败不影响详情返回
	userID := optionalUserID(c)
	if err := h.AnalyticsService.TrackView(c.Request.Context(), dealID, userID); err != nil {
		requestLog(c).Warnw("deal_track_view_failed", "deal_id", dealID, "error", err)
	}

	response.Success(c, detail)
}

// TrackDealClick 记录一次活动点击
func (h *Handler) TrackDealClick(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	if err := h.AnalyticsService.TrackClick(dealID); err != nil {
		requestLog(c).Warnw("deal_track_click_failed", "deal_id", dealID, "error", err)
	}
	response.Success(c, nil)
}

// calculatePriceRequest 价格试算入参
type calculatePriceRequest struct {
	UnitPrice models.Money `json:"unit_price" binding:"required"`
	Quantity  int          `json:"quantity" binding:"required"`
}

// CalculateDealPrice 活动价格试算
func (h *Handler) CalculateDealPrice(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	var req calculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request payload invalid", err)
		return
	}

	deal, err := h.DealRepo.GetByID(dealID)
	if err != nil {
		respondError(c, response.CodeInternal, "deal fetch failed", err)
		return
	}
	if deal == nil {
		respondError(c, response.CodeNotFound, "deal not found", nil)
		return
	}

	quote, err := h.PricingService.CalculatePrice(deal, req.UnitPrice, req.Quantity)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, quote)
}

// CheckDealEligibility 购买资格预检（仅咨询，不做任何变更）
func (h *Handler) CheckDealEligibility(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.GetContextUint(c, "user_id")
	if !ok {
		return
	}

	quantity, _ := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if quantity <= 0 {
		respondError(c, response.CodeBadRequest, "quantity must be positive", nil)
		return
	}

	verdict, err := h.PurchaseService.CheckEligibility(dealID, userID, quantity, time.Now())
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, verdict)
}

// recordPurchaseRequest 购买记录入参
type recordPurchaseRequest struct {
	OrderNo         string       `json:"order_no" binding:"required"`
	Quantity        int          `json:"quantity" binding:"required"`
	PurchasePrice   models.Money `json:"purchase_price"`
	DiscountApplied models.Money `json:"discount_applied"`
}

// RecordDealPurchase 记录活动购买（资格复核与库存扣减在服务层原子完成）
func (h *Handler) RecordDealPurchase(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.GetContextUint(c, "user_id")
	if !ok {
		return
	}

	var req recordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request payload invalid", err)
		return
	}

	purchase, err := h.PurchaseService.RecordPurchase(service.RecordPurchaseInput{
		DealID:          dealID,
		OrderNo:         req.OrderNo,
		UserID:          userID,
		Quantity:        req.Quantity,
		PurchasePrice:   req.PurchasePrice,
		DiscountApplied: req.DiscountApplied,
	})
	if err != nil {
		respondPurchaseError(c, err)
		return
	}
	response.Success(c, purchase)
}

// ListMyDealPurchases 获取当前用户的活动购买流水
func (h *Handler) ListMyDealPurchases(c *gin.Context) {
	userID, ok := handlershared.GetContextUint(c, "user_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	purchases, total, err := h.PurchaseService.ListPurchasesByUser(userID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "purchase list failed", err)
		return
	}
	response.SuccessWithPage(c, purchases, response.NewPagination(page, pageSize, total))
}

// parseDealID 解析路径中的活动ID
func parseDealID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "deal id invalid", nil)
		return 0, false
	}
	return uint(id), true
}

// optionalUserID 读取可选的用户身份（未登录返回 0）
func optionalUserID(c *gin.Context) uint {
	value, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	switch v := value.(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
