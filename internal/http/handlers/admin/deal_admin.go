package admin

import (
	"strconv"
	"time"

	handlershared "github.com/promodeal-next/internal/http/handlers/shared"
	"github.com/promodeal-next/internal/http/response"
	"github.com/promodeal-next/internal/repository"
	"github.com/promodeal-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateDeal 创建活动
func (h *Handler) CreateDeal(c *gin.Context) {
	var input service.CreateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "request payload invalid", err)
		return
	}

	deal, err := h.DealService.CreateDeal(input)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, deal)
}

// UpdateDeal 更新活动
func (h *Handler) UpdateDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	var input service.UpdateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, response.CodeBadRequest, "request payload invalid", err)
		return
	}

	deal, err := h.DealService.UpdateDeal(dealID, input)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, deal)
}

// DeleteDeal 删除活动（仅待开始状态允许）
func (h *Handler) DeleteDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	if err := h.DealService.DeleteDeal(dealID); err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetDeal 获取活动详情
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
	response.Success(c, detail)
}

// ListDeals 分页获取活动列表
func (h *Handler) ListDeals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.DealListFilter{
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		PageSize: pageSize,
	}
	if categoryID, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil {
		filter.CategoryID = uint(categoryID)
	}

	deals, total, err := h.DealService.ListDeals(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "deal list failed", err)
		return
	}
	response.SuccessWithPage(c, deals, response.NewPagination(page, pageSize, total))
}

// addDealProductsRequest 活动商品入参
type addDealProductsRequest struct {
	Products []service.AddProductInput `json:"products" binding:"required"`
}

// AddDealProducts 批量添加活动商品
func (h *Handler) AddDealProducts(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	var req addDealProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "request payload invalid", err)
		return
	}

	items, err := h.DealService.AddProducts(dealID, req.Products)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, items)
}

// RemoveDealProduct 移除单个活动商品
func (h *Handler) RemoveDealProduct(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "product id invalid", nil)
		return
	}

	if err := h.DealService.RemoveProduct(dealID, uint(productID)); err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetDealAnalytics 获取活动统计报表
func (h *Handler) GetDealAnalytics(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	report, err := h.AnalyticsService.GetAnalytics(dealID)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, report)
}

// ListDealPurchases 分页获取活动购买流水
func (h *Handler) ListDealPurchases(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	purchases, total, err := h.PurchaseService.ListPurchasesByDeal(dealID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "purchase list failed", err)
		return
	}
	response.SuccessWithPage(c, purchases, response.NewPagination(page, pageSize, total))
}

// ListExpiringDeals 获取指定时间窗口内即将结束的进行中活动
func (h *Handler) ListExpiringDeals(c *gin.Context) {
	withinHours, err := strconv.Atoi(c.DefaultQuery("within_hours", "24"))
	if err != nil || withinHours <= 0 {
		respondError(c, response.CodeBadRequest, "within_hours invalid", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	deals, err := h.LifecycleService.ListExpiringSoon(time.Now(), time.Duration(withinHours)*time.Hour, limit)
	if err != nil {
		respondDealError(c, err)
		return
	}
	response.Success(c, deals)
}

// RunLifecycleSweep 手动触发一轮生命周期巡检
func (h *Handler) RunLifecycleSweep(c *gin.Context) {
	activated, ended, err := h.LifecycleService.Sweep(time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "lifecycle sweep failed", err)
		return
	}
	response.Success(c, gin.H{
		"activated": activated,
		"ended":     ended,
	})
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
