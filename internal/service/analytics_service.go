package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promodeal-next/internal/cache"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"

	"github.com/shopspring/decimal"
)

// AnalyticsService 活动统计服务。浏览与点击为尽力而为的计数，
// 不参与购买事务，竞态下允许丢增量。
type AnalyticsService struct {
	dealRepo      repository.DealRepository
	analyticsRepo repository.DealAnalyticsRepository
	viewDedupTTL  time.Duration

	// Redis 不可用时的独立访客去重兜底
	mu        sync.Mutex
	seenViews map[string]time.Time
}

// NewAnalyticsService 创建活动统计服务
func NewAnalyticsService(dealRepo repository.DealRepository, analyticsRepo repository.DealAnalyticsRepository, viewDedupTTL time.Duration) *AnalyticsService {
	if viewDedupTTL <= 0 {
		viewDedupTTL = 24 * time.Hour
	}
	return &AnalyticsService{
		dealRepo:      dealRepo,
		analyticsRepo: analyticsRepo,
		viewDedupTTL:  viewDedupTTL,
		seenViews:     make(map[string]time.Time),
	}
}

// DealAnalyticsReport 活动统计报表，比率读取时计算，不落库
type DealAnalyticsReport struct {
	DealID            uint         `json:"deal_id"`
	TotalViews        int          `json:"total_views"`
	UniqueViews       int          `json:"unique_views"`
	Clicks            int          `json:"clicks"`
	TotalPurchases    int          `json:"total_purchases"`
	TotalRevenue      models.Money `json:"total_revenue"`
	InitialStock      int          `json:"initial_stock"`
	StockRemaining    int          `json:"stock_remaining"`
	ClickThroughRate  float64      `json:"click_through_rate"`
	ConversionRate    float64      `json:"conversion_rate"`
	SellThroughRate   float64      `json:"sell_through_rate"`
	AverageOrderValue models.Money `json:"average_order_value"`
}

// TrackView 记录一次浏览。userID 非零时做窗口内独立访客去重。
func (s *AnalyticsService) TrackView(ctx context.Context, dealID, userID uint) error {
	unique := false
	if userID != 0 {
		unique = s.isFirstView(ctx, dealID, userID)
	}
	if err := s.analyticsRepo.IncrementView(dealID, unique); err != nil {
		return err
	}
	return s.dealRepo.IncrementViews(dealID)
}

// TrackClick 记录一次点击
func (s *AnalyticsService) TrackClick(dealID uint) error {
	if err := s.analyticsRepo.IncrementClick(dealID); err != nil {
		return err
	}
	return s.dealRepo.IncrementClicks(dealID)
}

// GetAnalytics 读取活动统计并计算衍生比率
func (s *AnalyticsService) GetAnalytics(dealID uint) (*DealAnalyticsReport, error) {
	row, err := s.analyticsRepo.GetByDeal(dealID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrDealNotFound
	}

	report := &DealAnalyticsReport{
		DealID:         row.DealID,
		TotalViews:     row.TotalViews,
		UniqueViews:    row.UniqueViews,
		Clicks:         row.Clicks,
		TotalPurchases: row.TotalPurchases,
		TotalRevenue:   row.TotalRevenue,
		InitialStock:   row.InitialStock,
		StockRemaining: row.StockRemaining,
	}

	if row.TotalViews > 0 {
		report.ClickThroughRate = float64(row.Clicks) / float64(row.TotalViews) * 100
	}
	if row.UniqueViews > 0 {
		report.ConversionRate = float64(row.TotalPurchases) / float64(row.UniqueViews) * 100
	}
	if row.InitialStock > 0 {
		report.SellThroughRate = float64(row.InitialStock-row.StockRemaining) / float64(row.InitialStock) * 100
	}
	if row.TotalPurchases > 0 {
		aov := row.TotalRevenue.Div(decimal.NewFromInt(int64(row.TotalPurchases)))
		report.AverageOrderValue = models.NewMoneyFromDecimal(aov)
	}
	return report, nil
}

// isFirstView 判断是否为去重窗口内的首次浏览。
// 优先走 Redis SETNX，缓存不可用时退化为进程内去重。
func (s *AnalyticsService) isFirstView(ctx context.Context, dealID, userID uint) bool {
	key := fmt.Sprintf("deal:view:%d:%d", dealID, userID)
	if cache.Enabled() {
		first, err := cache.SetNX(ctx, key, 1, s.viewDedupTTL)
		if err == nil {
			return first
		}
		logger.Warnw("deal_view_dedup_failed", "deal_id", dealID, "user_id", userID, "error", err)
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if seen, ok := s.seenViews[key]; ok && now.Sub(seen) < s.viewDedupTTL {
		return false
	}
	s.seenViews[key] = now
	if len(s.seenViews) > 100000 {
		for k, seen := range s.seenViews {
			if now.Sub(seen) >= s.viewDedupTTL {
				delete(s.seenViews, k)
			}
		}
	}
	return true
}
