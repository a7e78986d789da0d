package service

import (
	"fmt"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"
)

// LifecycleService 活动生命周期巡检：
// 待开始 → 进行中 → 已结束，单向推进，重复执行安全。
type LifecycleService struct {
	dealRepo      repository.DealRepository
	analyticsRepo repository.DealAnalyticsRepository
	notifier      Notifier
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(dealRepo repository.DealRepository, analyticsRepo repository.DealAnalyticsRepository, notifier Notifier) *LifecycleService {
	return &LifecycleService{
		dealRepo:      dealRepo,
		analyticsRepo: analyticsRepo,
		notifier:      notifier,
	}
}

// ActivateScheduledDeals 将到点的待开始活动置为进行中，返回推进数量。
// 没有新的符合条件活动时为空操作，允许重叠调度。
func (s *LifecycleService) ActivateScheduledDeals(now time.Time) (int64, error) {
	count, ids, err := s.dealRepo.ActivateDue(now)
	if err != nil {
		return 0, fmt.Errorf("activate scheduled deals: %w", err)
	}
	if count > 0 {
		logger.Infow("deals_activated", "count", count, "deal_ids", ids)
		s.notifyAll(ids, constants.NotifyEventDealActivated)
	}
	return count, nil
}

// EndExpiredDeals 将过期活动置为已结束，返回推进数量。
// 结束的同时把统计侧的库存快照校准到活动行的最终值。
func (s *LifecycleService) EndExpiredDeals(now time.Time) (int64, error) {
	count, ids, err := s.dealRepo.EndExpired(now)
	if err != nil {
		return 0, fmt.Errorf("end expired deals: %w", err)
	}
	if count > 0 {
		logger.Infow("deals_ended", "count", count, "deal_ids", ids)
		s.reconcileStock(ids)
		s.notifyAll(ids, constants.NotifyEventDealEnded)
	}
	return count, nil
}

// ListExpiringSoon 获取在指定时间窗口内即将结束的进行中活动
func (s *LifecycleService) ListExpiringSoon(now time.Time, window time.Duration, limit int) ([]models.Deal, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrDealInvalid)
	}
	return s.dealRepo.ListExpiringBefore(now.Add(window), limit)
}

// Sweep 执行一轮完整巡检（先结束过期，再激活到点）
func (s *LifecycleService) Sweep(now time.Time) (activated, ended int64, err error) {
	ended, err = s.EndExpiredDeals(now)
	if err != nil {
		return 0, 0, err
	}
	activated, err = s.ActivateScheduledDeals(now)
	if err != nil {
		return 0, ended, err
	}
	return activated, ended, nil
}

// reconcileStock 将统计行的剩余库存对齐到活动行，失败只记日志不中断巡检
func (s *LifecycleService) reconcileStock(dealIDs []uint) {
	if s.analyticsRepo == nil {
		return
	}
	for _, id := range dealIDs {
		deal, err := s.dealRepo.GetByID(id)
		if err != nil || deal == nil {
			logger.Warnw("deal_stock_reconcile_skipped", "deal_id", id, "error", err)
			continue
		}
		if err := s.analyticsRepo.SyncStock(id, deal.RemainingStock); err != nil {
			logger.Warnw("deal_stock_reconcile_failed", "deal_id", id, "error", err)
		}
	}
}

func (s *LifecycleService) notifyAll(dealIDs []uint, eventType string) {
	if s.notifier == nil {
		return
	}
	for _, id := range dealIDs {
		s.notifier.Notify(id, 0, eventType)
	}
}
