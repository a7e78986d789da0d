package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/logger"
	"github.com/promodeal-next/internal/models"
	"github.com/promodeal-next/internal/repository"

	"gorm.io/gorm"
)

// PurchaseService 活动购买记录服务：资格复核、原子扣库存、落流水、记统计，
// 全部在同一事务内完成，任一步失败则整体回滚。
type PurchaseService struct {
	dealRepo      repository.DealRepository
	purchaseRepo  repository.DealPurchaseRepository
	userRepo      repository.UserRepository
	analyticsRepo repository.DealAnalyticsRepository
	eligibility   *EligibilityService
	notifier      Notifier
}

// NewPurchaseService 创建活动购买记录服务
func NewPurchaseService(
	dealRepo repository.DealRepository,
	purchaseRepo repository.DealPurchaseRepository,
	userRepo repository.UserRepository,
	analyticsRepo repository.DealAnalyticsRepository,
	eligibility *EligibilityService,
	notifier Notifier,
) *PurchaseService {
	return &PurchaseService{
		dealRepo:      dealRepo,
		purchaseRepo:  purchaseRepo,
		userRepo:      userRepo,
		analyticsRepo: analyticsRepo,
		eligibility:   eligibility,
		notifier:      notifier,
	}
}

// RecordPurchaseInput 购买记录入参
type RecordPurchaseInput struct {
	DealID          uint         `json:"deal_id" binding:"required"`
	OrderNo         string       `json:"order_no" binding:"required"`
	UserID          uint         `json:"user_id" binding:"required"`
	Quantity        int          `json:"quantity" binding:"required"`
	PurchasePrice   models.Money `json:"purchase_price"`
	DiscountApplied models.Money `json:"discount_applied"`
}

// CheckEligibility 按当前库内状态做购买资格预检（仅咨询，不做任何变更）
func (s *PurchaseService) CheckEligibility(dealID, userID uint, quantity int, now time.Time) (EligibilityVerdict, error) {
	deal, err := s.dealRepo.GetByID(dealID)
	if err != nil {
		return EligibilityVerdict{}, err
	}
	if deal == nil {
		return EligibilityVerdict{}, ErrDealNotFound
	}

	tier, purchased, err := s.loadCustomerSnapshot(s.userRepo, s.purchaseRepo, dealID, userID)
	if err != nil {
		return EligibilityVerdict{}, err
	}

	return s.eligibility.CheckEligibility(deal, tier, purchased, quantity, now), nil
}

// RecordPurchase 记录一次活动购买。
// 调用方的预检结果不可信，此处必须基于库内最新状态复核；
// 库存扣减依赖条件更新的行数判定，绝不读改写。
func (s *PurchaseService) RecordPurchase(input RecordPurchaseInput) (*models.DealPurchase, error) {
	if err := validatePurchaseInput(&input); err != nil {
		return nil, err
	}

	// 订单号幂等：同单重放直接返回已有流水
	existing, err := s.purchaseRepo.GetByOrderNo(input.OrderNo)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.DealID == input.DealID && existing.UserID == input.UserID {
			return existing, nil
		}
		return nil, ErrDuplicateOrder
	}

	var purchase *models.DealPurchase
	var verdict EligibilityVerdict
	now := time.Now()

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		dealRepo := s.dealRepo.WithTx(tx)
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)
		analyticsRepo := s.analyticsRepo.WithTx(tx)

		// 第一步：锁行重读活动与用户购买快照。
		// 行锁保证同一用户并发下单时限购复核串行化。
		deal, err := dealRepo.GetByIDForUpdate(input.DealID)
		if err != nil {
			return err
		}
		if deal == nil {
			return ErrDealNotFound
		}

		tier, purchased, err := s.loadCustomerSnapshot(userRepo, purchaseRepo, input.DealID, input.UserID)
		if err != nil {
			return err
		}

		// 第二步：基于最新状态复核资格
		verdict = s.eligibility.CheckEligibility(deal, tier, purchased, input.Quantity, now)
		if !verdict.IsEligible {
			return fmt.Errorf("%w: %s", ErrPurchaseForbidden, strings.Join(verdict.Reasons, "; "))
		}

		// 第三步：条件扣库存，行数为 0 说明并发竞争失败
		ok, err := dealRepo.TryDecrementStock(input.DealID, input.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStockConflict
		}

		// 第四步：落不可变购买流水
		purchase = &models.DealPurchase{
			DealID:          input.DealID,
			UserID:          input.UserID,
			OrderNo:         input.OrderNo,
			Quantity:        input.Quantity,
			PurchasePrice:   input.PurchasePrice,
			DiscountApplied: input.DiscountApplied,
			PurchasedAt:     now,
		}
		if err := purchaseRepo.Create(purchase); err != nil {
			return err
		}

		// 第五步：累加统计计数，库存快照随本次数量相对扣减
		if err := analyticsRepo.RecordPurchase(input.DealID, input.PurchasePrice, input.Quantity); err != nil {
			return err
		}
		return dealRepo.RecordConversion(input.DealID, input.PurchasePrice)
	})
	if err != nil {
		logger.Warnw("deal_purchase_rejected",
			"deal_id", input.DealID,
			"user_id", input.UserID,
			"order_no", input.OrderNo,
			"quantity", input.Quantity,
			"error", err,
		)
		return nil, err
	}

	logger.Infow("deal_purchase_recorded",
		"deal_id", input.DealID,
		"user_id", input.UserID,
		"order_no", input.OrderNo,
		"quantity", input.Quantity,
		"purchase_price", input.PurchasePrice.String(),
	)

	// 通知为旁路行为，失败不回滚购买
	if s.notifier != nil {
		s.notifier.Notify(input.DealID, input.UserID, constants.NotifyEventDealPurchase)
	}
	return purchase, nil
}

// ListPurchasesByDeal 分页获取活动购买流水
func (s *PurchaseService) ListPurchasesByDeal(dealID uint, page, pageSize int) ([]models.DealPurchase, int64, error) {
	return s.purchaseRepo.ListByDeal(dealID, page, pageSize)
}

// ListPurchasesByUser 分页获取用户购买流水
func (s *PurchaseService) ListPurchasesByUser(userID uint, page, pageSize int) ([]models.DealPurchase, int64, error) {
	return s.purchaseRepo.ListByUser(userID, page, pageSize)
}

// loadCustomerSnapshot 读取用户会员等级与活动内累计购买数量
func (s *PurchaseService) loadCustomerSnapshot(
	userRepo repository.UserRepository,
	purchaseRepo repository.DealPurchaseRepository,
	dealID, userID uint,
) (string, int, error) {
	user, err := userRepo.GetByID(userID)
	if err != nil {
		return "", 0, err
	}
	if user == nil {
		return "", 0, ErrUserNotFound
	}
	purchased, err := purchaseRepo.SumQuantityByUser(dealID, userID)
	if err != nil {
		return "", 0, err
	}
	return user.LoyaltyTier, purchased, nil
}

// validatePurchaseInput 购买入参校验
func validatePurchaseInput(input *RecordPurchaseInput) error {
	if input.DealID == 0 || input.UserID == 0 {
		return fmt.Errorf("%w: deal_id and user_id required", ErrDealInvalid)
	}
	if strings.TrimSpace(input.OrderNo) == "" {
		return fmt.Errorf("%w: order_no required", ErrDealInvalid)
	}
	if input.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrDealInvalid)
	}
	if input.PurchasePrice.IsNegative() || input.DiscountApplied.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrDealInvalid)
	}
	return nil
}
