package service

import (
	"time"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"
)

// 资格校验原因文案（面向调用方展示，不可改动）
const (
	ReasonDealNotStarted       = "Deal has not started yet"
	ReasonDealEnded            = "Deal has ended"
	ReasonDealSoldOut          = "Deal is sold out"
	ReasonPurchaseLimitReached = "Purchase limit reached for this deal"
	ReasonMinimumTierNotMet    = "Minimum loyalty tier not met"
)

// EligibilityVerdict 资格校验结论
type EligibilityVerdict struct {
	IsEligible bool     `json:"is_eligible"`
	Reasons    []string `json:"reasons"`
}

// EligibilityService 购买资格校验：纯函数，输入快照，输出结论。
// 逐项累积全部不满足的原因，不在首个失败处中断。
type EligibilityService struct{}

// NewEligibilityService 创建资格校验服务
func NewEligibilityService() *EligibilityService {
	return &EligibilityService{}
}

// CheckEligibility 校验用户能否按给定数量参与活动
func (s *EligibilityService) CheckEligibility(deal *models.Deal, customerTier string, customerPurchaseTotal, requestedQuantity int, now time.Time) EligibilityVerdict {
	reasons := make([]string, 0, 4)
	if deal == nil {
		return EligibilityVerdict{IsEligible: false, Reasons: []string{ReasonDealEnded}}
	}

	if now.Before(deal.StartsAt) {
		reasons = append(reasons, ReasonDealNotStarted)
	}
	if now.After(deal.EndsAt) || deal.Status == constants.DealStatusEnded {
		reasons = append(reasons, ReasonDealEnded)
	}
	if deal.RemainingStock <= 0 {
		reasons = append(reasons, ReasonDealSoldOut)
	}
	if deal.LimitPerCustomer > 0 && customerPurchaseTotal+requestedQuantity > deal.LimitPerCustomer {
		reasons = append(reasons, ReasonPurchaseLimitReached)
	}
	if deal.MinimumTier != "" && constants.LoyaltyTierRank(customerTier) < constants.LoyaltyTierRank(deal.MinimumTier) {
		reasons = append(reasons, ReasonMinimumTierNotMet)
	}

	return EligibilityVerdict{IsEligible: len(reasons) == 0, Reasons: reasons}
}
