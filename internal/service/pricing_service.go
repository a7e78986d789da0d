package service

import (
	"fmt"

	"github.com/promodeal-next/internal/constants"
	"github.com/promodeal-next/internal/models"

	"github.com/shopspring/decimal"
)

// PriceQuote 价格计算结果
type PriceQuote struct {
	TotalOriginal      models.Money `json:"total_original"`      // 原价合计
	TotalFinal         models.Money `json:"total_final"`         // 折后合计
	DiscountPercentage float64      `json:"discount_percentage"` // 实际折扣率（折后汇总反算）
	Savings            models.Money `json:"savings"`             // 节省金额
}

// PricingService 价格计算：纯函数，不读写任何存储
type PricingService struct{}

// NewPricingService 创建价格计算服务
func NewPricingService() *PricingService {
	return &PricingService{}
}

// CalculatePrice 计算活动折后价。仅进行中的活动允许报价。
func (s *PricingService) CalculatePrice(deal *models.Deal, unitOriginalPrice models.Money, quantity int) (*PriceQuote, error) {
	if deal == nil {
		return nil, ErrDealNotFound
	}
	if deal.Status != constants.DealStatusActive {
		return nil, fmt.Errorf("%w: deal %d is %s", ErrDealStateInvalid, deal.ID, deal.Status)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrDealInvalid)
	}
	if unitOriginalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price must not be negative", ErrDealInvalid)
	}

	qty := decimal.NewFromInt(int64(quantity))
	totalOriginal := unitOriginalPrice.Mul(qty)

	var totalFinal decimal.Decimal
	switch deal.Type {
	case constants.DealTypePercentage, constants.DealTypeFlashSale:
		totalFinal = applyPercentage(totalOriginal, deal.DiscountPercentage)
	case constants.DealTypeFixedAmount:
		totalFinal = applyFixedAmountPerUnit(unitOriginalPrice.Decimal, deal.DiscountAmount.Decimal, qty)
	case constants.DealTypeBOGO:
		free := bogoFreeUnits(quantity, deal.BuyQuantity, deal.GetQuantity)
		totalFinal = unitOriginalPrice.Mul(decimal.NewFromInt(int64(quantity - free)))
	case constants.DealTypeTiered:
		tiers, err := deal.DecodeTiers()
		if err != nil {
			return nil, fmt.Errorf("%w: tiers malformed: %v", ErrDealInvalid, err)
		}
		totalFinal = applyTiered(totalOriginal, tiers)
	default:
		return nil, fmt.Errorf("%w: unknown deal type %s", ErrDealInvalid, deal.Type)
	}

	if totalFinal.IsNegative() {
		totalFinal = decimal.Zero
	}
	if totalFinal.GreaterThan(totalOriginal) {
		totalFinal = totalOriginal
	}

	savings := totalOriginal.Sub(totalFinal)
	effective := 0.0
	if totalOriginal.IsPositive() {
		effective, _ = savings.Div(totalOriginal).Mul(decimal.NewFromInt(100)).Float64()
	}

	return &PriceQuote{
		TotalOriginal:      models.NewMoneyFromDecimal(totalOriginal),
		TotalFinal:         models.NewMoneyFromDecimal(totalFinal),
		DiscountPercentage: effective,
		Savings:            models.NewMoneyFromDecimal(savings),
	}, nil
}

// applyPercentage 百分比折扣
func applyPercentage(total decimal.Decimal, percentage float64) decimal.Decimal {
	if percentage <= 0 {
		return total
	}
	if percentage >= 100 {
		return decimal.Zero
	}
	rate := decimal.NewFromFloat(1 - percentage/100)
	return total.Mul(rate)
}

// applyFixedAmountPerUnit 单件固定减免，单价减免后不低于 0
func applyFixedAmountPerUnit(unit, amount, qty decimal.Decimal) decimal.Decimal {
	unitFinal := unit.Sub(amount)
	if unitFinal.IsNegative() {
		unitFinal = decimal.Zero
	}
	return unitFinal.Mul(qty)
}

// bogoFreeUnits 计算买赠免费件数。只有凑满购买门槛才产生赠品，
// 不足 buyQuantity 的尾量不享受任何减免。
func bogoFreeUnits(quantity, buyQuantity, getQuantity int) int {
	if buyQuantity <= 0 || getQuantity <= 0 || quantity <= 0 {
		return 0
	}
	groupSize := buyQuantity + getQuantity
	fullGroups := quantity / groupSize
	remainder := quantity - fullGroups*groupSize
	extra := remainder - buyQuantity
	if extra < 0 {
		extra = 0
	}
	if extra > getQuantity {
		extra = getQuantity
	}
	return fullGroups*getQuantity + extra
}

// applyTiered 阶梯折扣：选取满足门槛的最高一档。
// 百分比优先，否则按固定金额直接从合计减免。
func applyTiered(total decimal.Decimal, tiers []models.DealTier) decimal.Decimal {
	var selected *models.DealTier
	for i := range tiers {
		tier := &tiers[i]
		if tier.MinimumPurchase.GreaterThan(total) {
			continue
		}
		if selected == nil || tier.MinimumPurchase.GreaterThan(selected.MinimumPurchase.Decimal) {
			selected = tier
		}
	}
	if selected == nil {
		return total
	}
	if selected.DiscountPercentage > 0 {
		return applyPercentage(total, selected.DiscountPercentage)
	}
	final := total.Sub(selected.DiscountAmount.Decimal)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}
