package constants

// 活动状态常量
const (
	DealStatusScheduled = "scheduled"
	DealStatusActive    = "active"
	DealStatusEnded     = "ended"
)

// 活动折扣类型常量
const (
	DealTypePercentage  = "percentage"
	DealTypeFixedAmount = "fixed_amount"
	DealTypeBOGO        = "bogo"
	DealTypeTiered      = "tiered"
	DealTypeFlashSale   = "flash_sale" // 闪购，按百分比折扣计算
)

// 会员等级常量（由低到高）
const (
	LoyaltyTierBronze   = "bronze"
	LoyaltyTierSilver   = "silver"
	LoyaltyTierGold     = "gold"
	LoyaltyTierPlatinum = "platinum"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 异步任务类型常量
const (
	TaskDealNotify = "deal:notify"
)

// 通知事件类型常量
const (
	NotifyEventDealPurchase  = "deal_purchase"
	NotifyEventDealActivated = "deal_activated"
	NotifyEventDealEnded     = "deal_ended"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// loyaltyTierRank 会员等级排序，数值越大等级越高
var loyaltyTierRank = map[string]int{
	LoyaltyTierBronze:   1,
	LoyaltyTierSilver:   2,
	LoyaltyTierGold:     3,
	LoyaltyTierPlatinum: 4,
}

// LoyaltyTierRank 返回会员等级排序值，未知等级返回 0
func LoyaltyTierRank(tier string) int {
	return loyaltyTierRank[tier]
}

// IsValidDealType 判断折扣类型是否合法
func IsValidDealType(dealType string) bool {
	switch dealType {
	case DealTypePercentage, DealTypeFixedAmount, DealTypeBOGO, DealTypeTiered, DealTypeFlashSale:
		return true
	default:
		return false
	}
}

// IsValidLoyaltyTier 判断会员等级是否合法
func IsValidLoyaltyTier(tier string) bool {
	_, ok := loyaltyTierRank[tier]
	return ok
}
