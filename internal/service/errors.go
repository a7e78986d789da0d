package service

import "errors"

// 活动相关业务错误
var (
	ErrDealInvalid         = errors.New("deal payload invalid")
	ErrDealNotFound        = errors.New("deal not found")
	ErrDealProductNotFound = errors.New("deal product not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDealStateInvalid    = errors.New("deal state does not allow this operation")
	ErrPurchaseForbidden   = errors.New("purchase not eligible")
	ErrStockConflict       = errors.New("deal stock conflict")
	ErrDuplicateOrder      = errors.New("order already recorded for this deal")
)
