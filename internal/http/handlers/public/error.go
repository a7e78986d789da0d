package public

import (
	"errors"

	handlershared "github.com/promodeal-next/internal/http/handlers/shared"
	"github.com/promodeal-next/internal/http/response"
	"github.com/promodeal-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var dealCommonErrorRules = []mappedHandlerError{
	{target: service.ErrDealInvalid, code: response.CodeBadRequest, msg: "deal request invalid"},
	{target: service.ErrDealNotFound, code: response.CodeNotFound, msg: "deal not found"},
	{target: service.ErrDealProductNotFound, code: response.CodeNotFound, msg: "deal product not found"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "product not found"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, msg: "user not found"},
	{target: service.ErrDealStateInvalid, code: response.CodeConflict, msg: "deal state does not allow this operation"},
}

var dealPurchaseErrorRules = []mappedHandlerError{
	{target: service.ErrPurchaseForbidden, code: response.CodeForbidden, msg: "purchase not eligible"},
	{target: service.ErrStockConflict, code: response.CodeConflict, msg: "deal stock exhausted"},
	{target: service.ErrDuplicateOrder, code: response.CodeConflict, msg: "order already recorded"},
}

func respondDealError(c *gin.Context, err error) {
	respondWithMappedError(c, err, dealCommonErrorRules, response.CodeInternal, "deal request failed")
}

func respondPurchaseError(c *gin.Context, err error) {
	rules := make([]mappedHandlerError, 0, len(dealCommonErrorRules)+len(dealPurchaseErrorRules))
	rules = append(rules, dealPurchaseErrorRules...)
	rules = append(rules, dealCommonErrorRules...)
	respondWithMappedError(c, err, rules, response.CodeInternal, "purchase record failed")
}
