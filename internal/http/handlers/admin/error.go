package admin

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

// respondDealError 将活动业务错误映射为接口错误响应
func respondDealError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDealInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrDealNotFound):
		respondError(c, response.CodeNotFound, "deal not found", nil)
	case errors.Is(err, service.ErrDealProductNotFound):
		respondError(c, response.CodeNotFound, "deal product not found", nil)
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, response.CodeNotFound, "product not found", nil)
	case errors.Is(err, service.ErrDealStateInvalid):
		respondError(c, response.CodeConflict, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, "deal request failed", err)
	}
}
