package handlers

import (
	"errors"
	"net/http"

	"nutriplan/internal/core/ai/cache"
	"nutriplan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將領域錯誤映射成 HTTP 錯誤響應
func RespondError(c *gin.Context, err error) {
	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	var ce *common.CustomError
	if errors.As(err, &ce) {
		c.JSON(ce.Status, common.ErrorResponse{
			Code:    ce.Code,
			Message: ce.Message,
		})
		return
	}

	common.LogError("unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: "internal server error",
	})
}

// CacheStats 回報行程內快取統計
func CacheStats(manager *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.GetStats())
	}
}
