package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Sophie-Muchiri12/rentmg/internal/apperr"
)

// respondError maps a taxonomy error to its HTTP status in one place.
// Internal causes are logged, never serialized.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	ae := apperr.From(err)
	if ae.Code == apperr.CodeInternal || ae.Code == apperr.CodeGateway {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", string(ae.Code)),
			zap.Error(err),
		)
	}
	c.JSON(ae.Code.HTTPStatus(), gin.H{
		"error": ae.Message,
		"code":  string(ae.Code),
	})
}
