package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-agenda-api/internal/middleware"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/response"
)

// requesterFromContext resolves the authenticated requester or writes 401.
func requesterFromContext(c *gin.Context) (models.Requester, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Requester{}, false
	}
	return claims.Requester(), true
}

func respondWithMeta(c *gin.Context, status int, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{middleware.CacheHitMetaKey: cacheHit}
	}
	response.JSON(c, status, data, nil, meta)
}
