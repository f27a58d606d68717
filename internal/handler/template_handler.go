package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/response"
)

type templateAdmin interface {
	SetActive(ctx context.Context, requester models.Requester, req dto.BulkTemplateRequest) (*dto.BulkTemplateResponse, error)
}

// TemplateHandler exposes administrative template operations.
type TemplateHandler struct {
	service templateAdmin
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service templateAdmin) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// BulkSetActive godoc
// @Summary Activate or deactivate several recurring templates
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.BulkTemplateRequest true "Templates"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /agenda/templates/bulk [patch]
func (h *TemplateHandler) BulkSetActive(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var req dto.BulkTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	res, err := h.service.SetActive(c.Request.Context(), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
