package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/response"
)

type agendaExporter interface {
	Export(ctx context.Context, requester models.Requester, q dto.ExportQuery) (*dto.ExportFile, error)
	IssueFeed(ctx context.Context, requester models.Requester, req dto.FeedRequest) (*dto.FeedResponse, error)
	Feed(ctx context.Context, token string) (*dto.ExportFile, error)
}

// ExportHandler serves agenda downloads and calendar subscriptions.
type ExportHandler struct {
	service agendaExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(service agendaExporter) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Download the agenda of a window
// @Tags Agenda
// @Produce text/csv
// @Produce application/pdf
// @Produce text/calendar
// @Param format query string true "csv, pdf or ics"
// @Param start query string true "First date (YYYY-MM-DD)"
// @Param end query string true "Last date, inclusive (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /agenda/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	q.Format = strings.ToLower(strings.TrimSpace(q.Format))
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	q.Kind = strings.ToUpper(strings.TrimSpace(q.Kind))

	file, err := h.service.Export(c.Request.Context(), requester, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// IssueFeed godoc
// @Summary Issue a signed calendar subscription link
// @Tags Agenda
// @Accept json
// @Produce json
// @Param payload body dto.FeedRequest false "Organization"
// @Success 201 {object} response.Envelope
// @Router /agenda/feed [post]
func (h *ExportHandler) IssueFeed(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var req dto.FeedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
	}
	res, err := h.service.IssueFeed(c.Request.Context(), requester, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, res, nil)
}

// Feed godoc
// @Summary Calendar subscription feed
// @Description Authenticated by the signed token in the path; no bearer token is needed.
// @Tags Agenda
// @Produce text/calendar
// @Param token path string true "Signed feed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /agenda/feed/{token} [get]
func (h *ExportHandler) Feed(c *gin.Context) {
	token := strings.TrimSuffix(strings.TrimSpace(c.Param("token")), ".ics")
	if token == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.service.Feed(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
