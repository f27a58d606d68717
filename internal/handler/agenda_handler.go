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

type agendaReader interface {
	List(ctx context.Context, requester models.Requester, q dto.AgendaQuery) (*dto.AgendaListResponse, bool, error)
	Get(ctx context.Context, requester models.Requester, organizationID, token string) (*models.UnifiedOccurrence, error)
}

type agendaStats interface {
	Today(ctx context.Context, requester models.Requester, organizationID string) (*dto.TodayStatsResponse, bool, error)
	Week(ctx context.Context, requester models.Requester, organizationID string) (*dto.WeekStatsResponse, bool, error)
}

// AgendaHandler serves the unified agenda read endpoints.
type AgendaHandler struct {
	agenda agendaReader
	stats  agendaStats
}

// NewAgendaHandler constructs the handler.
func NewAgendaHandler(agenda agendaReader, stats agendaStats) *AgendaHandler {
	return &AgendaHandler{agenda: agenda, stats: stats}
}

// List godoc
// @Summary List agenda occurrences
// @Description Merges recurring templates, ad-hoc classes and personal sessions of one organization into a single chronological list.
// @Tags Agenda
// @Produce json
// @Param start query string true "First date (YYYY-MM-DD)"
// @Param end query string true "Last date, inclusive (YYYY-MM-DD)"
// @Param instructor query string false "Instructor ID"
// @Param course query string false "Course ID"
// @Param status query string false "Occurrence status"
// @Param kind query string false "CLASS, PERSONAL or TEMPLATE"
// @Param org query string false "Organization ID (SUPERADMIN only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /agenda/occurrences [get]
func (h *AgendaHandler) List(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var q dto.AgendaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	q.Kind = strings.ToUpper(strings.TrimSpace(q.Kind))

	res, hit, err := h.agenda.List(c.Request.Context(), requester, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, res, hit)
}

// Get godoc
// @Summary Get one agenda occurrence
// @Tags Agenda
// @Produce json
// @Param token path string true "Occurrence token"
// @Param org query string false "Organization ID (SUPERADMIN only)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agenda/occurrences/{token} [get]
func (h *AgendaHandler) Get(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "occurrence token is required"))
		return
	}
	occurrence, err := h.agenda.Get(c.Request.Context(), requester, strings.TrimSpace(c.Query("org")), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrence, nil)
}

// Today godoc
// @Summary Agenda counters for the organization's current day
// @Tags Agenda
// @Produce json
// @Param org query string false "Organization ID (SUPERADMIN only)"
// @Success 200 {object} response.Envelope
// @Router /agenda/stats/today [get]
func (h *AgendaHandler) Today(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var q dto.StatsQuery
	_ = c.ShouldBindQuery(&q)
	res, hit, err := h.stats.Today(c.Request.Context(), requester, strings.TrimSpace(q.OrganizationID))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, res, hit)
}

// Week godoc
// @Summary Agenda breakdown of the organization's current week
// @Tags Agenda
// @Produce json
// @Param org query string false "Organization ID (SUPERADMIN only)"
// @Success 200 {object} response.Envelope
// @Router /agenda/stats/week [get]
func (h *AgendaHandler) Week(c *gin.Context) {
	requester, ok := requesterFromContext(c)
	if !ok {
		return
	}
	var q dto.StatsQuery
	_ = c.ShouldBindQuery(&q)
	res, hit, err := h.stats.Week(c.Request.Context(), requester, strings.TrimSpace(q.OrganizationID))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, http.StatusOK, res, hit)
}
