package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/logger"
)

type templateActivator interface {
	SetActive(ctx context.Context, organizationID string, ids []string, active bool) (int64, error)
}

type templateInvalidator interface {
	Invalidate(ctx context.Context, organizationID string) error
}

// TemplateAdminService applies administrative bulk edits to recurring templates.
type TemplateAdminService struct {
	agenda *AgendaService
	store  templateActivator
	cache  templateInvalidator
	logger *zap.Logger
}

// NewTemplateAdminService constructs a TemplateAdminService.
func NewTemplateAdminService(agendaSvc *AgendaService, store templateActivator, cache templateInvalidator, logger *zap.Logger) *TemplateAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateAdminService{agenda: agendaSvc, store: store, cache: cache, logger: logger}
}

// SetActive activates or deactivates templates of one organization and drops the
// cached templates and stats of that organization.
func (s *TemplateAdminService) SetActive(ctx context.Context, requester models.Requester, req dto.BulkTemplateRequest) (*dto.BulkTemplateResponse, error) {
	if err := s.agenda.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk template payload")
	}
	if !requester.Role.Administrative() || requester.Role == models.RoleStaff {
		return nil, appErrors.ErrForbidden
	}
	sc, err := s.agenda.scope(ctx, requester, req.OrganizationID, false)
	if err != nil {
		return nil, err
	}

	ids := dedupe(req.TemplateIDs)
	updated, err := s.store.SetActive(ctx, sc.org.ID, ids, *req.Active)
	if err != nil {
		return nil, storeUnavailable(err, "templates")
	}
	if err := s.cache.Invalidate(ctx, sc.org.ID); err != nil {
		s.logger.Warn("template cache invalidation failed", zap.String("organization_id", sc.org.ID), zap.Error(err))
	}

	logger.Audit(s.logger).Info("templates bulk updated",
		zap.String("user_id", requester.UserID),
		zap.String("organization_id", sc.org.ID),
		zap.Bool("active", *req.Active),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated),
	)
	return &dto.BulkTemplateResponse{
		OrganizationID: sc.org.ID,
		Requested:      len(ids),
		Updated:        updated,
		Active:         *req.Active,
	}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
