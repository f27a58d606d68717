package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-agenda-api/internal/agenda"
	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
)

// AgendaStatsService builds the today and week aggregate views.
type AgendaStatsService struct {
	agenda *AgendaService
}

// NewAgendaStatsService constructs the stats service on top of an AgendaService.
func NewAgendaStatsService(agendaSvc *AgendaService) *AgendaStatsService {
	return &AgendaStatsService{agenda: agendaSvc}
}

// Today counts the occurrences of the organization's local today without building
// their payloads.
func (s *AgendaStatsService) Today(ctx context.Context, requester models.Requester, organizationID string) (*dto.TodayStatsResponse, bool, error) {
	sc, err := s.agenda.scope(ctx, requester, organizationID, true)
	if err != nil {
		return nil, false, err
	}
	window := localdate.NewWindow(sc.today, sc.today)
	key := statsCacheKey("today", sc, window)

	var cached dto.TodayStatsResponse
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	tally, err := s.agenda.count(ctx, sc, window)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.TodayStatsResponse{
		OrganizationID: sc.org.ID,
		Timezone:       sc.loc.String(),
		Date:           sc.today.String(),
		Counts:         tally,
	}
	s.persist(ctx, key, resp)
	return resp, false, nil
}

// Week groups the merged occurrences of the current local week by day and by
// start hour.
func (s *AgendaStatsService) Week(ctx context.Context, requester models.Requester, organizationID string) (*dto.WeekStatsResponse, bool, error) {
	sc, err := s.agenda.scope(ctx, requester, organizationID, true)
	if err != nil {
		return nil, false, err
	}
	first := sc.today.StartOfWeek(s.agenda.cfg.WeekStart)
	window := localdate.NewWindow(first, first.AddDays(6))
	key := statsCacheKey("week", sc, window)

	var cached dto.WeekStatsResponse
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	res, _, err := s.agenda.collect(ctx, sc, window, agendaFilters{})
	if err != nil {
		return nil, false, err
	}
	s.agenda.metrics.ObserveOccurrences("week", len(res.Occurrences))

	resp := &dto.WeekStatsResponse{
		OrganizationID: sc.org.ID,
		Timezone:       sc.loc.String(),
		Window:         windowOf(window),
		Total:          len(res.Occurrences),
		Days:           agenda.GroupByDay(res.Occurrences, window),
		Slots:          agenda.GroupBySlot(res.Occurrences, sc.loc),
	}
	instructors := make(map[string]struct{})
	for _, o := range res.Occurrences {
		if o.Status == models.StatusCancelled {
			resp.Cancelled++
			continue
		}
		if o.InstructorID != "" {
			instructors[o.InstructorID] = struct{}{}
		}
	}
	resp.Instructors = len(instructors)

	s.persist(ctx, key, resp)
	return resp, false, nil
}

// statsCacheKey is agenda:stats:<view>:<org>:<window start>:<visibility>. The
// organization segment is what TemplateCache.Invalidate matches on.
func statsCacheKey(view string, sc agendaScope, window localdate.Window) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", statsCachePrefix, view, sc.org.ID, window.Start, sc.visibility.CacheKey())
}

func (s *AgendaStatsService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.agenda.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *AgendaStatsService) persist(ctx context.Context, key string, value interface{}) {
	if err := s.agenda.cache.Set(ctx, key, value, s.agenda.cfg.StatsCacheTTL); err != nil {
		s.agenda.logger.Debug("stats cache write skipped", zap.String("key", key), zap.Error(err))
	}
}
