package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/export"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
	"github.com/noah-isme/gym-agenda-api/pkg/signing"
)

const (
	contentTypeCSV = "text/csv; charset=utf-8"
	contentTypePDF = "application/pdf"
	contentTypeICS = "text/calendar; charset=utf-8"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type calendarRenderer interface {
	Render(cal export.Calendar) ([]byte, error)
}

// ExportServiceConfig tunes exports and subscription feeds.
type ExportServiceConfig struct {
	FeedPath         string
	FeedLookbackDays int
	FeedRefresh      time.Duration
}

// ExportService renders agenda windows as CSV, PDF or iCalendar and serves signed
// subscription feeds.
type ExportService struct {
	agenda *AgendaService
	csv    datasetRenderer
	pdf    datasetRenderer
	ics    calendarRenderer
	signer *signing.FeedSigner
	logger *zap.Logger
	cfg    ExportServiceConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Agenda *AgendaService
	CSV    datasetRenderer
	PDF    datasetRenderer
	ICS    calendarRenderer
	Signer *signing.FeedSigner
	Logger *zap.Logger
	Config ExportServiceConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.FeedPath == "" {
		cfg.FeedPath = "/agenda/feed/"
	}
	if cfg.FeedLookbackDays <= 0 {
		cfg.FeedLookbackDays = 7
	}
	if cfg.FeedRefresh <= 0 {
		cfg.FeedRefresh = time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	ics := params.ICS
	if ics == nil {
		ics = export.NewICSExporter("-//gym-agenda-api//agenda//EN", "agenda.local")
	}
	return &ExportService{
		agenda: params.Agenda,
		csv:    csv,
		pdf:    pdf,
		ics:    ics,
		signer: params.Signer,
		logger: logger,
		cfg:    cfg,
	}
}

// Export renders the merged agenda of the query window in the requested format.
func (s *ExportService) Export(ctx context.Context, requester models.Requester, q dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.agenda.validateQuery(q); err != nil {
		return nil, err
	}
	window, sc, err := s.agenda.prepare(ctx, requester, q.AgendaQuery)
	if err != nil {
		return nil, err
	}
	res, _, err := s.agenda.collect(ctx, sc, window, filtersOf(q.AgendaQuery))
	if err != nil {
		return nil, err
	}
	s.agenda.metrics.ObserveOccurrences("export", len(res.Occurrences))

	base := fmt.Sprintf("agenda_%s_%s", window.Start, window.End)
	switch q.Format {
	case "csv":
		body, err := s.csv.Render(s.dataset(sc, window, res.Occurrences))
		if err != nil {
			return nil, renderFailed(err, "csv")
		}
		return &dto.ExportFile{Filename: base + ".csv", ContentType: contentTypeCSV, Body: body}, nil
	case "pdf":
		body, err := s.pdf.Render(s.dataset(sc, window, res.Occurrences))
		if err != nil {
			return nil, renderFailed(err, "pdf")
		}
		return &dto.ExportFile{Filename: base + ".pdf", ContentType: contentTypePDF, Body: body}, nil
	case "ics":
		body, err := s.ics.Render(s.calendar(sc, res.Occurrences))
		if err != nil {
			return nil, renderFailed(err, "ics")
		}
		return &dto.ExportFile{Filename: base + ".ics", ContentType: contentTypeICS, Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// IssueFeed signs a subscription token bound to the requester and organization.
func (s *ExportService) IssueFeed(ctx context.Context, requester models.Requester, req dto.FeedRequest) (*dto.FeedResponse, error) {
	if err := s.agenda.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feed request")
	}
	sc, err := s.agenda.scope(ctx, requester, req.OrganizationID, false)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Issue(signing.FeedClaims{
		UserID:         requester.UserID,
		Role:           string(requester.Role),
		OrganizationID: sc.org.ID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign feed token")
	}
	return &dto.FeedResponse{Token: token, Path: s.cfg.FeedPath + token, ExpiresAt: expiresAt}, nil
}

// Feed serves the iCalendar subscription of a signed token. The window runs from
// FeedLookbackDays before local today to a quarter of the horizon ahead. Personal
// sessions follow the instructor or student identity resolved on every fetch; a
// role claim never widens a feed to every personal session.
func (s *ExportService) Feed(ctx context.Context, token string) (*dto.ExportFile, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, signing.ErrExpiredToken) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "feed link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "feed link invalid")
	}
	requester := models.Requester{
		UserID:         claims.UserID,
		Role:           models.UserRole(claims.Role),
		OrganizationID: claims.OrganizationID,
	}
	sc, err := s.agenda.scope(ctx, requester, claims.OrganizationID, false)
	if err != nil {
		return nil, err
	}
	if !requester.Role.Administrative() {
		if sc.visibility, err = s.agenda.resolveVisibility(ctx, requester); err != nil {
			return nil, err
		}
	}
	ahead := s.agenda.cfg.HorizonDays / 4
	window := localdate.NewWindow(sc.today.AddDays(-s.cfg.FeedLookbackDays), sc.today.AddDays(ahead))

	res, _, err := s.agenda.collect(ctx, sc, window, agendaFilters{})
	if err != nil {
		return nil, err
	}
	s.agenda.metrics.ObserveOccurrences("feed", len(res.Occurrences))

	body, err := s.ics.Render(s.calendar(sc, res.Occurrences))
	if err != nil {
		return nil, renderFailed(err, "ics")
	}
	return &dto.ExportFile{Filename: "agenda.ics", ContentType: contentTypeICS, Body: body}, nil
}

var exportHeaders = []string{"Date", "Start", "End", "Kind", "Title", "Status", "Instructor", "Course", "Location", "Attendees", "Capacity", "ID"}

func (s *ExportService) dataset(sc agendaScope, window localdate.Window, occurrences []models.UnifiedOccurrence) export.Dataset {
	rows := make([][]string, 0, len(occurrences))
	for _, o := range occurrences {
		kind := o.Label
		if kind == "" {
			kind = string(o.Kind)
		}
		rows = append(rows, []string{
			o.Date.String(),
			o.Start.In(sc.loc).Format("15:04"),
			o.End.In(sc.loc).Format("15:04"),
			kind,
			o.Title,
			string(o.Status),
			o.InstructorID,
			o.CourseID,
			o.LocationID,
			strconv.Itoa(o.AttendeeCount),
			strconv.Itoa(o.Capacity),
			o.Token,
		})
	}
	return export.Dataset{
		Title:    "Agenda " + organizationName(sc.org),
		Subtitle: fmt.Sprintf("%s to %s (%s)", window.Start, window.End, sc.loc),
		Headers:  exportHeaders,
		Rows:     rows,
	}
}

func (s *ExportService) calendar(sc agendaScope, occurrences []models.UnifiedOccurrence) export.Calendar {
	events := make([]export.Event, 0, len(occurrences))
	for _, o := range occurrences {
		if !o.End.After(o.Start) {
			s.logger.Warn("occurrence without duration left out of calendar", zap.String("id", o.Token))
			continue
		}
		category := o.Label
		if category == "" {
			category = string(o.Kind)
		}
		events = append(events, export.Event{
			UID:         o.Token,
			Summary:     o.Title,
			Description: fmt.Sprintf("%s, %d/%d", o.Status, o.AttendeeCount, o.Capacity),
			Location:    o.LocationID,
			Category:    category,
			Start:       o.Start,
			End:         o.End,
			Cancelled:   o.Status == models.StatusCancelled,
		})
	}
	return export.Calendar{
		Name:     "Agenda " + organizationName(sc.org),
		Timezone: sc.loc.String(),
		Refresh:  s.cfg.FeedRefresh,
		Events:   events,
	}
}

func organizationName(org *models.Organization) string {
	if org.Name != "" {
		return org.Name
	}
	return org.ID
}

func renderFailed(err error, format string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render "+format+" export")
}
