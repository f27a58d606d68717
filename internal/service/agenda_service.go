package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/gym-agenda-api/internal/agenda"
	"github.com/noah-isme/gym-agenda-api/internal/dto"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	appErrors "github.com/noah-isme/gym-agenda-api/pkg/errors"
	"github.com/noah-isme/gym-agenda-api/pkg/labels"
	"github.com/noah-isme/gym-agenda-api/pkg/localdate"
	"github.com/noah-isme/gym-agenda-api/pkg/logger"
)

type activeTemplateSource interface {
	Active(ctx context.Context, filter models.TemplateFilter) ([]models.RecurrenceTemplate, bool, error)
}

type templateFinder interface {
	FindByID(ctx context.Context, id string) (*models.RecurrenceTemplate, error)
}

type overrideReader interface {
	List(ctx context.Context, filter models.OverrideFilter) ([]models.OccurrenceOverride, error)
	ListKeys(ctx context.Context, filter models.OverrideFilter) ([]models.OverrideKey, error)
	FindByID(ctx context.Context, id string) (*models.OccurrenceOverride, error)
	FindByTemplateDate(ctx context.Context, templateID string, date localdate.Date) (*models.OccurrenceOverride, error)
	ListAttendance(ctx context.Context, occurrenceID string) ([]models.AttendanceRecord, error)
}

type classReader interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.AdHocClass, error)
	CountByInstructor(ctx context.Context, filter models.ClassFilter) ([]models.InstructorCount, error)
	FindByID(ctx context.Context, id string) (*models.AdHocClass, error)
	ListAttendance(ctx context.Context, classID string) ([]models.AttendanceRecord, error)
}

type personalSessionReader interface {
	List(ctx context.Context, filter models.PersonalSessionFilter) ([]models.PersonalSession, error)
	CountByInstructor(ctx context.Context, filter models.PersonalSessionFilter) ([]models.InstructorCount, error)
	FindByID(ctx context.Context, id string) (*models.PersonalSession, error)
}

type organizationReader interface {
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

type identityResolver interface {
	StudentIDByUser(ctx context.Context, userID string) (string, error)
	InstructorIDByUser(ctx context.Context, userID string) (string, error)
}

// AgendaServiceConfig tunes window validation and the local frame.
type AgendaServiceConfig struct {
	DefaultTimezone string
	HorizonDays     int
	MaxWindowDays   int
	WeekStart       time.Weekday
	StatsCacheTTL   time.Duration
}

// AgendaService answers agenda queries by merging templates, overrides, ad-hoc
// classes and personal sessions of one organization.
type AgendaService struct {
	templates     activeTemplateSource
	templateRows  templateFinder
	overrides     overrideReader
	classes       classReader
	sessions      personalSessionReader
	organizations organizationReader
	identities    identityResolver
	cache         *CacheService
	labels        labels.Set
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	defaultLoc    *time.Location
	now           func() time.Time
	cfg           AgendaServiceConfig
}

// AgendaServiceParams groups constructor dependencies.
type AgendaServiceParams struct {
	Templates     activeTemplateSource
	TemplateRows  templateFinder
	Overrides     overrideReader
	Classes       classReader
	Sessions      personalSessionReader
	Organizations organizationReader
	Identities    identityResolver
	Cache         *CacheService
	Labels        labels.Set
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
	Config        AgendaServiceConfig
}

// NewAgendaService constructs an AgendaService with sane defaults.
func NewAgendaService(params AgendaServiceParams) *AgendaService {
	cfg := params.Config
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 366
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = 93
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 30 * time.Second
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	defaultLoc := time.UTC
	if cfg.DefaultTimezone != "" {
		if loc, err := time.LoadLocation(cfg.DefaultTimezone); err == nil {
			defaultLoc = loc
		} else {
			logger.Warn("invalid default timezone, using UTC", zap.String("timezone", cfg.DefaultTimezone), zap.Error(err))
		}
	}
	return &AgendaService{
		templates:     params.Templates,
		templateRows:  params.TemplateRows,
		overrides:     params.Overrides,
		classes:       params.Classes,
		sessions:      params.Sessions,
		organizations: params.Organizations,
		identities:    params.Identities,
		cache:         params.Cache,
		labels:        params.Labels,
		metrics:       params.Metrics,
		validator:     v,
		logger:        logger,
		defaultLoc:    defaultLoc,
		now:           time.Now,
		cfg:           cfg,
	}
}

// agendaScope is the resolved organization frame and visibility of one request.
type agendaScope struct {
	org        *models.Organization
	loc        *time.Location
	today      localdate.Date
	visibility agenda.Visibility
	requester  models.Requester
}

func (sc agendaScope) engine(set labels.Set) *agenda.Engine {
	return agenda.NewEngine(sc.loc, set)
}

// agendaFilters are the explicit query filters applied on top of the window.
type agendaFilters struct {
	InstructorID string
	CourseID     string
	Status       models.OccurrenceStatus
	Kind         models.AgendaSource
}

func filtersOf(q dto.AgendaQuery) agendaFilters {
	return agendaFilters{
		InstructorID: q.InstructorID,
		CourseID:     q.CourseID,
		Status:       models.OccurrenceStatus(q.Status),
		Kind:         models.AgendaSource(q.Kind),
	}
}

// List returns the merged agenda of the query window. The boolean reports whether
// template data was served from cache.
func (s *AgendaService) List(ctx context.Context, requester models.Requester, q dto.AgendaQuery) (*dto.AgendaListResponse, bool, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, false, err
	}
	window, sc, err := s.prepare(ctx, requester, q)
	if err != nil {
		return nil, false, err
	}

	res, hit, err := s.collect(ctx, sc, window, filtersOf(q))
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveOccurrences("list", len(res.Occurrences))

	return &dto.AgendaListResponse{
		OrganizationID:   sc.org.ID,
		Timezone:         sc.loc.String(),
		Window:           windowOf(window),
		Occurrences:      res.Occurrences,
		Total:            len(res.Occurrences),
		SkippedTemplates: res.Stats.SkippedTemplates,
	}, hit, nil
}

// prepare validates the window and resolves the request scope. Syntax, span and a
// coarse horizon bound are checked before any store access; the exact horizon
// depends on the organization's local today.
func (s *AgendaService) prepare(ctx context.Context, requester models.Requester, q dto.AgendaQuery) (localdate.Window, agendaScope, error) {
	if requester.UserID == "" {
		return localdate.Window{}, agendaScope{}, appErrors.ErrUnauthorized
	}
	window, err := s.parseWindow(q.Start, q.End)
	if err != nil {
		return localdate.Window{}, agendaScope{}, err
	}
	if err := s.checkHorizon(window, localdate.Today(s.now(), time.UTC), 1); err != nil {
		return localdate.Window{}, agendaScope{}, err
	}

	kind := models.AgendaSource(q.Kind)
	needVisibility := kind.Includes(models.SourcePersonal) && q.CourseID == ""
	sc, err := s.scope(ctx, requester, q.OrganizationID, needVisibility)
	if err != nil {
		return localdate.Window{}, agendaScope{}, err
	}
	if err := s.checkHorizon(window, sc.today, 0); err != nil {
		return localdate.Window{}, agendaScope{}, err
	}
	return window, sc, nil
}

func (s *AgendaService) validateQuery(q interface{}) error {
	err := s.validator.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Start" || fe.Field() == "End" {
				s.metrics.RecordRejection("window_format")
				return appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, "start and end are required dates formatted YYYY-MM-DD")
			}
		}
	}
	s.metrics.RecordRejection("filters")
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid agenda query")
}

func (s *AgendaService) parseWindow(rawStart, rawEnd string) (localdate.Window, error) {
	start, err := localdate.Parse(rawStart)
	if err != nil {
		s.metrics.RecordRejection("window_format")
		return localdate.Window{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, "start must be a date formatted YYYY-MM-DD")
	}
	end, err := localdate.Parse(rawEnd)
	if err != nil {
		s.metrics.RecordRejection("window_format")
		return localdate.Window{}, appErrors.Wrap(err, appErrors.ErrInvalidWindow.Code, appErrors.ErrInvalidWindow.Status, "end must be a date formatted YYYY-MM-DD")
	}
	window := localdate.NewWindow(start, end)
	if !window.Valid() {
		s.metrics.RecordRejection("window_order")
		return localdate.Window{}, appErrors.Clone(appErrors.ErrInvalidWindow, "end must not be before start")
	}
	if window.Days() > s.cfg.MaxWindowDays {
		s.metrics.RecordRejection("window_span")
		return localdate.Window{}, appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("window spans %d days, maximum is %d", window.Days(), s.cfg.MaxWindowDays))
	}
	return window, nil
}

// checkHorizon rejects windows reaching beyond HorizonDays (+slack) around today.
func (s *AgendaService) checkHorizon(window localdate.Window, today localdate.Date, slack int) error {
	limit := s.cfg.HorizonDays + slack
	horizon := localdate.NewWindow(today.AddDays(-limit), today.AddDays(limit))
	if window.Start.Before(horizon.Start) || window.End.After(horizon.End) {
		s.metrics.RecordRejection("horizon")
		return appErrors.Clone(appErrors.ErrInvalidWindow, fmt.Sprintf("window must stay within %d days of today", s.cfg.HorizonDays))
	}
	return nil
}

// scope resolves the organization, its local frame and, when needed, the
// personal-session visibility of requester.
func (s *AgendaService) scope(ctx context.Context, requester models.Requester, organizationID string, needVisibility bool) (agendaScope, error) {
	if requester.UserID == "" {
		return agendaScope{}, appErrors.ErrUnauthorized
	}
	if organizationID == "" {
		organizationID = requester.OrganizationID
	}
	if organizationID == "" {
		return agendaScope{}, appErrors.Clone(appErrors.ErrValidation, "organization is required")
	}
	if requester.Role != models.RoleSuperAdmin && organizationID != requester.OrganizationID {
		return agendaScope{}, appErrors.Clone(appErrors.ErrForbidden, "organization outside of requester scope")
	}

	org, err := s.organizations.FindByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return agendaScope{}, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return agendaScope{}, storeUnavailable(err, "organization")
	}

	loc := s.defaultLoc
	if org.Timezone != "" {
		if orgLoc, err := time.LoadLocation(org.Timezone); err == nil {
			loc = orgLoc
		} else {
			s.logger.Warn("organization timezone invalid, using default",
				zap.String("organization_id", org.ID), zap.String("timezone", org.Timezone), zap.Error(err))
		}
	}

	sc := agendaScope{
		org:        org,
		loc:        loc,
		today:      localdate.Today(s.now(), loc),
		visibility: agenda.VisibleToNone(),
		requester:  requester,
	}
	if needVisibility {
		vis, err := s.resolveVisibility(ctx, requester)
		if err != nil {
			return agendaScope{}, err
		}
		sc.visibility = vis
	}
	return sc, nil
}

func (s *AgendaService) resolveVisibility(ctx context.Context, requester models.Requester) (agenda.Visibility, error) {
	switch {
	case requester.Role.Administrative():
		return agenda.VisibleToAll(), nil
	case requester.Role == models.RoleInstructor:
		id, err := s.identities.InstructorIDByUser(ctx, requester.UserID)
		return s.identityVisibility(requester, id, err, agenda.VisibleToInstructor)
	case requester.Role == models.RoleStudent:
		id, err := s.identities.StudentIDByUser(ctx, requester.UserID)
		return s.identityVisibility(requester, id, err, agenda.VisibleToStudent)
	default:
		s.deny(requester, "role without personal session access")
		return agenda.VisibleToNone(), nil
	}
}

func (s *AgendaService) identityVisibility(requester models.Requester, id string, err error, build func(string) agenda.Visibility) (agenda.Visibility, error) {
	if errors.Is(err, sql.ErrNoRows) || (err == nil && id == "") {
		s.deny(requester, "identity not resolved")
		return agenda.VisibleToNone(), nil
	}
	if err != nil {
		return agenda.Visibility{}, storeUnavailable(err, "identity")
	}
	return build(id), nil
}

// deny records a fail-closed visibility decision.
func (s *AgendaService) deny(requester models.Requester, reason string) {
	s.metrics.RecordVisibilityDenial(string(requester.Role))
	logger.Audit(s.logger).Info("personal sessions hidden",
		zap.String("user_id", requester.UserID),
		zap.String("role", string(requester.Role)),
		zap.String("reason", reason),
	)
}

// collect reads every source the filters need concurrently and merges them.
func (s *AgendaService) collect(ctx context.Context, sc agendaScope, window localdate.Window, f agendaFilters) (agenda.Result, bool, error) {
	src, hit, err := s.load(ctx, sc, window, f)
	if err != nil {
		return agenda.Result{}, false, err
	}
	res := sc.engine(s.labels).Merge(src, agenda.MergeOptions{
		Window:     window,
		Visibility: sc.visibility,
		Status:     f.Status,
	})
	s.metrics.RecordExpansions(len(src.Templates)-len(res.Stats.SkippedTemplates), len(res.Stats.SkippedTemplates))
	if len(res.Stats.SkippedTemplates) > 0 {
		s.logger.Warn("templates skipped during expansion",
			zap.String("organization_id", sc.org.ID), zap.Strings("template_ids", res.Stats.SkippedTemplates))
	}
	return res, hit, nil
}

// load issues the store reads of one request. Sources outside the kind scope are
// never read; a course filter excludes personal sessions.
func (s *AgendaService) load(ctx context.Context, sc agendaScope, window localdate.Window, f agendaFilters) (agenda.Sources, bool, error) {
	var (
		src agenda.Sources
		hit bool
	)
	from, to := window.Bounds(sc.loc)
	g, gctx := errgroup.WithContext(ctx)

	if f.Kind.Includes(models.SourceTemplate) {
		g.Go(s.timed("templates", func() error {
			var err error
			src.Templates, hit, err = s.templates.Active(gctx, models.TemplateFilter{
				OrganizationID: sc.org.ID,
				InstructorID:   f.InstructorID,
				CourseID:       f.CourseID,
				Window:         window,
			})
			return err
		}))
		g.Go(s.timed("overrides", func() error {
			var err error
			src.Overrides, err = s.overrides.List(gctx, models.OverrideFilter{
				OrganizationID: sc.org.ID,
				InstructorID:   f.InstructorID,
				CourseID:       f.CourseID,
				Window:         window,
			})
			return err
		}))
	}

	if f.Kind.Includes(models.SourceClass) {
		g.Go(s.timed("classes", func() error {
			var err error
			src.Classes, err = s.classes.List(gctx, models.ClassFilter{
				OrganizationID: sc.org.ID,
				InstructorID:   f.InstructorID,
				CourseID:       f.CourseID,
				Status:         f.Status,
				From:           from,
				To:             to,
			})
			return err
		}))
	}

	if f.Kind.Includes(models.SourcePersonal) && f.CourseID == "" {
		filter, ok := sc.visibility.Apply(models.PersonalSessionFilter{
			OrganizationID: sc.org.ID,
			InstructorID:   f.InstructorID,
			Status:         f.Status,
			From:           from,
			To:             to,
		})
		if ok {
			g.Go(s.timed("personal_sessions", func() error {
				var err error
				src.Sessions, err = s.sessions.List(gctx, filter)
				return err
			}))
		}
	}

	if err := g.Wait(); err != nil {
		return agenda.Sources{}, false, err
	}
	return src, hit, nil
}

// count gathers the aggregate reads of a Tally concurrently.
func (s *AgendaService) count(ctx context.Context, sc agendaScope, window localdate.Window) (agenda.Tally, error) {
	var in agenda.CountInputs
	from, to := window.Bounds(sc.loc)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.timed("templates", func() error {
		var err error
		in.Templates, _, err = s.templates.Active(gctx, models.TemplateFilter{OrganizationID: sc.org.ID, Window: window})
		return err
	}))
	g.Go(s.timed("overrides", func() error {
		var err error
		in.Overrides, err = s.overrides.ListKeys(gctx, models.OverrideFilter{OrganizationID: sc.org.ID, Window: window})
		return err
	}))
	g.Go(s.timed("classes", func() error {
		var err error
		in.Classes, err = s.classes.CountByInstructor(gctx, models.ClassFilter{OrganizationID: sc.org.ID, From: from, To: to})
		return err
	}))
	if filter, ok := sc.visibility.Apply(models.PersonalSessionFilter{OrganizationID: sc.org.ID, From: from, To: to}); ok {
		g.Go(s.timed("personal_sessions", func() error {
			var err error
			in.Sessions, err = s.sessions.CountByInstructor(gctx, filter)
			return err
		}))
	}

	if err := g.Wait(); err != nil {
		return agenda.Tally{}, err
	}
	return agenda.Count(in, window), nil
}

func (s *AgendaService) timed(source string, read func() error) func() error {
	return func() error {
		start := time.Now()
		err := read()
		s.metrics.ObserveStoreRead(source, err, time.Since(start))
		if err != nil {
			return storeUnavailable(err, source)
		}
		return nil
	}
}

// Get resolves one occurrence token to its full detail, attendance included.
// Tokens that do not resolve for the requester are reported as not found.
func (s *AgendaService) Get(ctx context.Context, requester models.Requester, organizationID, token string) (*models.UnifiedOccurrence, error) {
	tok, err := agenda.Decode(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
	}
	sc, err := s.scope(ctx, requester, organizationID, tok.Kind == models.KindPersonalSession)
	if err != nil {
		return nil, err
	}
	engine := sc.engine(s.labels)

	var occ models.UnifiedOccurrence
	switch tok.Kind {
	case models.KindTemplateVirtual:
		occ, err = s.getVirtual(ctx, sc, engine, tok)
	case models.KindTemplateMaterialized:
		occ, err = s.getMaterialized(ctx, sc, engine, tok.ID)
	case models.KindAdHocClass:
		occ, err = s.getClass(ctx, sc, engine, tok.ID)
	case models.KindPersonalSession:
		occ, err = s.getSession(ctx, sc, engine, tok.ID)
	default:
		err = errOccurrenceNotFound()
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

func (s *AgendaService) getVirtual(ctx context.Context, sc agendaScope, engine *agenda.Engine, tok agenda.Token) (models.UnifiedOccurrence, error) {
	tpl, err := s.ownedTemplate(ctx, sc, tok.TemplateID)
	if err != nil {
		return models.UnifiedOccurrence{}, err
	}
	override, err := s.overrides.FindByTemplateDate(ctx, tpl.ID, tok.Date)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		override = nil
	case err != nil:
		return models.UnifiedOccurrence{}, storeUnavailable(err, "overrides")
	default:
		if err := s.attachOverrideAttendance(ctx, override); err != nil {
			return models.UnifiedOccurrence{}, err
		}
	}
	return s.rederive(engine, *tpl, tok.Date, override)
}

func (s *AgendaService) getMaterialized(ctx context.Context, sc agendaScope, engine *agenda.Engine, id string) (models.UnifiedOccurrence, error) {
	override, err := s.overrides.FindByID(ctx, id)
	if err != nil {
		return models.UnifiedOccurrence{}, notFoundOr(err, "overrides")
	}
	tpl, err := s.ownedTemplate(ctx, sc, override.TemplateID)
	if err != nil {
		return models.UnifiedOccurrence{}, err
	}
	if err := s.attachOverrideAttendance(ctx, override); err != nil {
		return models.UnifiedOccurrence{}, err
	}
	return s.rederive(engine, *tpl, override.Date, override)
}

func (s *AgendaService) getClass(ctx context.Context, sc agendaScope, engine *agenda.Engine, id string) (models.UnifiedOccurrence, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		return models.UnifiedOccurrence{}, notFoundOr(err, "classes")
	}
	if class.OrganizationID != sc.org.ID {
		return models.UnifiedOccurrence{}, errOccurrenceNotFound()
	}
	attendance, err := s.classes.ListAttendance(ctx, class.ID)
	if err != nil {
		return models.UnifiedOccurrence{}, storeUnavailable(err, "attendance")
	}
	class.Attendance = attendance
	return engine.FromClass(*class), nil
}

func (s *AgendaService) getSession(ctx context.Context, sc agendaScope, engine *agenda.Engine, id string) (models.UnifiedOccurrence, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return models.UnifiedOccurrence{}, notFoundOr(err, "personal_sessions")
	}
	if session.OrganizationID != sc.org.ID {
		return models.UnifiedOccurrence{}, errOccurrenceNotFound()
	}
	if !sc.visibility.Allows(*session) {
		logger.Audit(s.logger).Info("personal session detail hidden",
			zap.String("user_id", sc.requester.UserID),
			zap.String("role", string(sc.requester.Role)),
			zap.String("session_id", session.ID),
		)
		return models.UnifiedOccurrence{}, errOccurrenceNotFound()
	}
	return engine.FromSession(*session), nil
}

// ownedTemplate loads an active template of the scoped organization.
func (s *AgendaService) ownedTemplate(ctx context.Context, sc agendaScope, id string) (*models.RecurrenceTemplate, error) {
	tpl, err := s.templateRows.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "templates")
	}
	if tpl.OrganizationID != sc.org.ID || !tpl.Active {
		return nil, errOccurrenceNotFound()
	}
	return tpl, nil
}

func (s *AgendaService) attachOverrideAttendance(ctx context.Context, override *models.OccurrenceOverride) error {
	attendance, err := s.overrides.ListAttendance(ctx, override.ID)
	if err != nil {
		return storeUnavailable(err, "attendance")
	}
	override.Attendance = attendance
	return nil
}

func (s *AgendaService) rederive(engine *agenda.Engine, tpl models.RecurrenceTemplate, d localdate.Date, override *models.OccurrenceOverride) (models.UnifiedOccurrence, error) {
	occ, err := engine.Rederive(tpl, d, override)
	if err != nil {
		if errors.Is(err, agenda.ErrOccurrenceGone) {
			return models.UnifiedOccurrence{}, errOccurrenceNotFound()
		}
		return models.UnifiedOccurrence{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild occurrence")
	}
	return occ, nil
}

func errOccurrenceNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
}

func notFoundOr(err error, source string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errOccurrenceNotFound()
	}
	return storeUnavailable(err, source)
}

// storeUnavailable marks a store failure as retryable unless it already carries
// an application error.
func storeUnavailable(err error, source string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, source+" store unavailable, retry later")
}

func windowOf(w localdate.Window) dto.AgendaWindow {
	return dto.AgendaWindow{Start: w.Start.String(), End: w.End.String()}
}
