package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/pkg/jobs"
)

const (
	templateCachePrefix = "agenda:templates:"
	statsCachePrefix    = "agenda:stats:"
	warmJobType         = "template_cache_warm"
)

type templateStore interface {
	ListActive(ctx context.Context, filter models.TemplateFilter) ([]models.RecurrenceTemplate, error)
}

type organizationLister interface {
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}

// TemplateCache is a read-through cache of the active templates of each
// organization. Entries expire after the configured TTL, which bounds how long a
// template edit made elsewhere may stay invisible.
type TemplateCache struct {
	store  templateStore
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewTemplateCache constructs a TemplateCache. A nil or disabled cache reads through
// to the store on every call.
func NewTemplateCache(store templateStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TemplateCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateCache{store: store, cache: cache, ttl: ttl, logger: logger}
}

func templateCacheKey(organizationID string) string {
	return templateCachePrefix + organizationID
}

// Active returns the active templates matching filter and whether they came from
// the cache. Cache failures degrade to a store read; store failures are returned.
func (c *TemplateCache) Active(ctx context.Context, filter models.TemplateFilter) ([]models.RecurrenceTemplate, bool, error) {
	key := templateCacheKey(filter.OrganizationID)
	var cached []models.RecurrenceTemplate
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("template cache unavailable, reading store", zap.String("organization_id", filter.OrganizationID), zap.Error(err))
	}
	if hit {
		return filterTemplates(cached, filter), true, nil
	}

	all, err := c.load(ctx, filter.OrganizationID)
	if err != nil {
		return nil, false, err
	}
	return filterTemplates(all, filter), false, nil
}

// Refresh reloads the organization's templates into the cache.
func (c *TemplateCache) Refresh(ctx context.Context, organizationID string) error {
	_, err := c.load(ctx, organizationID)
	return err
}

func (c *TemplateCache) load(ctx context.Context, organizationID string) ([]models.RecurrenceTemplate, error) {
	all, err := c.store.ListActive(ctx, models.TemplateFilter{OrganizationID: organizationID})
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []models.RecurrenceTemplate{}
	}
	// Set already logs failures; a stale or missing entry only costs a store read.
	_ = c.cache.Set(ctx, templateCacheKey(organizationID), all, c.ttl)
	return all, nil
}

// Invalidate drops the cached templates and derived stats of an organization.
func (c *TemplateCache) Invalidate(ctx context.Context, organizationID string) error {
	return c.cache.Invalidate(ctx, templateCacheKey(organizationID), statsCachePrefix+"*:"+organizationID+":*")
}

// filterTemplates applies the instructor, course and window restrictions the store
// would otherwise apply in SQL.
func filterTemplates(all []models.RecurrenceTemplate, filter models.TemplateFilter) []models.RecurrenceTemplate {
	out := make([]models.RecurrenceTemplate, 0, len(all))
	for _, t := range all {
		if !t.Active {
			continue
		}
		if filter.InstructorID != "" && t.InstructorID != filter.InstructorID {
			continue
		}
		if filter.CourseID != "" && t.CourseID != filter.CourseID {
			continue
		}
		if filter.Window.Valid() {
			if t.ValidFrom.After(filter.Window.End) {
				continue
			}
			if t.ValidUntil != nil && t.ValidUntil.Before(filter.Window.Start) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// TemplateCacheWarmerConfig tunes periodic warming.
type TemplateCacheWarmerConfig struct {
	Schedule string
	Workers  int
}

// TemplateCacheWarmer refreshes every organization's template cache on a cron
// schedule. Each tick enqueues one job per organization on a worker queue; jobs for
// an organization still being refreshed are coalesced.
type TemplateCacheWarmer struct {
	cache  *TemplateCache
	orgs   organizationLister
	queue  *jobs.Queue
	cron   *cron.Cron
	cfg    TemplateCacheWarmerConfig
	logger *zap.Logger
}

// NewTemplateCacheWarmer wires the warmer. Start must be called to begin warming.
func NewTemplateCacheWarmer(cache *TemplateCache, orgs organizationLister, cfg TemplateCacheWarmerConfig, logger *zap.Logger) *TemplateCacheWarmer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &TemplateCacheWarmer{
		cache:  cache,
		orgs:   orgs,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	w.queue = jobs.NewQueue("template-cache-warm", w.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Workers * 64,
		MaxRetries: 1,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return w
}

// Start launches the worker queue and the cron scheduler. An empty schedule
// disables warming.
func (w *TemplateCacheWarmer) Start(ctx context.Context) error {
	if w.cfg.Schedule == "" {
		w.logger.Info("template cache warming disabled")
		return nil
	}
	w.queue.Start(ctx)
	if _, err := w.cron.AddFunc(w.cfg.Schedule, func() { w.Tick(ctx) }); err != nil {
		w.queue.Stop()
		return fmt.Errorf("schedule template cache warming %q: %w", w.cfg.Schedule, err)
	}
	w.cron.Start()
	w.logger.Info("template cache warming scheduled", zap.String("schedule", w.cfg.Schedule), zap.Int("workers", w.cfg.Workers))
	return nil
}

// Stop halts the scheduler and drains the workers.
func (w *TemplateCacheWarmer) Stop() {
	<-w.cron.Stop().Done()
	w.queue.Stop()
}

// Tick enqueues a refresh for every organization owning active templates and
// returns how many jobs were accepted.
func (w *TemplateCacheWarmer) Tick(ctx context.Context) int {
	ids, err := w.orgs.ListOrganizationIDs(ctx)
	if err != nil {
		w.logger.Warn("list organizations for cache warming failed", zap.Error(err))
		return 0
	}
	accepted := 0
	for _, id := range ids {
		err := w.queue.TryEnqueue(jobs.Job{Type: warmJobType, Key: id, Payload: id})
		if err != nil {
			w.logger.Warn("cache warm job rejected", zap.String("organization_id", id), zap.Error(err))
			continue
		}
		accepted++
	}
	return accepted
}

func (w *TemplateCacheWarmer) handle(ctx context.Context, job jobs.Job) error {
	organizationID, ok := job.Payload.(string)
	if !ok || organizationID == "" {
		return nil
	}
	return w.cache.Refresh(ctx, organizationID)
}
