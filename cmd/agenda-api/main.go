package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gym-agenda-api/api/swagger"
	"github.com/noah-isme/gym-agenda-api/internal/handler"
	internalmiddleware "github.com/noah-isme/gym-agenda-api/internal/middleware"
	"github.com/noah-isme/gym-agenda-api/internal/models"
	"github.com/noah-isme/gym-agenda-api/internal/repository"
	"github.com/noah-isme/gym-agenda-api/internal/service"
	"github.com/noah-isme/gym-agenda-api/pkg/cache"
	"github.com/noah-isme/gym-agenda-api/pkg/config"
	"github.com/noah-isme/gym-agenda-api/pkg/database"
	"github.com/noah-isme/gym-agenda-api/pkg/labels"
	"github.com/noah-isme/gym-agenda-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gym-agenda-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gym-agenda-api/pkg/middleware/requestid"
	"github.com/noah-isme/gym-agenda-api/pkg/signing"
)

// @title Gym Agenda API
// @version 1.0.0
// @description Unified agenda of recurring classes, ad-hoc classes and personal sessions.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("agenda api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, agenda caching disabled", zap.Error(err))
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Agenda.StatsCacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient)
		checks["redis"] = cacheRepo
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Agenda.StatsCacheTTL, logr, true)
	}

	labelSet, err := labels.Load(cfg.Agenda.LabelsFile)
	if err != nil {
		return err
	}

	templateRepo := repository.NewTemplateRepository(db)
	templateCache := service.NewTemplateCache(templateRepo, cacheSvc, cfg.Agenda.TemplateCacheTTL, logr)

	agendaSvc := service.NewAgendaService(service.AgendaServiceParams{
		Templates:     templateCache,
		TemplateRows:  templateRepo,
		Overrides:     repository.NewOverrideRepository(db),
		Classes:       repository.NewClassRepository(db),
		Sessions:      repository.NewPersonalSessionRepository(db),
		Organizations: repository.NewOrganizationRepository(db),
		Identities:    repository.NewIdentityRepository(db),
		Cache:         cacheSvc,
		Labels:        labelSet,
		Metrics:       metrics,
		Validator:     validator.New(),
		Logger:        logr,
		Config: service.AgendaServiceConfig{
			DefaultTimezone: cfg.Agenda.DefaultTimezone,
			HorizonDays:     cfg.Agenda.HorizonDays,
			MaxWindowDays:   cfg.Agenda.MaxWindowDays,
			WeekStart:       cfg.Agenda.WeekStart,
			StatsCacheTTL:   cfg.Agenda.StatsCacheTTL,
		},
	})
	statsSvc := service.NewAgendaStatsService(agendaSvc)
	apiPrefix := strings.TrimRight(cfg.APIPrefix, "/")
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Agenda: agendaSvc,
		Signer: signing.NewFeedSigner(cfg.Agenda.FeedSecret, cfg.Agenda.FeedTTL),
		Logger: logr,
		Config: service.ExportServiceConfig{FeedPath: apiPrefix + "/agenda/feed/"},
	})
	adminSvc := service.NewTemplateAdminService(agendaSvc, templateRepo, templateCache, logr)

	warmer := service.NewTemplateCacheWarmer(templateCache, templateRepo, service.TemplateCacheWarmerConfig{
		Schedule: cfg.Agenda.CacheWarmCron,
		Workers:  cfg.Agenda.WarmWorkers,
	}, logr)
	if cacheSvc.Enabled() {
		if err := warmer.Start(ctx); err != nil {
			return err
		}
		defer warmer.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(metrics, "/health", "/ready", "/metrics"))
	}

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	agendaHandler := handler.NewAgendaHandler(agendaSvc, statsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	templateHandler := handler.NewTemplateHandler(adminSvc)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	api := r.Group(apiPrefix + "/agenda")
	api.GET("/feed/:token", exportHandler.Feed)

	secured := api.Group("", internalmiddleware.JWT(verifier))
	secured.GET("/occurrences", agendaHandler.List)
	secured.GET("/occurrences/:token", agendaHandler.Get)
	secured.GET("/stats/today", agendaHandler.Today)
	secured.GET("/stats/week", agendaHandler.Week)
	secured.GET("/export", internalmiddleware.Audit(logr, "export", "agenda"), exportHandler.Export)
	secured.POST("/feed", internalmiddleware.Audit(logr, "issue", "agenda_feed"), exportHandler.IssueFeed)
	secured.PATCH("/templates/bulk",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
		templateHandler.BulkSetActive,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
