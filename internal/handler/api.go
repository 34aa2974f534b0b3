package handler

import (
	"context"
	"time"

	"github.com/liblogin/internal/cache"
	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/logger"
	"github.com/liblogin/internal/service"
	"gorm.io/gorm"
)

type contentProvider interface {
	Resolve(ctx context.Context, scope service.Scope, explicitTemplateID *uint) (service.ContentBundle, error)
	ResolveBackground(ctx context.Context, scope service.Scope) (service.BackgroundView, error)
	ResolveSlides(ctx context.Context, scope service.Scope) ([]service.SlideView, error)
	List(ctx context.Context, kind service.ContentKind, filter service.ContentFilter) ([]service.ContentItem, error)
	Get(ctx context.Context, kind service.ContentKind, id uint) (service.ContentItem, error)
	Create(ctx context.Context, kind service.ContentKind, input service.ContentInput, actorID *uint) (service.ContentItem, error)
	Update(ctx context.Context, kind service.ContentKind, id uint, input service.ContentInput) (service.ContentItem, error)
	Delete(ctx context.Context, kind service.ContentKind, id uint) error
	Activate(ctx context.Context, kind service.ContentKind, id uint) (service.ContentItem, error)
	Deactivate(ctx context.Context, kind service.ContentKind, id uint) (service.ContentItem, error)
}

type landingProvider interface {
	Resolve(ctx context.Context, hotspot string, now time.Time) (service.LandingResult, error)
	List(ctx context.Context, hotspot string) ([]db.LandingPageURL, error)
	Get(ctx context.Context, id uint) (db.LandingPageURL, error)
	Create(ctx context.Context, input service.LandingInput, actorID *uint) (db.LandingPageURL, error)
	Update(ctx context.Context, id uint, input service.LandingInput) (db.LandingPageURL, error)
	Delete(ctx context.Context, id uint) error
	Activate(ctx context.Context, id uint) (db.LandingPageURL, error)
}

type hotspotProvider interface {
	List(ctx context.Context) ([]service.HotspotView, error)
	Get(ctx context.Context, id uint) (service.HotspotView, error)
	Create(ctx context.Context, input service.HotspotInput, actorID *uint) (service.HotspotView, error)
	Update(ctx context.Context, id uint, input service.HotspotInput) (service.HotspotView, error)
	Delete(ctx context.Context, id uint) error
	CheckConnection(ctx context.Context, id uint) (service.HotspotView, error)
	ImportFromFolders(ctx context.Context, dryRun, checkConnection bool) (service.ImportReport, error)
}

type settingsProvider interface {
	Get(ctx context.Context) (service.PortalSettings, error)
	Update(ctx context.Context, input service.SettingsInput, actorID *uint) (service.PortalSettings, error)
}

// Options configures NewAPI.
type Options struct {
	MediaBaseURL          string
	HotspotRoot           string
	Location              *time.Location
	LandingTTL            time.Duration
	DefaultTargetAudience int
	Logger                *logger.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	content     contentProvider
	impressions impressionProvider
	reach       reachProvider
	rollups     rollupProvider
	landing     landingProvider
	hotspots    hotspotProvider
	settings    settingsProvider
	users       userAuthenticator
	log         *logger.Logger
	loc         *time.Location
	audience    int
	now         func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, store cache.Store, opts Options) *API {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	audience := opts.DefaultTargetAudience
	if audience <= 0 {
		audience = 1000
	}

	landing := service.NewLandingService(gdb, store, opts.LandingTTL)

	return &API{
		db:          gdb,
		content:     service.NewContentService(gdb, opts.MediaBaseURL),
		impressions: service.NewImpressionService(gdb, loc),
		reach:       service.NewReachService(gdb, loc),
		rollups:     service.NewRollupService(gdb, loc),
		landing:     landing,
		hotspots:    service.NewHotspotService(gdb, opts.HotspotRoot, landing),
		settings:    service.NewSettingsService(gdb),
		users:       dbUsers{db: gdb},
		log:         log,
		loc:         loc,
		audience:    audience,
		now:         time.Now,
	}
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}
