package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/logger"
	"github.com/liblogin/internal/service"
)

var errStorageDown = &service.InternalError{Op: "query", Err: errors.New("database is locked")}

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type contentStub struct {
	bundle     service.ContentBundle
	err        error
	scope      service.Scope
	templateID *uint
	kind       service.ContentKind
	filter     service.ContentFilter
	input      service.ContentInput
	actorID    *uint
}

func (s *contentStub) Resolve(_ context.Context, scope service.Scope, id *uint) (service.ContentBundle, error) {
	s.scope = scope
	s.templateID = id
	return s.bundle, s.err
}

func (s *contentStub) ResolveBackground(_ context.Context, scope service.Scope) (service.BackgroundView, error) {
	s.scope = scope
	return s.bundle.Background, s.err
}

func (s *contentStub) ResolveSlides(_ context.Context, scope service.Scope) ([]service.SlideView, error) {
	s.scope = scope
	return s.bundle.Slides, s.err
}

func (s *contentStub) List(_ context.Context, kind service.ContentKind, filter service.ContentFilter) ([]service.ContentItem, error) {
	s.kind = kind
	s.filter = filter
	return []service.ContentItem{}, s.err
}

func (s *contentStub) Get(_ context.Context, kind service.ContentKind, id uint) (service.ContentItem, error) {
	s.kind = kind
	return service.ContentItem{Kind: kind, ID: id}, s.err
}

func (s *contentStub) Create(_ context.Context, kind service.ContentKind, in service.ContentInput, actorID *uint) (service.ContentItem, error) {
	s.kind = kind
	s.input = in
	s.actorID = actorID
	return service.ContentItem{Kind: kind, ID: 1, Title: in.Title}, s.err
}

func (s *contentStub) Update(_ context.Context, kind service.ContentKind, id uint, in service.ContentInput) (service.ContentItem, error) {
	s.kind = kind
	s.input = in
	return service.ContentItem{Kind: kind, ID: id, Title: in.Title}, s.err
}

func (s *contentStub) Delete(_ context.Context, kind service.ContentKind, _ uint) error {
	s.kind = kind
	return s.err
}

func (s *contentStub) Activate(_ context.Context, kind service.ContentKind, id uint) (service.ContentItem, error) {
	s.kind = kind
	return service.ContentItem{Kind: kind, ID: id, IsActive: true}, s.err
}

func (s *contentStub) Deactivate(_ context.Context, kind service.ContentKind, id uint) (service.ContentItem, error) {
	s.kind = kind
	return service.ContentItem{Kind: kind, ID: id}, s.err
}

type impressionStub struct {
	result  service.RecordResult
	err     error
	input   service.ImpressionInput
	window  service.Window
	hotspot string
}

func (s *impressionStub) Record(_ context.Context, in service.ImpressionInput, _ time.Time) (service.RecordResult, error) {
	s.input = in
	return s.result, s.err
}

func (s *impressionStub) Summary(_ context.Context, w service.Window, hotspot string) (service.ImpressionSummary, error) {
	s.window = w
	s.hotspot = hotspot
	return service.ImpressionSummary{Window: w, HotspotName: hotspot}, s.err
}

type reachStub struct {
	query service.ReportQuery
	err   error
}

func (s *reachStub) Report(_ context.Context, q service.ReportQuery) (service.ReachReport, error) {
	s.query = q
	return service.ReachReport{Window: q.Window, HotspotName: q.HotspotName, TargetAudience: q.TargetAudience}, s.err
}

type rollupStub struct {
	day  service.Window
	err  error
	from string
	to   string
}

func (s *rollupStub) Rollup(_ context.Context, day service.Window) ([]db.DailyReachStats, error) {
	s.day = day
	return []db.DailyReachStats{}, s.err
}

func (s *rollupStub) ListDaily(_ context.Context, _ string, from, to string) ([]db.DailyReachStats, error) {
	s.from, s.to = from, to
	return []db.DailyReachStats{}, s.err
}

type landingStub struct {
	result  service.LandingResult
	err     error
	hotspot string
}

func (s *landingStub) Resolve(_ context.Context, hotspot string, _ time.Time) (service.LandingResult, error) {
	s.hotspot = hotspot
	return s.result, s.err
}

func (s *landingStub) List(context.Context, string) ([]db.LandingPageURL, error) {
	return []db.LandingPageURL{}, s.err
}

func (s *landingStub) Get(_ context.Context, id uint) (db.LandingPageURL, error) {
	return db.LandingPageURL{ID: id}, s.err
}

func (s *landingStub) Create(_ context.Context, in service.LandingInput, _ *uint) (db.LandingPageURL, error) {
	return db.LandingPageURL{ID: 1, URL: in.URL, HotspotName: in.HotspotName}, s.err
}

func (s *landingStub) Update(_ context.Context, id uint, in service.LandingInput) (db.LandingPageURL, error) {
	return db.LandingPageURL{ID: id, URL: in.URL, HotspotName: in.HotspotName}, s.err
}

func (s *landingStub) Delete(context.Context, uint) error { return s.err }

func (s *landingStub) Activate(_ context.Context, id uint) (db.LandingPageURL, error) {
	return db.LandingPageURL{ID: id, IsActive: true}, s.err
}

type settingsStub struct {
	settings service.PortalSettings
	err      error
}

func (s *settingsStub) Get(context.Context) (service.PortalSettings, error) {
	return s.settings, s.err
}

func (s *settingsStub) Update(_ context.Context, in service.SettingsInput, _ *uint) (service.PortalSettings, error) {
	return service.PortalSettings{LibraryName: in.LibraryName, Saved: true}, s.err
}

func newTestAPI() *API {
	return &API{
		content:     &contentStub{},
		impressions: &impressionStub{},
		reach:       &reachStub{},
		rollups:     &rollupStub{},
		landing:     &landingStub{},
		settings:    &settingsStub{settings: service.PortalSettings{LibraryName: service.DefaultLibraryName}},
		log:         logger.Nop(),
		loc:         time.UTC,
		audience:    1000,
		now:         func() time.Time { return fixedNow },
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions("liblogin_session", cookie.NewStore([]byte("test-secret"))))
	return router
}

func perform(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}
