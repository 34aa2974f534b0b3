package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/handler"
	"github.com/liblogin/internal/logger"
	"github.com/liblogin/internal/metrics"
)

const sessionName = "liblogin_session"

// Options configures SetupRouter.
type Options struct {
	SessionSecret string
	Logger        *logger.Logger
	// ImpressionLimiter throttles POST /api/impressions; nil disables throttling.
	ImpressionLimiter *handler.RateLimiter
}

// SetupRouter wires the middleware chain and every route.
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger(opts.Logger), metrics.Middleware())

	secret := opts.SessionSecret
	if secret == "" {
		secret = "secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 86400 * 7, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/healthz", api.Healthz)
	r.GET("/metrics", metrics.Handler())

	public := r.Group("/api")
	{
		public.GET("/content", api.GetContent)
		public.GET("/login-background", api.GetLoginBackground)
		public.GET("/slide-content", api.GetSlideContent)
		public.GET("/landing-url", api.GetLandingURL)

		impressions := []gin.HandlerFunc{}
		if opts.ImpressionLimiter != nil {
			impressions = append(impressions, opts.ImpressionLimiter.Middleware())
		}
		impressions = append(impressions, api.RecordImpression)
		public.POST("/impressions", impressions...)

		public.POST("/admin/login", api.Login)
		public.POST("/admin/logout", api.Logout)
	}

	// Reporting and admin routes need a session.
	auth := r.Group("/api", handler.AuthRequired())
	{
		auth.GET("/reach-report", api.GetReachReport)
		auth.GET("/impressions/summary", api.GetImpressionSummary)
		auth.GET("/reach-stats", api.GetReachStats)

		admin := auth.Group("/admin")
		admin.POST("/reach-stats/rollup", api.RunRollup)

		admin.GET("/content/:kind", api.ListContent)
		admin.POST("/content/:kind", api.CreateContent)
		admin.GET("/content/:kind/:id", api.GetContentItem)
		admin.PUT("/content/:kind/:id", api.UpdateContent)
		admin.DELETE("/content/:kind/:id", api.DeleteContent)
		admin.POST("/content/:kind/:id/activate", api.ActivateContent)
		admin.POST("/content/:kind/:id/deactivate", api.DeactivateContent)

		admin.GET("/landing-urls", api.ListLandingURLs)
		admin.POST("/landing-urls", api.CreateLandingURL)
		admin.GET("/landing-urls/:id", api.GetLandingURLItem)
		admin.PUT("/landing-urls/:id", api.UpdateLandingURL)
		admin.DELETE("/landing-urls/:id", api.DeleteLandingURL)
		admin.POST("/landing-urls/:id/activate", api.ActivateLandingURL)

		admin.GET("/hotspots", api.ListHotspots)
		admin.POST("/hotspots", api.CreateHotspot)
		admin.POST("/hotspots/import", api.ImportHotspots)
		admin.GET("/hotspots/:id", api.GetHotspot)
		admin.PUT("/hotspots/:id", api.UpdateHotspot)
		admin.DELETE("/hotspots/:id", api.DeleteHotspot)
		admin.POST("/hotspots/:id/check", api.CheckHotspot)

		admin.GET("/settings", api.GetSettings)
		admin.PUT("/settings", api.UpdateSettings)
	}

	return r
}
