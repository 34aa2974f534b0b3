package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/metrics"
	"github.com/liblogin/internal/service"
)

type brandingView struct {
	OrganizationName string `json:"organization_name"`
	LibraryName      string `json:"library_name"`
	ContactInfo      string `json:"contact_info"`
	LogoPath         string `json:"logo_path"`
}

func contentPayload(bundle service.ContentBundle, branding brandingView, degraded bool) gin.H {
	payload := gin.H{
		"template_id":          bundle.TemplateID,
		"template_name":        bundle.TemplateName,
		"left_panel_component": bundle.LeftPanelComponent,
		"hotspot_name":         bundle.HotspotName,
		"background":           bundle.Background,
		"tier":                 bundle.Tier,
		"branding":             branding,
		"degraded":             degraded,
	}
	if bundle.Cards != nil {
		payload["cards"] = bundle.Cards
	}
	if bundle.Slides != nil {
		payload["slides"] = bundle.Slides
	}
	return payload
}

func synthesizedBundle(scope service.Scope) service.ContentBundle {
	return service.ContentBundle{
		TemplateName:       service.SynthesizedTemplateName,
		LeftPanelComponent: db.ComponentSlideshow,
		HotspotName:        scope.Column(),
		Slides:             []service.SlideView{},
		Tier:               service.TierSynthesized,
	}
}

func (a *API) branding(c *gin.Context) brandingView {
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		a.log.Warn("load settings for branding failed", "error", err, "request_id", requestID(c))
	}
	return brandingView{
		OrganizationName: settings.OrganizationName,
		LibraryName:      settings.LibraryName,
		ContactInfo:      settings.ContactInfo,
		LogoPath:         settings.LogoPath,
	}
}

// GetContent serves the login page bundle of a hotspot. Storage failures degrade
// to the built-in default so the captive portal keeps working.
func (a *API) GetContent(c *gin.Context) {
	scope := service.NamedScope(hotspotParam(c))
	templateID, err := parseOptionalUint(c.Query("template_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid template_id")
		return
	}

	bundle, err := a.content.Resolve(c.Request.Context(), scope, templateID)
	degraded := false
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		a.log.Error("resolve content failed", "error", err, "hotspot_name", scope.String(), "request_id", requestID(c))
		bundle = synthesizedBundle(scope)
		degraded = true
	}

	metrics.ContentResolutions.WithLabelValues(string(bundle.Tier)).Inc()
	c.JSON(http.StatusOK, contentPayload(bundle, a.branding(c), degraded))
}

// GetLoginBackground returns only the background of a hotspot.
func (a *API) GetLoginBackground(c *gin.Context) {
	scope := service.NamedScope(hotspotParam(c))
	background, err := a.content.ResolveBackground(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("resolve background failed", "error", err, "hotspot_name", scope.String(), "request_id", requestID(c))
		c.JSON(http.StatusOK, gin.H{"background": service.BackgroundView{}, "degraded": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"background": background, "degraded": false})
}

// GetSlideContent returns only the slides of a hotspot.
func (a *API) GetSlideContent(c *gin.Context) {
	scope := service.NamedScope(hotspotParam(c))
	slides, err := a.content.ResolveSlides(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("resolve slides failed", "error", err, "hotspot_name", scope.String(), "request_id", requestID(c))
		c.JSON(http.StatusOK, gin.H{"slides": []service.SlideView{}, "degraded": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slides": slides, "degraded": false})
}

type impressionRequest struct {
	HotspotName      string `json:"hotspot_name"`
	DeviceIdentifier string `json:"device_identifier"`
	MacAddress       string `json:"mac_address"`
	IP               string `json:"ip"`
	UserAgent        string `json:"user_agent"`
	TimeOnPage       *int   `json:"time_on_page"`
}

// RecordImpression logs one login page view.
func (a *API) RecordImpression(c *gin.Context) {
	var req impressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "invalid_body"})
		return
	}

	device := strings.TrimSpace(req.DeviceIdentifier)
	if device == "" {
		device = strings.TrimSpace(req.MacAddress)
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		ip = c.ClientIP()
	}
	ua := req.UserAgent
	if strings.TrimSpace(ua) == "" {
		ua = c.Request.UserAgent()
	}

	result, err := a.impressions.Record(c.Request.Context(), service.ImpressionInput{
		HotspotName:      req.HotspotName,
		DeviceIdentifier: device,
		IPAddress:        ip,
		UserAgent:        ua,
		TimeOnPage:       req.TimeOnPage,
	}, a.now())
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			a.respondServiceError(c, err, "record impression")
			return
		}
		a.log.Error("record impression failed", "error", err, "hotspot_name", req.HotspotName,
			"device_identifier", device, "request_id", requestID(c))
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}

	unique := "false"
	if result.IsUniqueToday {
		unique = "true"
	}
	metrics.ImpressionsRecorded.WithLabelValues(result.DeviceClass, unique).Inc()
	c.JSON(http.StatusCreated, result)
}

// GetLandingURL returns the post-login redirect of a hotspot. Failures answer
// with a fallback so the login flow is never blocked.
func (a *API) GetLandingURL(c *gin.Context) {
	hotspot := hotspotParam(c)
	result, err := a.landing.Resolve(c.Request.Context(), hotspot, a.now())
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			a.respondServiceError(c, err, "resolve landing url")
			return
		}
		a.log.Error("resolve landing url failed", "error", err, "hotspot_name", hotspot, "request_id", requestID(c))
		c.JSON(http.StatusOK, gin.H{"success": false, "landing_url": nil, "fallback": true})
		return
	}

	metrics.LandingCacheLookups.WithLabelValues(result.Cache).Inc()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"landing_url": result.URL,
		"title":       result.Title,
		"fallback":    result.Fallback,
	})
}

// Healthz pings the database.
func (a *API) Healthz(c *gin.Context) {
	if a.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		a.log.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
