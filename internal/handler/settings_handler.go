package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/service"
)

type settingsRequest struct {
	OrganizationName             string `json:"organization_name"`
	LibraryName                  string `json:"library_name"`
	ContactInfo                  string `json:"contact_info"`
	LogoPath                     string `json:"logo_path"`
	DefaultHotspotName           string `json:"default_hotspot_name"`
	HotspotStatusRefreshInterval int    `json:"hotspot_status_refresh_interval"`
}

// GetSettings returns the portal settings or their defaults.
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "get settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings saves the portal settings.
func (a *API) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	settings, err := a.settings.Update(c.Request.Context(), service.SettingsInput{
		OrganizationName:             req.OrganizationName,
		LibraryName:                  req.LibraryName,
		ContactInfo:                  req.ContactInfo,
		LogoPath:                     req.LogoPath,
		DefaultHotspotName:           req.DefaultHotspotName,
		HotspotStatusRefreshInterval: req.HotspotStatusRefreshInterval,
	}, currentUserID(c))
	if err != nil {
		a.respondServiceError(c, err, "update settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
