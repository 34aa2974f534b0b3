package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/service"
)

type landingRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	HotspotName string `json:"hotspot_name"`
	IsActive    bool   `json:"is_active"`
	Priority    int    `json:"priority"`
}

func (r landingRequest) input() service.LandingInput {
	return service.LandingInput{
		Title:       r.Title,
		URL:         r.URL,
		HotspotName: r.HotspotName,
		IsActive:    r.IsActive,
		Priority:    r.Priority,
	}
}

// ListLandingURLs lists landing URLs, optionally for one hotspot.
func (a *API) ListLandingURLs(c *gin.Context) {
	rows, err := a.landing.List(c.Request.Context(), hotspotParam(c))
	if err != nil {
		a.respondServiceError(c, err, "list landing urls")
		return
	}
	c.JSON(http.StatusOK, gin.H{"landing_urls": rows})
}

// GetLandingURLItem loads one landing URL.
func (a *API) GetLandingURLItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid landing url id")
		return
	}
	row, err := a.landing.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "get landing url")
		return
	}
	c.JSON(http.StatusOK, row)
}

// CreateLandingURL adds a landing URL.
func (a *API) CreateLandingURL(c *gin.Context) {
	var req landingRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	row, err := a.landing.Create(c.Request.Context(), req.input(), currentUserID(c))
	if err != nil {
		a.respondServiceError(c, err, "create landing url")
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateLandingURL edits a landing URL.
func (a *API) UpdateLandingURL(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid landing url id")
		return
	}
	var req landingRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	row, err := a.landing.Update(c.Request.Context(), id, req.input())
	if err != nil {
		a.respondServiceError(c, err, "update landing url")
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteLandingURL removes a landing URL.
func (a *API) DeleteLandingURL(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid landing url id")
		return
	}
	if err := a.landing.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "delete landing url")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ActivateLandingURL makes the URL the only active one of its hotspot.
func (a *API) ActivateLandingURL(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid landing url id")
		return
	}
	row, err := a.landing.Activate(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "activate landing url")
		return
	}
	c.JSON(http.StatusOK, row)
}
