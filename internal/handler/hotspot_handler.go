package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/service"
)

type hotspotRequest struct {
	HotspotName string `json:"hotspot_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (r hotspotRequest) input() service.HotspotInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.HotspotInput{
		HotspotName: r.HotspotName,
		DisplayName: r.DisplayName,
		Description: r.Description,
		IsActive:    active,
	}
}

func hotspotID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid hotspot id")
		return 0, false
	}
	return id, true
}

// ListHotspots lists every hotspot with its check status.
func (a *API) ListHotspots(c *gin.Context) {
	rows, err := a.hotspots.List(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, err, "list hotspots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotspots": rows})
}

// GetHotspot loads one hotspot.
func (a *API) GetHotspot(c *gin.Context) {
	id, ok := hotspotID(c)
	if !ok {
		return
	}
	row, err := a.hotspots.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "get hotspot")
		return
	}
	c.JSON(http.StatusOK, row)
}

// CreateHotspot registers a hotspot.
func (a *API) CreateHotspot(c *gin.Context) {
	var req hotspotRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	row, err := a.hotspots.Create(c.Request.Context(), req.input(), currentUserID(c))
	if err != nil {
		a.respondServiceError(c, err, "create hotspot")
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateHotspot edits a hotspot. A rename carries its content along.
func (a *API) UpdateHotspot(c *gin.Context) {
	id, ok := hotspotID(c)
	if !ok {
		return
	}
	var req hotspotRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	row, err := a.hotspots.Update(c.Request.Context(), id, req.input())
	if err != nil {
		a.respondServiceError(c, err, "update hotspot")
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteHotspot removes a hotspot and its scoped content.
func (a *API) DeleteHotspot(c *gin.Context) {
	id, ok := hotspotID(c)
	if !ok {
		return
	}
	if err := a.hotspots.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "delete hotspot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// CheckHotspot inspects the hotspot folder and stores the result.
func (a *API) CheckHotspot(c *gin.Context) {
	id, ok := hotspotID(c)
	if !ok {
		return
	}
	row, err := a.hotspots.CheckConnection(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "check hotspot")
		return
	}
	c.JSON(http.StatusOK, row)
}

// ImportHotspots registers hotspot folders that are not known yet.
func (a *API) ImportHotspots(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dry_run"))
	check, _ := strconv.ParseBool(c.Query("test_connection"))
	report, err := a.hotspots.ImportFromFolders(c.Request.Context(), dryRun, check)
	if err != nil {
		a.respondServiceError(c, err, "import hotspots")
		return
	}
	c.JSON(http.StatusOK, report)
}
