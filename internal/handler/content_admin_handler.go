package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/service"
)

type contentRequest struct {
	Title              string `json:"title"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Icon               string `json:"icon"`
	ImagePath          string `json:"image_path"`
	LeftPanelComponent string `json:"left_panel_component"`
	HotspotName        string `json:"hotspot_name"`
	Order              int    `json:"order"`
	IsActive           bool   `json:"is_active"`
}

func (r contentRequest) input() service.ContentInput {
	title := r.Title
	if strings.TrimSpace(title) == "" {
		title = r.Name
	}
	return service.ContentInput{
		Title:              title,
		Description:        r.Description,
		Icon:               r.Icon,
		ImagePath:          r.ImagePath,
		LeftPanelComponent: r.LeftPanelComponent,
		HotspotName:        r.HotspotName,
		Order:              r.Order,
		IsActive:           r.IsActive,
	}
}

func (a *API) contentKind(c *gin.Context) (service.ContentKind, bool) {
	kind, err := service.ParseContentKind(c.Param("kind"))
	if err != nil {
		a.respondServiceError(c, err, "parse content kind")
		return "", false
	}
	return kind, true
}

func (a *API) contentTarget(c *gin.Context) (service.ContentKind, uint, bool) {
	kind, ok := a.contentKind(c)
	if !ok {
		return "", 0, false
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid content id")
		return "", 0, false
	}
	return kind, id, true
}

// ListContent lists one content kind. ?hotspot_name= narrows to a scope, with
// "default" meaning the shared tier; ?active=true hides inactive rows.
func (a *API) ListContent(c *gin.Context) {
	kind, ok := a.contentKind(c)
	if !ok {
		return
	}

	var filter service.ContentFilter
	if raw, present := c.GetQuery("hotspot_name"); present {
		scope := service.NamedScope(raw)
		if strings.EqualFold(strings.TrimSpace(raw), "default") {
			scope = service.DefaultScope()
		}
		filter.Scope = &scope
	}
	filter.ActiveOnly, _ = strconv.ParseBool(c.Query("active"))

	items, err := a.content.List(c.Request.Context(), kind, filter)
	if err != nil {
		a.respondServiceError(c, err, "list content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "items": items})
}

// GetContentItem loads one row.
func (a *API) GetContentItem(c *gin.Context) {
	kind, id, ok := a.contentTarget(c)
	if !ok {
		return
	}
	item, err := a.content.Get(c.Request.Context(), kind, id)
	if err != nil {
		a.respondServiceError(c, err, "get content")
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateContent adds a row. An active exclusive row replaces its active sibling.
func (a *API) CreateContent(c *gin.Context) {
	kind, ok := a.contentKind(c)
	if !ok {
		return
	}
	var req contentRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	item, err := a.content.Create(c.Request.Context(), kind, req.input(), currentUserID(c))
	if err != nil {
		a.respondServiceError(c, err, "create content")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateContent replaces the editable fields of a row.
func (a *API) UpdateContent(c *gin.Context) {
	kind, id, ok := a.contentTarget(c)
	if !ok {
		return
	}
	var req contentRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	item, err := a.content.Update(c.Request.Context(), kind, id, req.input())
	if err != nil {
		a.respondServiceError(c, err, "update content")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteContent removes a row.
func (a *API) DeleteContent(c *gin.Context) {
	kind, id, ok := a.contentTarget(c)
	if !ok {
		return
	}
	if err := a.content.Delete(c.Request.Context(), kind, id); err != nil {
		a.respondServiceError(c, err, "delete content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ActivateContent makes a row active, deactivating its exclusive siblings.
func (a *API) ActivateContent(c *gin.Context) {
	kind, id, ok := a.contentTarget(c)
	if !ok {
		return
	}
	item, err := a.content.Activate(c.Request.Context(), kind, id)
	if err != nil {
		a.respondServiceError(c, err, "activate content")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeactivateContent hides a row.
func (a *API) DeactivateContent(c *gin.Context) {
	kind, id, ok := a.contentTarget(c)
	if !ok {
		return
	}
	item, err := a.content.Deactivate(c.Request.Context(), kind, id)
	if err != nil {
		a.respondServiceError(c, err, "deactivate content")
		return
	}
	c.JSON(http.StatusOK, item)
}
