package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liblogin/internal/service"
)

// reportWindow reads start_date/end_date (inclusive calendar days) or falls back to
// the last days days.
func (a *API) reportWindow(c *gin.Context) (service.Window, error) {
	startRaw := strings.TrimSpace(c.Query("start_date"))
	endRaw := strings.TrimSpace(c.Query("end_date"))
	if startRaw == "" && endRaw == "" {
		days := parsePositiveInt(c.Query("days"), service.DefaultReportDays)
		return service.WindowForDays(a.now(), days, a.loc), nil
	}
	if startRaw == "" || endRaw == "" {
		return service.Window{}, service.ErrDateInvalid
	}
	start, err := service.ParseDay(startRaw, a.loc)
	if err != nil {
		return service.Window{}, err
	}
	end, err := service.ParseDay(endRaw, a.loc)
	if err != nil {
		return service.Window{}, err
	}
	if end.End.Before(start.End) {
		return service.Window{}, service.ErrWindowInvalid
	}
	return service.Window{Start: start.Start, End: end.End}, nil
}

// GetReachReport computes the audience reach report of a window.
func (a *API) GetReachReport(c *gin.Context) {
	window, err := a.reportWindow(c)
	if err != nil {
		a.respondServiceError(c, err, "parse report window")
		return
	}

	report, err := a.reach.Report(c.Request.Context(), service.ReportQuery{
		Window:         window,
		HotspotName:    hotspotParam(c),
		TargetAudience: parsePositiveInt(c.Query("target_audience"), a.audience),
		AdCost:         parseNonNegativeFloat(c.Query("ad_cost")),
	})
	if err != nil {
		a.respondServiceError(c, err, "reach report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetImpressionSummary returns the dashboard counters of a window.
func (a *API) GetImpressionSummary(c *gin.Context) {
	window, err := a.reportWindow(c)
	if err != nil {
		a.respondServiceError(c, err, "parse report window")
		return
	}

	summary, err := a.impressions.Summary(c.Request.Context(), window, hotspotParam(c))
	if err != nil {
		a.respondServiceError(c, err, "impression summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetReachStats lists materialised daily rows.
func (a *API) GetReachStats(c *gin.Context) {
	rows, err := a.rollups.ListDaily(c.Request.Context(), hotspotParam(c), c.Query("from"), c.Query("to"))
	if err != nil {
		a.respondServiceError(c, err, "list reach stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": rows})
}

type rollupRequest struct {
	Date string `json:"date"`
}

// RunRollup rebuilds the daily rows of one day, today by default.
func (a *API) RunRollup(c *gin.Context) {
	var req rollupRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req, "invalid request body") {
			return
		}
	}
	if req.Date == "" {
		req.Date = c.Query("date")
	}

	day := service.DayWindow(a.now(), a.loc)
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := service.ParseDay(strings.TrimSpace(req.Date), a.loc)
		if err != nil {
			a.respondServiceError(c, err, "parse rollup date")
			return
		}
		day = parsed
	}

	rows, err := a.rollups.Rollup(c.Request.Context(), day)
	if err != nil {
		a.respondServiceError(c, err, "rollup")
		return
	}
	a.log.Info("daily reach rollup", "day", day.Start.In(a.loc).Format("2006-01-02"), "rows", len(rows))
	c.JSON(http.StatusOK, gin.H{"date": day.Start.In(a.loc).Format("2006-01-02"), "stats": rows})
}
