package service

import (
	"context"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Recommendation levels.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelDanger  = "danger"
	LevelInfo    = "info"
)

const engagedSeconds = 10

// frequencyBands are the exposure buckets of the distribution. Max 0 is open-ended.
var frequencyBands = []struct {
	label    string
	min, max int
}{
	{"1-2", 1, 2},
	{"3-7", 3, 7},
	{"8-15", 8, 15},
	{"15+", 16, 0},
}

// ReportQuery selects the impressions a report covers.
type ReportQuery struct {
	Window         Window
	HotspotName    string
	TargetAudience int
	AdCost         float64
}

// FrequencyBucket counts devices by exposures within the window.
type FrequencyBucket struct {
	Label      string  `json:"label"`
	Min        int     `json:"min"`
	Max        int     `json:"max,omitempty"`
	Devices    int64   `json:"devices"`
	Percentage float64 `json:"percentage"`
}

type PeakDay struct {
	Date        string `json:"date"`
	Impressions int64  `json:"impressions"`
}

type PeakHour struct {
	Hour        int   `json:"hour"`
	Impressions int64 `json:"impressions"`
}

type HourlyPoint struct {
	Hour        int   `json:"hour"`
	Impressions int64 `json:"impressions"`
}

// Growth compares the window with the preceding window of equal length.
type Growth struct {
	PreviousWindow      Window  `json:"previous_window"`
	PreviousReach       int64   `json:"previous_reach"`
	PreviousImpressions int64   `json:"previous_impressions"`
	ReachGrowth         float64 `json:"reach_growth"`
	ImpressionGrowth    float64 `json:"impression_growth"`
}

type Recommendation struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReachReport is the advertising reach assessment of a window.
type ReachReport struct {
	Window                   Window            `json:"window"`
	HotspotName              string            `json:"hotspot_name,omitempty"`
	TargetAudience           int               `json:"target_audience"`
	TotalImpressions         int64             `json:"total_impressions"`
	TotalReach               int64             `json:"total_reach"`
	Frequency                float64           `json:"frequency"`
	ReachRate                float64           `json:"reach_rate"`
	GRP                      int64             `json:"grp"`
	FrequencyDistribution    []FrequencyBucket `json:"frequency_distribution"`
	EffectiveReach           int64             `json:"effective_reach"`
	EffectiveReachPercentage float64           `json:"effective_reach_percentage"`
	EngagementRate           float64           `json:"engagement_rate"`
	AvgTimeOnPage            float64           `json:"avg_time_on_page"`
	DeviceBreakdown          []BreakdownRow    `json:"device_breakdown"`
	LocationBreakdown        []BreakdownRow    `json:"location_breakdown"`
	PeakDay                  *PeakDay          `json:"peak_day"`
	PeakHour                 *PeakHour         `json:"peak_hour"`
	AdCost                   float64           `json:"ad_cost"`
	CPM                      float64           `json:"cpm"`
	CostPerReach             float64           `json:"cost_per_reach"`
	Growth                   Growth            `json:"growth"`
	DailyTrend               []DailyPoint      `json:"daily_trend"`
	HourlyDistribution       []HourlyPoint     `json:"hourly_distribution"`
	Recommendations          []Recommendation  `json:"recommendations"`
}

// ReachService computes reach reports from the impression log.
type ReachService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewReachService constructs a ReachService. Days and hours are bucketed in loc.
func NewReachService(gdb *gorm.DB, loc *time.Location) *ReachService {
	if loc == nil {
		loc = time.Local
	}
	return &ReachService{db: gdb, loc: loc}
}

// Report loads the window and the preceding window and computes the report.
// Empty windows produce zero metrics, never an error.
func (s *ReachService) Report(ctx context.Context, query ReportQuery) (ReachReport, error) {
	if !query.Window.valid() {
		return ReachReport{}, ErrWindowInvalid
	}
	query.HotspotName = strings.TrimSpace(query.HotspotName)
	q := s.db.WithContext(ctx)

	rows, err := loadImpressions(q, query.Window, query.HotspotName)
	if err != nil {
		return ReachReport{}, internalError("load impressions", err)
	}
	previousWindow := query.Window.Previous()
	previous, err := loadImpressions(q, previousWindow, query.HotspotName)
	if err != nil {
		return ReachReport{}, internalError("load previous impressions", err)
	}

	report := buildReachReport(query, rows, s.loc)
	report.Growth = growthBetween(report, previousWindow, previous)
	return report, nil
}

// buildReachReport computes everything except growth from already loaded rows.
func buildReachReport(query ReportQuery, rows []impressionRow, loc *time.Location) ReachReport {
	if loc == nil {
		loc = time.Local
	}
	report := ReachReport{
		Window:         query.Window,
		HotspotName:    query.HotspotName,
		TargetAudience: query.TargetAudience,
		AdCost:         query.AdCost,
	}

	perDevice := make(map[string]int)
	perDay := make(map[string]int64)
	hourly := make([]int64, 24)
	var timed, engaged, timeTotal int64
	for _, row := range rows {
		perDevice[row.DeviceHash]++
		local := row.ViewedAt.In(loc)
		perDay[local.Format("2006-01-02")]++
		hourly[local.Hour()]++
		if row.TimeOnPage != nil {
			timed++
			timeTotal += int64(*row.TimeOnPage)
			if *row.TimeOnPage >= engagedSeconds {
				engaged++
			}
		}
	}

	report.TotalImpressions = int64(len(rows))
	report.TotalReach = int64(len(perDevice))
	impressions := float64(report.TotalImpressions)
	reach := float64(report.TotalReach)

	report.Frequency = round1(ratio(impressions, reach))
	if query.TargetAudience > 0 {
		report.ReachRate = round1(percent(reach, float64(query.TargetAudience)))
	}
	report.GRP = int64(math.Round(report.ReachRate * report.Frequency))

	report.FrequencyDistribution = frequencyDistribution(perDevice)
	for _, bucket := range report.FrequencyDistribution[1:] {
		report.EffectiveReach += bucket.Devices
	}
	report.EffectiveReachPercentage = round1(percent(float64(report.EffectiveReach), reach))

	report.EngagementRate = round1(percent(float64(engaged), float64(timed)))
	report.AvgTimeOnPage = round1(ratio(float64(timeTotal), float64(timed)))

	report.DeviceBreakdown = breakdown(rows, func(r impressionRow) string { return r.DeviceClass })
	report.LocationBreakdown = breakdown(rows, func(r impressionRow) string { return r.HotspotName })

	report.PeakDay = peakDay(perDay)
	report.PeakHour = peakHour(hourly)
	report.HourlyDistribution = make([]HourlyPoint, 24)
	for hour, count := range hourly {
		report.HourlyDistribution[hour] = HourlyPoint{Hour: hour, Impressions: count}
	}
	report.DailyTrend = dailySeries(rows, query.Window, loc)

	if query.AdCost > 0 {
		if report.TotalImpressions > 0 {
			report.CPM = round2(query.AdCost / impressions * 1000)
		}
		if report.TotalReach > 0 {
			report.CostPerReach = round2(query.AdCost / reach)
		}
	}

	report.Recommendations = recommendations(report, timed > 0)
	return report
}

func frequencyDistribution(perDevice map[string]int) []FrequencyBucket {
	buckets := make([]FrequencyBucket, len(frequencyBands))
	for i, band := range frequencyBands {
		buckets[i] = FrequencyBucket{Label: band.label, Min: band.min, Max: band.max}
	}
	for _, count := range perDevice {
		for i, band := range frequencyBands {
			if count >= band.min && (band.max == 0 || count <= band.max) {
				buckets[i].Devices++
				break
			}
		}
	}
	total := float64(len(perDevice))
	for i := range buckets {
		buckets[i].Percentage = round1(percent(float64(buckets[i].Devices), total))
	}
	return buckets
}

// peakDay picks the busiest day; ties go to the earliest.
func peakDay(perDay map[string]int64) *PeakDay {
	var best *PeakDay
	for day, count := range perDay {
		if best == nil || count > best.Impressions || (count == best.Impressions && day < best.Date) {
			best = &PeakDay{Date: day, Impressions: count}
		}
	}
	return best
}

// peakHour picks the busiest hour of day; ties go to the earliest.
func peakHour(hourly []int64) *PeakHour {
	var best *PeakHour
	for hour, count := range hourly {
		if count == 0 {
			continue
		}
		if best == nil || count > best.Impressions {
			best = &PeakHour{Hour: hour, Impressions: count}
		}
	}
	return best
}

func growthBetween(current ReachReport, previousWindow Window, previous []impressionRow) Growth {
	g := Growth{
		PreviousWindow:      previousWindow,
		PreviousReach:       distinctDevices(previous),
		PreviousImpressions: int64(len(previous)),
	}
	g.ReachGrowth = round1(percentChange(float64(current.TotalReach), float64(g.PreviousReach)))
	g.ImpressionGrowth = round1(percentChange(float64(current.TotalImpressions), float64(g.PreviousImpressions)))
	return g
}

func percentChange(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// recommendations applies the fixed frequency, effective reach, engagement and
// overexposure breakpoints.
func recommendations(r ReachReport, hasTiming bool) []Recommendation {
	if r.TotalReach == 0 {
		return []Recommendation{{
			Level:   LevelInfo,
			Code:    "no_frequency_data",
			Message: "No impressions were recorded in this period.",
		}}
	}

	var out []Recommendation
	switch {
	case r.Frequency < 3:
		out = append(out, Recommendation{LevelWarning, "low_frequency",
			"Average frequency is below 3; extend the campaign or add placements so each device sees it more often."})
	case r.Frequency > 15:
		out = append(out, Recommendation{LevelWarning, "ad_fatigue",
			"Average frequency is above 15; rotate the creative to avoid ad fatigue."})
	default:
		out = append(out, Recommendation{LevelSuccess, "optimal_frequency",
			"Average frequency is within the effective 3 to 15 range."})
	}

	switch {
	case r.EffectiveReachPercentage < 50:
		out = append(out, Recommendation{LevelDanger, "low_effective_reach",
			"Less than half of reached devices saw the page 3 or more times."})
	case r.EffectiveReachPercentage >= 70:
		out = append(out, Recommendation{LevelSuccess, "strong_effective_reach",
			"At least 70% of reached devices saw the page 3 or more times."})
	}

	if hasTiming {
		switch {
		case r.EngagementRate < 30:
			out = append(out, Recommendation{LevelWarning, "low_engagement",
				"Fewer than 30% of timed views lasted 10 seconds or more."})
		case r.EngagementRate >= 50:
			out = append(out, Recommendation{LevelSuccess, "strong_engagement",
				"At least half of timed views lasted 10 seconds or more."})
		}
	}

	overexposed := r.FrequencyDistribution[len(r.FrequencyDistribution)-1].Devices
	if float64(overexposed) > float64(r.TotalReach)*0.10 {
		out = append(out, Recommendation{LevelWarning, "overexposure",
			"More than 10% of reached devices saw the page over 15 times."})
	}
	return out
}
