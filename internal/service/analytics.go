package service

import (
	"math"
	"sort"
	"time"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Previous is the window of equal length that ends where w starts.
func (w Window) Previous() Window {
	length := w.End.Sub(w.Start)
	return Window{Start: w.Start.Add(-length), End: w.Start}
}

func (w Window) valid() bool {
	return w.End.After(w.Start)
}

func (w Window) utc() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

const (
	DefaultReportDays = 7
	MaxReportDays     = 365
)

// WindowForDays covers the last days calendar days in loc, today included.
// days outside 1..365 is clamped; zero and negatives give the default of 7.
func WindowForDays(now time.Time, days int, loc *time.Location) Window {
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > MaxReportDays {
		days = MaxReportDays
	}
	today := StartOfDay(now, loc)
	return Window{
		Start: today.AddDate(0, 0, -(days - 1)),
		End:   today.AddDate(0, 0, 1),
	}
}

// StartOfDay is local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayWindow is the calendar day containing t in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	start := StartOfDay(t, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ParseDay reads YYYY-MM-DD as a calendar day in loc.
func ParseDay(raw string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return Window{}, ErrDateInvalid
	}
	return Window{Start: day, End: day.AddDate(0, 0, 1)}, nil
}

type impressionRow struct {
	HotspotName   string
	ViewedAt      time.Time
	DeviceHash    string
	DeviceClass   string
	TimeOnPage    *int
	IsUniqueToday bool
}

// loadImpressions reads the window's rows. Aggregation happens in Go so it behaves
// the same on sqlite and postgres.
func loadImpressions(q *gorm.DB, w Window, hotspot string) ([]impressionRow, error) {
	w = w.utc()
	query := q.Model(&db.PageImpression{}).
		Select("hotspot_name", "viewed_at", "device_hash", "device_class", "time_on_page", "is_unique_today").
		Where("viewed_at >= ? AND viewed_at < ?", w.Start, w.End)
	if hotspot != "" {
		query = query.Where("hotspot_name = ?", hotspot)
	}
	var rows []impressionRow
	if err := query.Order("viewed_at ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BreakdownRow is one group of a device or location breakdown.
type BreakdownRow struct {
	Key           string  `json:"key"`
	UniqueDevices int64   `json:"unique_devices"`
	Impressions   int64   `json:"impressions"`
	Percentage    float64 `json:"percentage"`
}

func breakdown(rows []impressionRow, key func(impressionRow) string) []BreakdownRow {
	type acc struct {
		devices     map[string]struct{}
		impressions int64
	}
	groups := make(map[string]*acc)
	for _, row := range rows {
		k := key(row)
		g, ok := groups[k]
		if !ok {
			g = &acc{devices: make(map[string]struct{})}
			groups[k] = g
		}
		g.impressions++
		g.devices[row.DeviceHash] = struct{}{}
	}

	total := float64(len(rows))
	out := make([]BreakdownRow, 0, len(groups))
	for k, g := range groups {
		out = append(out, BreakdownRow{
			Key:           k,
			UniqueDevices: int64(len(g.devices)),
			Impressions:   g.impressions,
			Percentage:    round1(percent(float64(g.impressions), total)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impressions != out[j].Impressions {
			return out[i].Impressions > out[j].Impressions
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// DailyPoint is one calendar day of a series.
type DailyPoint struct {
	Date        string `json:"date"`
	Impressions int64  `json:"impressions"`
	Reach       int64  `json:"reach"`
}

// dailySeries emits every day of the window, including empty ones.
func dailySeries(rows []impressionRow, w Window, loc *time.Location) []DailyPoint {
	impressions := make(map[string]int64)
	devices := make(map[string]map[string]struct{})
	for _, row := range rows {
		day := row.ViewedAt.In(loc).Format("2006-01-02")
		impressions[day]++
		if devices[day] == nil {
			devices[day] = make(map[string]struct{})
		}
		devices[day][row.DeviceHash] = struct{}{}
	}

	var out []DailyPoint
	for day := StartOfDay(w.Start, loc); day.Before(w.End); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		out = append(out, DailyPoint{Date: key, Impressions: impressions[key], Reach: int64(len(devices[key]))})
	}
	if out == nil {
		out = []DailyPoint{}
	}
	return out
}

func distinctDevices(rows []impressionRow) int64 {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row.DeviceHash] = struct{}{}
	}
	return int64(len(seen))
}

// percent returns num/den*100, or 0 when den is not positive.
func percent(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
