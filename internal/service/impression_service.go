package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
)

const (
	maxHotspotNameLength = 100
	maxUserAgentLength   = 1024
)

var (
	mobileMarkers = []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"}
	tabletMarkers = []string{"ipad", "tablet", "kindle"}
)

// ImpressionInput is one page view reported by the login page.
type ImpressionInput struct {
	HotspotName      string
	DeviceIdentifier string
	IPAddress        string
	UserAgent        string
	TimeOnPage       *int
}

// RecordResult reports what was stored.
type RecordResult struct {
	Accepted      bool   `json:"accepted"`
	IsUniqueToday bool   `json:"is_unique_today"`
	DeviceClass   string `json:"device_class"`
}

// ImpressionSummary is the dashboard view of a window.
type ImpressionSummary struct {
	Window                 Window         `json:"window"`
	HotspotName            string         `json:"hotspot_name,omitempty"`
	TotalImpressions       int64          `json:"total_impressions"`
	UniqueDevices          int64          `json:"unique_devices"`
	UniqueTodayImpressions int64          `json:"unique_today_impressions"`
	Devices                []BreakdownRow `json:"devices"`
	Hotspots               []BreakdownRow `json:"hotspots"`
	Daily                  []DailyPoint   `json:"daily"`
}

// ImpressionService records page views and summarises them.
type ImpressionService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewImpressionService constructs an ImpressionService. Calendar days are taken in loc.
func NewImpressionService(gdb *gorm.DB, loc *time.Location) *ImpressionService {
	if loc == nil {
		loc = time.Local
	}
	return &ImpressionService{db: gdb, loc: loc}
}

// HashDeviceIdentifier is the one-way hash stored instead of the identifier.
func HashDeviceIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// ClassifyDevice maps a user agent to mobile, tablet, desktop or unknown.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return db.DeviceUnknown
	}
	for _, marker := range mobileMarkers {
		if strings.Contains(ua, marker) {
			return db.DeviceMobile
		}
	}
	for _, marker := range tabletMarkers {
		if strings.Contains(ua, marker) {
			return db.DeviceTablet
		}
	}
	return db.DeviceDesktop
}

// Record validates and stores one impression at now. The same-day uniqueness check
// and the insert share a transaction.
func (s *ImpressionService) Record(ctx context.Context, input ImpressionInput, now time.Time) (RecordResult, error) {
	hotspot := strings.TrimSpace(input.HotspotName)
	identifier := strings.TrimSpace(input.DeviceIdentifier)
	if hotspot == "" || identifier == "" {
		return RecordResult{}, ErrMissingFields
	}
	if utf8.RuneCountInString(hotspot) > maxHotspotNameLength {
		return RecordResult{}, ErrHotspotNameInvalid
	}

	row := db.PageImpression{
		HotspotName: hotspot,
		ViewedAt:    now.UTC(),
		DeviceHash:  HashDeviceIdentifier(identifier),
		IPAddress:   normalizeIP(input.IPAddress),
		DeviceClass: ClassifyDevice(input.UserAgent),
		UserAgent:   truncateRunes(strings.TrimSpace(input.UserAgent), maxUserAgentLength),
	}
	if input.TimeOnPage != nil && *input.TimeOnPage >= 0 {
		seconds := *input.TimeOnPage
		row.TimeOnPage = &seconds
	}

	day := DayWindow(now, s.loc).utc()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&db.PageImpression{}).
			Where("device_hash = ? AND hotspot_name = ?", row.DeviceHash, row.HotspotName).
			Where("viewed_at >= ? AND viewed_at < ?", day.Start, day.End).
			Count(&seen).Error; err != nil {
			return err
		}
		row.IsUniqueToday = seen == 0
		return tx.Create(&row).Error
	})
	if err != nil {
		return RecordResult{}, internalError("record impression", err)
	}

	return RecordResult{Accepted: true, IsUniqueToday: row.IsUniqueToday, DeviceClass: row.DeviceClass}, nil
}

// Summary aggregates a window, optionally for one hotspot.
func (s *ImpressionService) Summary(ctx context.Context, w Window, hotspot string) (ImpressionSummary, error) {
	if !w.valid() {
		return ImpressionSummary{}, ErrWindowInvalid
	}
	hotspot = strings.TrimSpace(hotspot)
	rows, err := loadImpressions(s.db.WithContext(ctx), w, hotspot)
	if err != nil {
		return ImpressionSummary{}, internalError("load impressions", err)
	}

	summary := ImpressionSummary{
		Window:           w,
		HotspotName:      hotspot,
		TotalImpressions: int64(len(rows)),
		UniqueDevices:    distinctDevices(rows),
		Devices:          breakdown(rows, func(r impressionRow) string { return r.DeviceClass }),
		Hotspots:         breakdown(rows, func(r impressionRow) string { return r.HotspotName }),
		Daily:            dailySeries(rows, w, s.loc),
	}
	for _, row := range rows {
		if row.IsUniqueToday {
			summary.UniqueTodayImpressions++
		}
	}
	return summary, nil
}

func normalizeIP(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil
	}
	value := ip.String()
	return &value
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
