package db

import (
	"time"

	"gorm.io/datatypes"
)

// Device classes assigned from the user agent.
const (
	DeviceMobile  = "mobile"
	DeviceDesktop = "desktop"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// PageImpression is one login-page view. Rows are append-only.
type PageImpression struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	HotspotName   string    `gorm:"size:100;not null;index:idx_impressions_hotspot_viewed,priority:1;index:idx_impressions_hotspot_device,priority:1" json:"hotspot_name"`
	ViewedAt      time.Time `gorm:"not null;index;index:idx_impressions_hotspot_viewed,priority:2;index:idx_impressions_device_viewed,priority:2;index:idx_impressions_hotspot_device,priority:3" json:"viewed_at"`
	DeviceHash    string    `gorm:"size:64;not null;index:idx_impressions_device_viewed,priority:1;index:idx_impressions_hotspot_device,priority:2" json:"device_hash"`
	IPAddress     *string   `gorm:"size:45" json:"ip_address"`
	DeviceClass   string    `gorm:"size:20" json:"device_class"`
	UserAgent     string    `gorm:"type:text" json:"user_agent"`
	TimeOnPage    *int      `json:"time_on_page"`
	IsUniqueToday bool      `json:"is_unique_today"`
}

// DailyReachStats materialises one hotspot-day of impressions. It is a cache of the
// aggregation and can always be rebuilt from PageImpression.
type DailyReachStats struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	HotspotName      string         `gorm:"size:100;not null;uniqueIndex:idx_daily_reach_hotspot_day,priority:1" json:"hotspot_name"`
	Day              string         `gorm:"size:10;not null;uniqueIndex:idx_daily_reach_hotspot_day,priority:2;index" json:"date"`
	TotalImpressions int64          `json:"total_impressions"`
	UniqueDevices    int64          `json:"unique_devices"`
	MobileCount      int64          `json:"mobile_count"`
	DesktopCount     int64          `json:"desktop_count"`
	TabletCount      int64          `json:"tablet_count"`
	UnknownCount     int64          `json:"unknown_count"`
	AvgTimeOnPage    float64        `json:"avg_time_on_page"`
	TotalTimeOnPage  int64          `json:"total_time_on_page"`
	HourlyData       datatypes.JSON `json:"hourly_data"`
	LastUpdated      time.Time      `gorm:"autoUpdateTime" json:"last_updated"`
}

// TableName keeps the plural explicit.
func (DailyReachStats) TableName() string {
	return "daily_reach_stats"
}
