package db

import "time"

// LandingPageURL is a post-login redirect target for a hotspot.
type LandingPageURL struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Title            string     `gorm:"size:255" json:"title"`
	URL              string     `gorm:"size:500;not null" json:"url"`
	HotspotName      string     `gorm:"size:100;not null;index:idx_landing_hotspot_active,priority:1" json:"hotspot_name"`
	IsActive         bool       `gorm:"index:idx_landing_hotspot_active,priority:2" json:"is_active"`
	RedirectCount    int64      `json:"redirect_count"`
	LastRedirectedAt *time.Time `json:"last_redirected_at"`
	Priority         int        `json:"priority"`
	CreatedByID      *uint      `json:"created_by_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName keeps the table name readable.
func (LandingPageURL) TableName() string {
	return "landing_page_urls"
}
