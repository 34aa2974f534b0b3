package db

import "time"

// PortalSettingsID is the primary key of the only settings row.
const PortalSettingsID uint = 1

// PortalSettings stores organisation-wide configuration.
//
// The table holds at most one row (ID = PortalSettingsID).
type PortalSettings struct {
	ID                           uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrganizationName             string    `gorm:"size:255" json:"organization_name"`
	LibraryName                  string    `gorm:"size:255" json:"library_name"`
	ContactInfo                  string    `gorm:"type:text" json:"contact_info"`
	LogoPath                     string    `gorm:"size:500" json:"logo_path"`
	DefaultHotspotName           string    `gorm:"size:100" json:"default_hotspot_name"`
	HotspotStatusRefreshInterval int       `json:"hotspot_status_refresh_interval"`
	UpdatedByID                  *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// TableName keeps the singular name.
func (PortalSettings) TableName() string {
	return "portal_settings"
}
