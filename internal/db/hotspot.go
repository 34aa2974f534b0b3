package db

import "time"

// Hotspot statuses derived from the last connection check.
const (
	HotspotStatusReady     = "ready"
	HotspotStatusWarning   = "warning"
	HotspotStatusError     = "error"
	HotspotStatusUnchecked = "unchecked"
)

// Hotspot is one physical captive-portal site. Content rows reference it by
// HotspotName rather than by foreign key.
type Hotspot struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	HotspotName     string     `gorm:"size:50;uniqueIndex;not null" json:"hotspot_name"`
	DisplayName     string     `gorm:"size:100" json:"display_name"`
	Description     string     `gorm:"type:text" json:"description"`
	IsActive        bool       `json:"is_active"`
	FolderExists    bool       `json:"folder_exists"`
	LoginFileExists bool       `json:"login_file_exists"`
	ConfigMatched   bool       `json:"config_matched"`
	LastChecked     *time.Time `json:"last_checked"`
	CreatedByID     *uint      `json:"created_by_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Status summarises the last connection check.
func (h Hotspot) Status() string {
	if h.LastChecked == nil {
		return HotspotStatusUnchecked
	}
	if h.FolderExists && h.LoginFileExists && h.ConfigMatched {
		return HotspotStatusReady
	}
	if h.FolderExists {
		return HotspotStatusWarning
	}
	return HotspotStatusError
}
