package service

import (
	"context"
	"errors"
	"strings"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults reported before the settings row is first saved.
const (
	DefaultLibraryName     = "Library Login System"
	DefaultRefreshInterval = 10
)

var allowedRefreshIntervals = map[int]struct{}{5: {}, 10: {}, 15: {}, 30: {}, 60: {}}

// PortalSettings is the organisation-wide configuration.
type PortalSettings struct {
	OrganizationName             string `json:"organization_name"`
	LibraryName                  string `json:"library_name"`
	ContactInfo                  string `json:"contact_info"`
	LogoPath                     string `json:"logo_path"`
	DefaultHotspotName           string `json:"default_hotspot_name"`
	HotspotStatusRefreshInterval int    `json:"hotspot_status_refresh_interval"`
	Saved                        bool   `json:"saved"`
}

// SettingsInput updates the settings row. A zero refresh interval keeps the default.
type SettingsInput struct {
	OrganizationName             string
	LibraryName                  string
	ContactInfo                  string
	LogoPath                     string
	DefaultHotspotName           string
	HotspotStatusRefreshInterval int
}

// SettingsService reads and writes the single settings row.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(gdb *gorm.DB) *SettingsService {
	return &SettingsService{db: gdb}
}

func defaultSettings() PortalSettings {
	return PortalSettings{LibraryName: DefaultLibraryName, HotspotStatusRefreshInterval: DefaultRefreshInterval}
}

// Get returns the saved settings or the defaults. It never creates the row.
func (s *SettingsService) Get(ctx context.Context) (PortalSettings, error) {
	var row db.PortalSettings
	err := s.db.WithContext(ctx).First(&row, db.PortalSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultSettings(), nil
	}
	if err != nil {
		return defaultSettings(), internalError("load settings", err)
	}

	result := PortalSettings{
		OrganizationName:             row.OrganizationName,
		LibraryName:                  row.LibraryName,
		ContactInfo:                  row.ContactInfo,
		LogoPath:                     row.LogoPath,
		DefaultHotspotName:           row.DefaultHotspotName,
		HotspotStatusRefreshInterval: row.HotspotStatusRefreshInterval,
		Saved:                        true,
	}
	if strings.TrimSpace(result.LibraryName) == "" {
		result.LibraryName = DefaultLibraryName
	}
	if _, ok := allowedRefreshIntervals[result.HotspotStatusRefreshInterval]; !ok {
		result.HotspotStatusRefreshInterval = DefaultRefreshInterval
	}
	return result, nil
}

// Update upserts the settings row.
func (s *SettingsService) Update(ctx context.Context, input SettingsInput, actorID *uint) (PortalSettings, error) {
	interval := input.HotspotStatusRefreshInterval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	if _, ok := allowedRefreshIntervals[interval]; !ok {
		return PortalSettings{}, ErrRefreshInvalid
	}
	library := strings.TrimSpace(input.LibraryName)
	if library == "" {
		library = DefaultLibraryName
	}

	row := db.PortalSettings{
		ID:                           db.PortalSettingsID,
		OrganizationName:             strings.TrimSpace(input.OrganizationName),
		LibraryName:                  library,
		ContactInfo:                  strings.TrimSpace(input.ContactInfo),
		LogoPath:                     strings.TrimSpace(input.LogoPath),
		DefaultHotspotName:           strings.TrimSpace(input.DefaultHotspotName),
		HotspotStatusRefreshInterval: interval,
		UpdatedByID:                  actorID,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"organization_name", "library_name", "contact_info", "logo_path",
			"default_hotspot_name", "hotspot_status_refresh_interval", "updated_by_id", "updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return PortalSettings{}, internalError("save settings", err)
	}
	return s.Get(ctx)
}
