package db

import "time"

// Left-panel components a template can select.
const (
	ComponentSlideshow   = "slideshow"
	ComponentFullBG      = "fullbg"
	ComponentCardGallery = "cardgallery"
)

// DefaultIcon is shown for slides and cards that have neither emoji nor image.
const DefaultIcon = "📚"

// BackgroundImage is the login page background for a hotspot scope.
// A nil HotspotName is the default scope shared by every hotspot.
type BackgroundImage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255" json:"title"`
	ImagePath    string    `gorm:"size:500" json:"image_path"`
	HotspotName  *string   `gorm:"size:100;index:idx_backgrounds_scope,priority:1" json:"hotspot_name"`
	IsActive     bool      `gorm:"index:idx_backgrounds_scope,priority:2" json:"is_active"`
	UploadedByID *uint     `json:"uploaded_by_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemplateConfig selects the left-panel component of the login page.
type TemplateConfig struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	TemplateName       string    `gorm:"size:255" json:"template_name"`
	LeftPanelComponent string    `gorm:"size:50;not null" json:"left_panel_component"`
	HotspotName        *string   `gorm:"size:100;index:idx_templates_scope,priority:1" json:"hotspot_name"`
	IsActive           bool      `gorm:"index:idx_templates_scope,priority:2" json:"is_active"`
	CreatedByID        *uint     `json:"created_by_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SlideContent is one item of the slideshow component.
type SlideContent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Icon          string    `gorm:"size:10" json:"icon"`
	IconImagePath string    `gorm:"size:500" json:"icon_image_path"`
	Title         string    `gorm:"size:255" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	HotspotName   *string   `gorm:"size:100;index:idx_slides_scope,priority:1" json:"hotspot_name"`
	SortOrder     int       `gorm:"column:sort_order" json:"order"`
	IsActive      bool      `gorm:"index:idx_slides_scope,priority:2" json:"is_active"`
	CreatedByID   *uint     `json:"created_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CardContent is one card of the card gallery component.
type CardContent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Icon          string    `gorm:"size:10" json:"icon"`
	IconImagePath string    `gorm:"size:500" json:"icon_image_path"`
	Title         string    `gorm:"size:255" json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	HotspotName   *string   `gorm:"size:100;index:idx_cards_scope,priority:1" json:"hotspot_name"`
	SortOrder     int       `gorm:"column:sort_order" json:"order"`
	IsActive      bool      `gorm:"index:idx_cards_scope,priority:2" json:"is_active"`
	CreatedByID   *uint     `json:"created_by_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
