package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/liblogin/internal/db"
)

// ContentKind names one of the scoped content tables.
type ContentKind string

const (
	KindTemplate   ContentKind = "templates"
	KindBackground ContentKind = "backgrounds"
	KindSlide      ContentKind = "slides"
	KindCard       ContentKind = "cards"
)

// ContentKinds lists every kind in a stable order.
var ContentKinds = []ContentKind{KindTemplate, KindBackground, KindSlide, KindCard}

var validComponents = map[string]struct{}{
	db.ComponentSlideshow:   {},
	db.ComponentFullBG:      {},
	db.ComponentCardGallery: {},
}

// ParseContentKind accepts the plural route names ("templates", "slides", ...).
func ParseContentKind(raw string) (ContentKind, error) {
	kind := ContentKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ContentKinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", ErrContentKindInvalid
}

// Exclusive kinds keep at most one active row per scope. Slides and cards are
// list kinds: every active row of the scope is shown.
func (k ContentKind) Exclusive() bool {
	return k == KindTemplate || k == KindBackground
}

func (k ContentKind) model() interface{} {
	switch k {
	case KindTemplate:
		return &db.TemplateConfig{}
	case KindBackground:
		return &db.BackgroundImage{}
	case KindSlide:
		return &db.SlideContent{}
	default:
		return &db.CardContent{}
	}
}

func (k ContentKind) listOrder() string {
	if k.Exclusive() {
		return "id ASC"
	}
	return contentListOrder
}

const contentListOrder = "sort_order ASC, created_at ASC, id ASC"

// ContentInput carries the editable fields of every kind. Title is the template
// name for templates. Fields that do not apply to a kind are ignored.
type ContentInput struct {
	Title              string
	Description        string
	Icon               string
	ImagePath          string
	LeftPanelComponent string
	HotspotName        string
	Order              int
	IsActive           bool
}

// ContentItem is the kind-independent view returned by the admin API.
type ContentItem struct {
	Kind               ContentKind `json:"kind"`
	ID                 uint        `json:"id"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	Icon               string      `json:"icon,omitempty"`
	ImagePath          string      `json:"image_path,omitempty"`
	LeftPanelComponent string      `json:"left_panel_component,omitempty"`
	HotspotName        *string     `json:"hotspot_name"`
	Order              int         `json:"order"`
	IsActive           bool        `json:"is_active"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (in ContentInput) normalize(kind ContentKind) (ContentInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Icon = strings.TrimSpace(in.Icon)
	in.ImagePath = strings.TrimSpace(in.ImagePath)
	in.HotspotName = strings.TrimSpace(in.HotspotName)

	if in.Title == "" {
		return in, ErrContentTitleMissing
	}

	switch kind {
	case KindTemplate:
		component := strings.ToLower(strings.TrimSpace(in.LeftPanelComponent))
		if component == "" {
			component = db.ComponentSlideshow
		}
		if _, ok := validComponents[component]; !ok {
			return in, ErrComponentInvalid
		}
		in.LeftPanelComponent = component
	case KindBackground:
		if in.ImagePath == "" {
			return in, ErrContentImageMissing
		}
	case KindSlide, KindCard:
		if utf8.RuneCountInString(in.Icon) > 10 {
			return in, ErrIconTooLong
		}
	}
	return in, nil
}

func newContentRecord(kind ContentKind, in ContentInput, actorID *uint) interface{} {
	rec := kind.model()
	applyContentInput(rec, in)
	switch r := rec.(type) {
	case *db.TemplateConfig:
		r.CreatedByID = actorID
	case *db.BackgroundImage:
		r.UploadedByID = actorID
	case *db.SlideContent:
		r.CreatedByID = actorID
	case *db.CardContent:
		r.CreatedByID = actorID
	}
	return rec
}

func applyContentInput(rec interface{}, in ContentInput) {
	hotspot := NamedScope(in.HotspotName).Column()
	switch r := rec.(type) {
	case *db.TemplateConfig:
		r.TemplateName = in.Title
		r.LeftPanelComponent = in.LeftPanelComponent
		r.HotspotName = hotspot
		r.IsActive = in.IsActive
	case *db.BackgroundImage:
		r.Title = in.Title
		r.ImagePath = in.ImagePath
		r.HotspotName = hotspot
		r.IsActive = in.IsActive
	case *db.SlideContent:
		r.Title = in.Title
		r.Description = in.Description
		r.Icon = in.Icon
		r.IconImagePath = in.ImagePath
		r.HotspotName = hotspot
		r.SortOrder = in.Order
		r.IsActive = in.IsActive
	case *db.CardContent:
		r.Title = in.Title
		r.Description = in.Description
		r.Icon = in.Icon
		r.IconImagePath = in.ImagePath
		r.HotspotName = hotspot
		r.SortOrder = in.Order
		r.IsActive = in.IsActive
	}
}

func contentItemOf(rec interface{}) ContentItem {
	switch r := rec.(type) {
	case *db.TemplateConfig:
		return ContentItem{
			Kind: KindTemplate, ID: r.ID, Title: r.TemplateName,
			LeftPanelComponent: r.LeftPanelComponent, HotspotName: r.HotspotName,
			IsActive: r.IsActive, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		}
	case *db.BackgroundImage:
		return ContentItem{
			Kind: KindBackground, ID: r.ID, Title: r.Title, ImagePath: r.ImagePath,
			HotspotName: r.HotspotName, IsActive: r.IsActive,
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		}
	case *db.SlideContent:
		return ContentItem{
			Kind: KindSlide, ID: r.ID, Title: r.Title, Description: r.Description,
			Icon: r.Icon, ImagePath: r.IconImagePath, HotspotName: r.HotspotName,
			Order: r.SortOrder, IsActive: r.IsActive,
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		}
	case *db.CardContent:
		return ContentItem{
			Kind: KindCard, ID: r.ID, Title: r.Title, Description: r.Description,
			Icon: r.Icon, ImagePath: r.IconImagePath, HotspotName: r.HotspotName,
			Order: r.SortOrder, IsActive: r.IsActive,
			CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		}
	}
	return ContentItem{}
}

func contentRecordScope(rec interface{}) Scope {
	return ScopeOf(contentItemOf(rec).HotspotName)
}

func contentRecordID(rec interface{}) uint {
	return contentItemOf(rec).ID
}
