package service

import (
	"context"
	"errors"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResolutionTier records which template tier served a bundle.
type ResolutionTier string

const (
	TierExplicit    ResolutionTier = "explicit"
	TierHotspot     ResolutionTier = "hotspot"
	TierDefault     ResolutionTier = "default"
	TierSynthesized ResolutionTier = "synthesized"
)

// SynthesizedTemplateName is reported when no template is configured at all.
const SynthesizedTemplateName = "default"

// SlideView is a slide or card ready for the login page.
type SlideView struct {
	ID              uint   `json:"id"`
	Icon            string `json:"icon"`
	IconIsImage     bool   `json:"icon_is_image"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	Order           int    `json:"order"`
}

// BackgroundView is empty when no background applies.
type BackgroundView struct {
	ID       uint   `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ContentBundle is everything the login page needs for one hotspot.
type ContentBundle struct {
	TemplateID         *uint
	TemplateName       string
	LeftPanelComponent string
	HotspotName        *string
	Slides             []SlideView
	Cards              []SlideView
	Background         BackgroundView
	Tier               ResolutionTier
}

// ContentFilter narrows admin listings. A nil Scope lists every scope.
type ContentFilter struct {
	Scope      *Scope
	ActiveOnly bool
}

// ContentService resolves login page content and maintains the single-active rule.
type ContentService struct {
	db           *gorm.DB
	mediaBaseURL string
}

// NewContentService constructs a ContentService. mediaBaseURL prefixes stored image paths.
func NewContentService(gdb *gorm.DB, mediaBaseURL string) *ContentService {
	return &ContentService{db: gdb, mediaBaseURL: mediaBaseURL}
}

// Resolve picks the template for the scope, then its secondary content and background.
// Only an explicit template id can fail with ErrTemplateNotFound.
func (s *ContentService) Resolve(ctx context.Context, scope Scope, explicitTemplateID *uint) (ContentBundle, error) {
	q := s.db.WithContext(ctx)
	bundle := ContentBundle{HotspotName: scope.Column()}

	var tmpl *db.TemplateConfig
	secondary := scope
	if explicitTemplateID != nil {
		var found db.TemplateConfig
		if err := q.First(&found, *explicitTemplateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bundle, ErrTemplateNotFound
			}
			return bundle, internalError("load template", err)
		}
		tmpl = &found
		bundle.Tier = TierExplicit
		// previews without a hotspot show the template's own scope
		if scope.IsDefault() {
			secondary = ScopeOf(found.HotspotName)
		}
	} else {
		for _, candidate := range scope.Fallbacks() {
			found, err := firstActive[db.TemplateConfig](q, candidate)
			if err != nil {
				return bundle, internalError("load active template", err)
			}
			if found != nil {
				tmpl = found
				bundle.Tier = TierDefault
				if !candidate.IsDefault() {
					bundle.Tier = TierHotspot
				}
				break
			}
		}
	}

	if tmpl == nil {
		bundle.Tier = TierSynthesized
		bundle.TemplateName = SynthesizedTemplateName
		bundle.LeftPanelComponent = db.ComponentSlideshow
		bundle.Slides = []SlideView{}
		return bundle, nil
	}

	id := tmpl.ID
	bundle.TemplateID = &id
	bundle.TemplateName = tmpl.TemplateName
	bundle.LeftPanelComponent = tmpl.LeftPanelComponent

	switch tmpl.LeftPanelComponent {
	case db.ComponentCardGallery:
		cards, err := s.resolveCards(q, secondary)
		if err != nil {
			return bundle, err
		}
		bundle.Cards = cards
	case db.ComponentFullBG:
	default:
		slides, err := s.resolveSlides(q, secondary)
		if err != nil {
			return bundle, err
		}
		bundle.Slides = slides
	}

	background, err := s.resolveBackground(q, secondary)
	if err != nil {
		return bundle, err
	}
	bundle.Background = background
	return bundle, nil
}

// ResolveBackground returns the background alone with the same fallback.
func (s *ContentService) ResolveBackground(ctx context.Context, scope Scope) (BackgroundView, error) {
	return s.resolveBackground(s.db.WithContext(ctx), scope)
}

// ResolveSlides returns the slideshow items alone with the same fallback.
func (s *ContentService) ResolveSlides(ctx context.Context, scope Scope) ([]SlideView, error) {
	return s.resolveSlides(s.db.WithContext(ctx), scope)
}

func (s *ContentService) resolveBackground(q *gorm.DB, scope Scope) (BackgroundView, error) {
	for _, candidate := range scope.Fallbacks() {
		found, err := firstActive[db.BackgroundImage](q, candidate)
		if err != nil {
			return BackgroundView{}, internalError("load active background", err)
		}
		if found != nil {
			return BackgroundView{
				ID:       found.ID,
				Title:    found.Title,
				ImageURL: mediaURL(s.mediaBaseURL, found.ImagePath),
			}, nil
		}
	}
	return BackgroundView{}, nil
}

func (s *ContentService) resolveSlides(q *gorm.DB, scope Scope) ([]SlideView, error) {
	rows, err := activeList[db.SlideContent](q, scope)
	if err != nil {
		return nil, internalError("load active slides", err)
	}
	views := make([]SlideView, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.slideView(row.ID, row.Icon, row.IconImagePath, row.Title, row.Description, row.SortOrder))
	}
	return views, nil
}

func (s *ContentService) resolveCards(q *gorm.DB, scope Scope) ([]SlideView, error) {
	rows, err := activeList[db.CardContent](q, scope)
	if err != nil {
		return nil, internalError("load active cards", err)
	}
	views := make([]SlideView, 0, len(rows))
	for _, row := range rows {
		views = append(views, s.slideView(row.ID, row.Icon, row.IconImagePath, row.Title, row.Description, row.SortOrder))
	}
	return views, nil
}

func (s *ContentService) slideView(id uint, icon, iconImage, title, description string, order int) SlideView {
	view := SlideView{
		ID:              id,
		Title:           title,
		Description:     description,
		DescriptionHTML: renderDescription(description),
		Order:           order,
	}
	switch {
	case iconImage != "":
		view.Icon = mediaURL(s.mediaBaseURL, iconImage)
		view.IconIsImage = true
	case icon != "":
		view.Icon = icon
	default:
		view.Icon = db.DefaultIcon
	}
	return view
}

// firstActive returns the active row of an exclusive kind in exactly this scope.
func firstActive[T any](q *gorm.DB, scope Scope) (*T, error) {
	var rows []T
	err := scope.Apply(q.Model(new(T))).
		Where("is_active = ?", true).
		Order("updated_at DESC").Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// activeList returns the active rows of a list kind, falling back to the default
// scope when the hotspot has none.
func activeList[T any](q *gorm.DB, scope Scope) ([]T, error) {
	for _, candidate := range scope.Fallbacks() {
		var rows []T
		if err := candidate.Apply(q.Model(new(T))).Where("is_active = ?", true).Order(contentListOrder).Find(&rows).Error; err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return []T{}, nil
}

// List returns admin rows of one kind.
func (s *ContentService) List(ctx context.Context, kind ContentKind, filter ContentFilter) ([]ContentItem, error) {
	q := s.db.WithContext(ctx).Model(kind.model())
	if filter.Scope != nil {
		q = filter.Scope.Apply(q)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	q = q.Order(kind.listOrder())

	var items []ContentItem
	switch kind {
	case KindTemplate:
		var rows []db.TemplateConfig
		if err := q.Find(&rows).Error; err != nil {
			return nil, internalError("list templates", err)
		}
		for i := range rows {
			items = append(items, contentItemOf(&rows[i]))
		}
	case KindBackground:
		var rows []db.BackgroundImage
		if err := q.Find(&rows).Error; err != nil {
			return nil, internalError("list backgrounds", err)
		}
		for i := range rows {
			items = append(items, contentItemOf(&rows[i]))
		}
	case KindSlide:
		var rows []db.SlideContent
		if err := q.Find(&rows).Error; err != nil {
			return nil, internalError("list slides", err)
		}
		for i := range rows {
			items = append(items, contentItemOf(&rows[i]))
		}
	case KindCard:
		var rows []db.CardContent
		if err := q.Find(&rows).Error; err != nil {
			return nil, internalError("list cards", err)
		}
		for i := range rows {
			items = append(items, contentItemOf(&rows[i]))
		}
	default:
		return nil, ErrContentKindInvalid
	}
	if items == nil {
		items = []ContentItem{}
	}
	return items, nil
}

// Get loads one row by id.
func (s *ContentService) Get(ctx context.Context, kind ContentKind, id uint) (ContentItem, error) {
	rec := kind.model()
	if err := s.db.WithContext(ctx).First(rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ContentItem{}, ErrContentNotFound
		}
		return ContentItem{}, internalError("load content", err)
	}
	return contentItemOf(rec), nil
}

// Create inserts a row. An active row of an exclusive kind deactivates its siblings.
func (s *ContentService) Create(ctx context.Context, kind ContentKind, input ContentInput, actorID *uint) (ContentItem, error) {
	in, err := input.normalize(kind)
	if err != nil {
		return ContentItem{}, err
	}
	rec := newContentRecord(kind, in, actorID)
	scope := NamedScope(in.HotspotName)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exclusive := in.IsActive && kind.Exclusive()
		if exclusive {
			if err := lockScope(tx, kind, scope); err != nil {
				return err
			}
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if exclusive {
			return deactivateSiblings(tx, kind, scope, contentRecordID(rec))
		}
		return nil
	})
	if err != nil {
		return ContentItem{}, internalError("create content", err)
	}
	return contentItemOf(rec), nil
}

// Update replaces the editable fields of a row.
func (s *ContentService) Update(ctx context.Context, kind ContentKind, id uint, input ContentInput) (ContentItem, error) {
	in, err := input.normalize(kind)
	if err != nil {
		return ContentItem{}, err
	}
	rec := kind.model()
	scope := NamedScope(in.HotspotName)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(rec, id).Error; err != nil {
			return err
		}
		exclusive := in.IsActive && kind.Exclusive()
		if exclusive {
			if err := lockScope(tx, kind, scope); err != nil {
				return err
			}
		}
		applyContentInput(rec, in)
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if exclusive {
			return deactivateSiblings(tx, kind, scope, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ContentItem{}, ErrContentNotFound
		}
		return ContentItem{}, internalError("update content", err)
	}
	return contentItemOf(rec), nil
}

// Delete removes a row.
func (s *ContentService) Delete(ctx context.Context, kind ContentKind, id uint) error {
	result := s.db.WithContext(ctx).Delete(kind.model(), id)
	if result.Error != nil {
		return internalError("delete content", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

// Activate marks a row active. For exclusive kinds every sibling in the same scope
// is deactivated in the same transaction, so a scope never shows two active rows.
func (s *ContentService) Activate(ctx context.Context, kind ContentKind, id uint) (ContentItem, error) {
	return s.setActive(ctx, kind, id, true)
}

// Deactivate hides a row without touching its siblings.
func (s *ContentService) Deactivate(ctx context.Context, kind ContentKind, id uint) (ContentItem, error) {
	return s.setActive(ctx, kind, id, false)
}

func (s *ContentService) setActive(ctx context.Context, kind ContentKind, id uint, active bool) (ContentItem, error) {
	rec := kind.model()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(rec, id).Error; err != nil {
			return err
		}
		scope := contentRecordScope(rec)
		if active && kind.Exclusive() {
			if err := lockScope(tx, kind, scope); err != nil {
				return err
			}
			if err := deactivateSiblings(tx, kind, scope, id); err != nil {
				return err
			}
		}
		if err := tx.Model(kind.model()).Where("id = ?", id).Update("is_active", active).Error; err != nil {
			return err
		}
		return tx.First(rec, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ContentItem{}, ErrContentNotFound
		}
		return ContentItem{}, internalError("activate content", err)
	}
	return contentItemOf(rec), nil
}

// lockScope takes row locks on the scope so concurrent activations serialise.
// sqlite ignores the clause and relies on its single writer.
func lockScope(tx *gorm.DB, kind ContentKind, scope Scope) error {
	var ids []uint
	return scope.Apply(tx.Model(kind.model()).Clauses(clause.Locking{Strength: "UPDATE"})).Pluck("id", &ids).Error
}

func deactivateSiblings(tx *gorm.DB, kind ContentKind, scope Scope, keepID uint) error {
	return scope.Apply(tx.Model(kind.model())).
		Where("id <> ? AND is_active = ?", keepID, true).
		Update("is_active", false).Error
}
