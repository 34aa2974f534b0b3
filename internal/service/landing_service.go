package service

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/liblogin/internal/cache"
	"github.com/liblogin/internal/db"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLandingTTL bounds how long a resolved URL is served from cache.
const DefaultLandingTTL = 300 * time.Second

// Cache lookup outcomes reported on LandingResult.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// LandingCacheKey is the cache key of a hotspot's landing URL.
func LandingCacheKey(hotspot string) string {
	return "landing_url:" + hotspot
}

// LandingResult is the redirect decision for a hotspot. URL is nil on fallback.
type LandingResult struct {
	ID       uint
	URL      *string
	Title    string
	Fallback bool
	Cache    string
}

type landingEntry struct {
	ID       uint   `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Fallback bool   `json:"fallback"`
}

func (e landingEntry) result(cacheResult string) LandingResult {
	res := LandingResult{ID: e.ID, Title: e.Title, Fallback: e.Fallback, Cache: cacheResult}
	if !e.Fallback {
		u := e.URL
		res.URL = &u
	}
	return res
}

// LandingInput is the editable part of a LandingPageURL.
type LandingInput struct {
	Title       string `validate:"max=255"`
	URL         string `validate:"required,url,max=500"`
	HotspotName string `validate:"required,max=100"`
	IsActive    bool
	Priority    int
}

// LandingService resolves post-login redirects and keeps the cache coherent with writes.
type LandingService struct {
	db       *gorm.DB
	cache    cache.Store
	ttl      time.Duration
	validate *validator.Validate
	group    singleflight.Group
	locks    sync.Map
}

// NewLandingService constructs a LandingService. A non-positive ttl uses DefaultLandingTTL.
func NewLandingService(gdb *gorm.DB, store cache.Store, ttl time.Duration) *LandingService {
	if ttl <= 0 {
		ttl = DefaultLandingTTL
	}
	if store == nil {
		store = cache.NewMemory()
	}
	return &LandingService{db: gdb, cache: store, ttl: ttl, validate: validator.New()}
}

func validLandingHotspot(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxHotspotNameLength {
		return "", ErrHotspotNameInvalid
	}
	return name, nil
}

// Resolve returns the active URL of the hotspot, preferring the cache. Every
// resolution that yields a URL bumps its redirect counter, hit or miss.
func (s *LandingService) Resolve(ctx context.Context, hotspot string, now time.Time) (LandingResult, error) {
	hotspot, err := validLandingHotspot(hotspot)
	if err != nil {
		return LandingResult{}, err
	}

	entry, cacheResult, err := s.lookup(ctx, hotspot)
	if err != nil {
		return LandingResult{}, internalError("resolve landing url", err)
	}

	if !entry.Fallback {
		update := s.db.WithContext(ctx).Model(&db.LandingPageURL{}).
			Where("id = ?", entry.ID).
			UpdateColumns(map[string]interface{}{
				"redirect_count":     gorm.Expr("redirect_count + ?", 1),
				"last_redirected_at": now.UTC(),
			})
		if update.Error != nil {
			return LandingResult{}, internalError("count redirect", update.Error)
		}
	}
	return entry.result(cacheResult), nil
}

func (s *LandingService) lookup(ctx context.Context, hotspot string) (landingEntry, string, error) {
	key := LandingCacheKey(hotspot)
	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		// the store stays authoritative when the cache is down
		entry, loadErr := s.loadActive(ctx, hotspot)
		return entry, CacheError, loadErr
	case ok:
		var entry landingEntry
		if json.Unmarshal(raw, &entry) == nil {
			return entry, CacheHit, nil
		}
	}

	v, err, _ := s.group.Do(hotspot, func() (interface{}, error) {
		mu := s.lockFor(hotspot)
		mu.Lock()
		defer mu.Unlock()

		entry, err := s.loadActive(ctx, hotspot)
		if err != nil {
			return landingEntry{}, err
		}
		if encoded, err := json.Marshal(entry); err == nil {
			_ = s.cache.Set(ctx, key, encoded, s.ttl)
		}
		return entry, nil
	})
	if err != nil {
		return landingEntry{}, CacheMiss, err
	}
	return v.(landingEntry), CacheMiss, nil
}

func (s *LandingService) loadActive(ctx context.Context, hotspot string) (landingEntry, error) {
	var rows []db.LandingPageURL
	err := s.db.WithContext(ctx).
		Where("hotspot_name = ? AND is_active = ?", hotspot, true).
		Order("priority DESC").Order("updated_at DESC").Order("id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return landingEntry{}, err
	}
	if len(rows) == 0 {
		return landingEntry{Fallback: true}, nil
	}
	return landingEntry{ID: rows[0].ID, URL: rows[0].URL, Title: rows[0].Title}, nil
}

func (s *LandingService) lockFor(hotspot string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(hotspot, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Guard serialises fn against cache fills and writes of the named hotspots and
// drops their cache entries before and after it runs. Do not call it from inside a
// database transaction.
func (s *LandingService) Guard(ctx context.Context, names []string, fn func() error) error {
	unique := make(map[string]struct{}, len(names))
	var keys []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, seen := unique[name]; seen {
			continue
		}
		unique[name] = struct{}{}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	for _, name := range keys {
		mu := s.lockFor(name)
		mu.Lock()
		defer mu.Unlock()
	}

	cacheKeys := make([]string, len(keys))
	for i, name := range keys {
		cacheKeys[i] = LandingCacheKey(name)
	}
	if err := s.cache.Delete(ctx, cacheKeys...); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKeys...)
}

// Invalidate drops cached entries for the hotspots under their write locks.
func (s *LandingService) Invalidate(ctx context.Context, hotspots ...string) error {
	if err := s.Guard(ctx, hotspots, func() error { return nil }); err != nil {
		return internalError("invalidate landing cache", err)
	}
	return nil
}

func (s *LandingService) normalizeInput(in LandingInput) (LandingInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.HotspotName = strings.TrimSpace(in.HotspotName)
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].Field() {
			case "HotspotName":
				return in, ErrHotspotNameInvalid
			case "Title":
				return in, validationError("invalid_title", "title must be at most 255 characters")
			}
		}
		return in, ErrLandingURLInvalid
	}
	parsed, err := url.Parse(in.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return in, ErrLandingURLInvalid
	}
	return in, nil
}

// List returns landing URLs, optionally for one hotspot.
func (s *LandingService) List(ctx context.Context, hotspot string) ([]db.LandingPageURL, error) {
	q := s.db.WithContext(ctx).Model(&db.LandingPageURL{})
	if hotspot = strings.TrimSpace(hotspot); hotspot != "" {
		q = q.Where("hotspot_name = ?", hotspot)
	}
	var rows []db.LandingPageURL
	if err := q.Order("hotspot_name ASC").Order("priority DESC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internalError("list landing urls", err)
	}
	return rows, nil
}

// Get loads one landing URL.
func (s *LandingService) Get(ctx context.Context, id uint) (db.LandingPageURL, error) {
	var row db.LandingPageURL
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, ErrLandingNotFound
		}
		return row, internalError("load landing url", err)
	}
	return row, nil
}

// Create stores a landing URL. An active row deactivates the hotspot's others.
func (s *LandingService) Create(ctx context.Context, input LandingInput, actorID *uint) (db.LandingPageURL, error) {
	in, err := s.normalizeInput(input)
	if err != nil {
		return db.LandingPageURL{}, err
	}
	row := db.LandingPageURL{
		Title:       in.Title,
		URL:         in.URL,
		HotspotName: in.HotspotName,
		IsActive:    in.IsActive,
		Priority:    in.Priority,
		CreatedByID: actorID,
	}

	err = s.Guard(ctx, []string{in.HotspotName}, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if in.IsActive {
				if err := lockLandingHotspot(tx, in.HotspotName); err != nil {
					return err
				}
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			if in.IsActive {
				return deactivateLandingSiblings(tx, in.HotspotName, row.ID)
			}
			return nil
		})
	})
	if err != nil {
		return db.LandingPageURL{}, internalError("create landing url", err)
	}
	return row, nil
}

// Update replaces a landing URL. Moving it to another hotspot invalidates both.
func (s *LandingService) Update(ctx context.Context, id uint, input LandingInput) (db.LandingPageURL, error) {
	in, err := s.normalizeInput(input)
	if err != nil {
		return db.LandingPageURL{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return db.LandingPageURL{}, err
	}

	var row db.LandingPageURL
	err = s.Guard(ctx, []string{current.HotspotName, in.HotspotName}, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; err != nil {
				return err
			}
			if in.IsActive {
				if err := lockLandingHotspot(tx, in.HotspotName); err != nil {
					return err
				}
			}
			row.Title = in.Title
			row.URL = in.URL
			row.HotspotName = in.HotspotName
			row.IsActive = in.IsActive
			row.Priority = in.Priority
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
			if in.IsActive {
				return deactivateLandingSiblings(tx, in.HotspotName, row.ID)
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.LandingPageURL{}, ErrLandingNotFound
		}
		return db.LandingPageURL{}, internalError("update landing url", err)
	}
	return row, nil
}

// Delete removes a landing URL.
func (s *LandingService) Delete(ctx context.Context, id uint) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var affected int64
	err = s.Guard(ctx, []string{current.HotspotName}, func() error {
		result := s.db.WithContext(ctx).Delete(&db.LandingPageURL{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return internalError("delete landing url", err)
	}
	if affected == 0 {
		return ErrLandingNotFound
	}
	return nil
}

// Activate makes the URL the hotspot's only active one.
func (s *LandingService) Activate(ctx context.Context, id uint) (db.LandingPageURL, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return db.LandingPageURL{}, err
	}

	var row db.LandingPageURL
	err = s.Guard(ctx, []string{current.HotspotName}, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockLandingHotspot(tx, current.HotspotName); err != nil {
				return err
			}
			if err := deactivateLandingSiblings(tx, current.HotspotName, id); err != nil {
				return err
			}
			if err := tx.Model(&db.LandingPageURL{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
				return err
			}
			return tx.First(&row, id).Error
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.LandingPageURL{}, ErrLandingNotFound
		}
		return db.LandingPageURL{}, internalError("activate landing url", err)
	}
	return row, nil
}

func lockLandingHotspot(tx *gorm.DB, hotspot string) error {
	var ids []uint
	return tx.Model(&db.LandingPageURL{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("hotspot_name = ?", hotspot).
		Pluck("id", &ids).Error
}

func deactivateLandingSiblings(tx *gorm.DB, hotspot string, keepID uint) error {
	return tx.Model(&db.LandingPageURL{}).
		Where("hotspot_name = ? AND id <> ? AND is_active = ?", hotspot, keepID, true).
		Update("is_active", false).Error
}
