package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
)

// HotspotLoginFile is the captive-portal page expected in every hotspot folder.
const HotspotLoginFile = "login.html"

var (
	hotspotNamePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
	hotspotConfigPattern = regexp.MustCompile(`window\.HOTSPOT_NAME\s*=\s*['"]([^'"]+)['"]`)
)

// HotspotInput is the editable part of a hotspot.
type HotspotInput struct {
	HotspotName string
	DisplayName string
	Description string
	IsActive    bool
}

// HotspotView adds the derived status to a hotspot row.
type HotspotView struct {
	db.Hotspot
	Status string `json:"status"`
}

// ImportReport summarises a folder import.
type ImportReport struct {
	Found    []string      `json:"found"`
	Imported []HotspotView `json:"imported"`
	Skipped  []string      `json:"skipped"`
	DryRun   bool          `json:"dry_run"`
}

// HotspotService manages hotspots and the content that references them by name.
type HotspotService struct {
	db      *gorm.DB
	rootDir string
	landing *LandingService
	now     func() time.Time
}

// NewHotspotService constructs a HotspotService. rootDir holds one folder per hotspot;
// landing, when set, is invalidated on renames.
func NewHotspotService(gdb *gorm.DB, rootDir string, landing *LandingService) *HotspotService {
	if strings.TrimSpace(rootDir) == "" {
		rootDir = "."
	}
	return &HotspotService{db: gdb, rootDir: rootDir, landing: landing, now: time.Now}
}

// ValidHotspotName reports whether name can be used as a hotspot identifier.
func ValidHotspotName(name string) bool {
	return hotspotNamePattern.MatchString(name)
}

func viewOf(h db.Hotspot) HotspotView {
	return HotspotView{Hotspot: h, Status: h.Status()}
}

func (in HotspotInput) normalize() (HotspotInput, error) {
	in.HotspotName = strings.TrimSpace(in.HotspotName)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Description = strings.TrimSpace(in.Description)
	if !ValidHotspotName(in.HotspotName) {
		return in, ErrHotspotNameInvalid
	}
	if in.DisplayName == "" {
		in.DisplayName = DisplayNameForFolder(in.HotspotName)
	}
	return in, nil
}

// List returns every hotspot ordered by name.
func (s *HotspotService) List(ctx context.Context) ([]HotspotView, error) {
	var rows []db.Hotspot
	if err := s.db.WithContext(ctx).Order("hotspot_name ASC").Find(&rows).Error; err != nil {
		return nil, internalError("list hotspots", err)
	}
	views := make([]HotspotView, 0, len(rows))
	for _, row := range rows {
		views = append(views, viewOf(row))
	}
	return views, nil
}

// Get loads one hotspot.
func (s *HotspotService) Get(ctx context.Context, id uint) (HotspotView, error) {
	row, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return HotspotView{}, err
	}
	return viewOf(row), nil
}

func (s *HotspotService) load(q *gorm.DB, id uint) (db.Hotspot, error) {
	var row db.Hotspot
	if err := q.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, ErrHotspotNotFound
		}
		return row, internalError("load hotspot", err)
	}
	return row, nil
}

func (s *HotspotService) nameTaken(q *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	err := q.Model(&db.Hotspot{}).Where("hotspot_name = ? AND id <> ?", name, exceptID).Count(&count).Error
	return count > 0, err
}

// Create registers a hotspot.
func (s *HotspotService) Create(ctx context.Context, input HotspotInput, actorID *uint) (HotspotView, error) {
	in, err := input.normalize()
	if err != nil {
		return HotspotView{}, err
	}
	q := s.db.WithContext(ctx)
	taken, err := s.nameTaken(q, in.HotspotName, 0)
	if err != nil {
		return HotspotView{}, internalError("check hotspot name", err)
	}
	if taken {
		return HotspotView{}, ErrHotspotExists
	}

	row := db.Hotspot{
		HotspotName: in.HotspotName,
		DisplayName: in.DisplayName,
		Description: in.Description,
		IsActive:    in.IsActive,
		CreatedByID: actorID,
	}
	if err := q.Create(&row).Error; err != nil {
		return HotspotView{}, internalError("create hotspot", err)
	}
	return viewOf(row), nil
}

// Update edits a hotspot. A new name is carried over to its content rows and
// landing URLs in the same transaction.
func (s *HotspotService) Update(ctx context.Context, id uint, input HotspotInput) (HotspotView, error) {
	in, err := input.normalize()
	if err != nil {
		return HotspotView{}, err
	}
	current, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return HotspotView{}, err
	}
	oldName := current.HotspotName
	renamed := oldName != in.HotspotName

	var row db.Hotspot
	write := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&row, id).Error; err != nil {
				return err
			}
			if renamed {
				taken, err := s.nameTaken(tx, in.HotspotName, id)
				if err != nil {
					return err
				}
				if taken {
					return ErrHotspotExists
				}
				if err := renameHotspotReferences(tx, oldName, in.HotspotName); err != nil {
					return err
				}
			}
			row.HotspotName = in.HotspotName
			row.DisplayName = in.DisplayName
			row.Description = in.Description
			row.IsActive = in.IsActive
			return tx.Save(&row).Error
		})
	}

	if renamed && s.landing != nil {
		err = s.landing.Guard(ctx, []string{oldName, in.HotspotName}, write)
	} else {
		err = write()
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrHotspotExists):
			return HotspotView{}, ErrHotspotExists
		case errors.Is(err, gorm.ErrRecordNotFound):
			return HotspotView{}, ErrHotspotNotFound
		}
		return HotspotView{}, internalError("update hotspot", err)
	}
	return viewOf(row), nil
}

func renameHotspotReferences(tx *gorm.DB, from, to string) error {
	for _, kind := range ContentKinds {
		if err := tx.Model(kind.model()).Where("hotspot_name = ?", from).Update("hotspot_name", to).Error; err != nil {
			return err
		}
	}
	return tx.Model(&db.LandingPageURL{}).Where("hotspot_name = ?", from).Update("hotspot_name", to).Error
}

// Delete removes a hotspot and every content row scoped to its name. Landing URLs
// and the impression log are kept.
func (s *HotspotService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.Hotspot
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		for _, kind := range ContentKinds {
			if err := tx.Where("hotspot_name = ?", row.HotspotName).Delete(kind.model()).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHotspotNotFound
		}
		return internalError("delete hotspot", err)
	}
	return nil
}

// FolderCheck is the result of inspecting a hotspot folder.
type FolderCheck struct {
	FolderExists    bool
	LoginFileExists bool
	ConfigMatched   bool
}

// InspectHotspotFolder looks for <root>/<name>/login.html declaring the same name.
func InspectHotspotFolder(root, name string) FolderCheck {
	var check FolderCheck
	folder := filepath.Join(root, name)
	if info, err := os.Stat(folder); err == nil && info.IsDir() {
		check.FolderExists = true
	}
	loginPath := filepath.Join(folder, HotspotLoginFile)
	if info, err := os.Stat(loginPath); err == nil && info.Mode().IsRegular() {
		check.LoginFileExists = true
		if content, err := os.ReadFile(loginPath); err == nil {
			if match := hotspotConfigPattern.FindSubmatch(content); match != nil {
				check.ConfigMatched = string(match[1]) == name
			}
		}
	}
	return check
}

// CheckConnection inspects the hotspot folder and stores the result.
func (s *HotspotService) CheckConnection(ctx context.Context, id uint) (HotspotView, error) {
	q := s.db.WithContext(ctx)
	row, err := s.load(q, id)
	if err != nil {
		return HotspotView{}, err
	}
	if err := s.applyCheck(q, &row); err != nil {
		return HotspotView{}, internalError("store hotspot check", err)
	}
	return viewOf(row), nil
}

func (s *HotspotService) applyCheck(q *gorm.DB, row *db.Hotspot) error {
	check := InspectHotspotFolder(s.rootDir, row.HotspotName)
	checkedAt := s.now().UTC()
	row.FolderExists = check.FolderExists
	row.LoginFileExists = check.LoginFileExists
	row.ConfigMatched = check.ConfigMatched
	row.LastChecked = &checkedAt
	return q.Model(row).Select("folder_exists", "login_file_exists", "config_matched", "last_checked").Updates(row).Error
}

// ImportFromFolders registers every hotspot* folder under the root that is not known yet.
func (s *HotspotService) ImportFromFolders(ctx context.Context, dryRun, checkConnection bool) (ImportReport, error) {
	report := ImportReport{DryRun: dryRun, Found: []string{}, Imported: []HotspotView{}, Skipped: []string{}}

	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return report, internalError("scan hotspot folders", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && strings.HasPrefix(name, "hotspot") && ValidHotspotName(name) {
			report.Found = append(report.Found, name)
		}
	}
	sort.Strings(report.Found)

	q := s.db.WithContext(ctx)
	for _, name := range report.Found {
		taken, err := s.nameTaken(q, name, 0)
		if err != nil {
			return report, internalError("check hotspot name", err)
		}
		if taken {
			report.Skipped = append(report.Skipped, name)
			continue
		}

		row := db.Hotspot{
			HotspotName: name,
			DisplayName: DisplayNameForFolder(name),
			Description: "Auto-imported from " + name + " folder",
			IsActive:    true,
		}
		if !dryRun {
			if err := q.Create(&row).Error; err != nil {
				return report, internalError("import hotspot", err)
			}
			if checkConnection {
				if err := s.applyCheck(q, &row); err != nil {
					return report, internalError("store hotspot check", err)
				}
			}
		}
		report.Imported = append(report.Imported, viewOf(row))
	}
	return report, nil
}

// DisplayNameForFolder derives a label: hotspot_main_hall gives "Main Hall" and a bare
// hotspot gives "Default Hotspot".
func DisplayNameForFolder(folder string) string {
	suffix := strings.ReplaceAll(strings.ReplaceAll(folder, "hotspot_", ""), "hotspot", "")
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(suffix))
	if len(words) == 0 {
		return "Default Hotspot"
	}
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
