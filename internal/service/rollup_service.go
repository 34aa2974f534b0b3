package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/liblogin/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RollupService materialises DailyReachStats from the impression log.
type RollupService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewRollupService constructs a RollupService. Days are calendar days in loc.
func NewRollupService(gdb *gorm.DB, loc *time.Location) *RollupService {
	if loc == nil {
		loc = time.Local
	}
	return &RollupService{db: gdb, loc: loc}
}

// Location exposes the calendar used for day boundaries.
func (s *RollupService) Location() *time.Location { return s.loc }

// Rollup recomputes every hotspot's row for the day and drops rows of hotspots
// that no longer have impressions that day.
func (s *RollupService) Rollup(ctx context.Context, day Window) ([]db.DailyReachStats, error) {
	if !day.valid() {
		return nil, ErrWindowInvalid
	}
	key := day.Start.In(s.loc).Format("2006-01-02")

	var stats []db.DailyReachStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := loadImpressions(tx, day, "")
		if err != nil {
			return err
		}
		stats, err = dailyStats(key, rows, s.loc)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(stats))
		for i := range stats {
			names = append(names, stats[i].HotspotName)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "hotspot_name"}, {Name: "day"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"total_impressions", "unique_devices", "mobile_count", "desktop_count",
					"tablet_count", "unknown_count", "avg_time_on_page", "total_time_on_page",
					"hourly_data", "last_updated",
				}),
			}).Create(&stats[i]).Error; err != nil {
				return err
			}
		}

		stale := tx.Where("day = ?", key)
		if len(names) > 0 {
			stale = stale.Where("hotspot_name NOT IN ?", names)
		}
		return stale.Delete(&db.DailyReachStats{}).Error
	})
	if err != nil {
		return nil, internalError("rollup daily stats", err)
	}
	if stats == nil {
		stats = []db.DailyReachStats{}
	}
	return stats, nil
}

// ListDaily returns materialised rows with from <= day <= to (YYYY-MM-DD).
// Empty bounds are open.
func (s *RollupService) ListDaily(ctx context.Context, hotspot, from, to string) ([]db.DailyReachStats, error) {
	q := s.db.WithContext(ctx).Model(&db.DailyReachStats{})
	if hotspot = strings.TrimSpace(hotspot); hotspot != "" {
		q = q.Where("hotspot_name = ?", hotspot)
	}
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound); err != nil {
			return nil, ErrDateInvalid
		}
	}
	if from != "" {
		q = q.Where("day >= ?", from)
	}
	if to != "" {
		q = q.Where("day <= ?", to)
	}

	var rows []db.DailyReachStats
	if err := q.Order("day ASC").Order("hotspot_name ASC").Find(&rows).Error; err != nil {
		return nil, internalError("list daily stats", err)
	}
	return rows, nil
}

func dailyStats(day string, rows []impressionRow, loc *time.Location) ([]db.DailyReachStats, error) {
	type acc struct {
		stat    db.DailyReachStats
		devices map[string]struct{}
		hourly  [24]int64
		timed   int64
	}
	groups := make(map[string]*acc)
	for _, row := range rows {
		g, ok := groups[row.HotspotName]
		if !ok {
			g = &acc{
				stat:    db.DailyReachStats{HotspotName: row.HotspotName, Day: day},
				devices: make(map[string]struct{}),
			}
			groups[row.HotspotName] = g
		}
		g.stat.TotalImpressions++
		g.devices[row.DeviceHash] = struct{}{}
		g.hourly[row.ViewedAt.In(loc).Hour()]++
		switch row.DeviceClass {
		case db.DeviceMobile:
			g.stat.MobileCount++
		case db.DeviceDesktop:
			g.stat.DesktopCount++
		case db.DeviceTablet:
			g.stat.TabletCount++
		default:
			g.stat.UnknownCount++
		}
		if row.TimeOnPage != nil {
			g.timed++
			g.stat.TotalTimeOnPage += int64(*row.TimeOnPage)
		}
	}

	out := make([]db.DailyReachStats, 0, len(groups))
	for _, g := range groups {
		g.stat.UniqueDevices = int64(len(g.devices))
		g.stat.AvgTimeOnPage = round1(ratio(float64(g.stat.TotalTimeOnPage), float64(g.timed)))
		hourly, err := json.Marshal(g.hourly)
		if err != nil {
			return nil, err
		}
		g.stat.HourlyData = datatypes.JSON(hourly)
		out = append(out, g.stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HotspotName < out[j].HotspotName })
	return out, nil
}
