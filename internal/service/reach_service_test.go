package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/liblogin/internal/db"
	"gorm.io/gorm"
)

func seedImpressions(t *testing.T, gdb *gorm.DB, hotspot, device string, count int, at time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		row := db.PageImpression{
			HotspotName: hotspot,
			ViewedAt:    at.Add(time.Duration(i) * time.Second).UTC(),
			DeviceHash:  HashDeviceIdentifier(device),
			DeviceClass: db.DeviceMobile,
		}
		if err := gdb.Create(&row).Error; err != nil {
			t.Fatalf("seed impression: %v", err)
		}
	}
}

func hasRecommendation(recs []Recommendation, code string) bool {
	for _, rec := range recs {
		if rec.Code == code {
			return true
		}
	}
	return false
}

func TestReachReportFrequencyDistribution(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewReachService(gdb, time.UTC)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	peak := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, count := range []int{1, 2, 3, 5, 8, 10, 15, 16, 20, 1} {
		seedImpressions(t, gdb, "hotspot_lab", fmt.Sprintf("device-%d", i), count, peak.Add(time.Duration(i)*time.Minute))
	}
	// previous window: one device, two views
	seedImpressions(t, gdb, "hotspot_lab", "old-device", 2, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	report, err := svc.Report(context.Background(), ReportQuery{
		Window:         WindowForDays(now, 7, time.UTC),
		TargetAudience: 100,
		AdCost:         50,
	})
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if report.TotalReach != 10 || report.TotalImpressions != 81 {
		t.Fatalf("unexpected totals: reach=%d impressions=%d", report.TotalReach, report.TotalImpressions)
	}
	if report.Frequency != 8.1 || report.ReachRate != 10 || report.GRP != 81 {
		t.Fatalf("unexpected frequency metrics: %+v", report)
	}

	wantBuckets := map[string]int64{"1-2": 3, "3-7": 2, "8-15": 3, "15+": 2}
	for _, bucket := range report.FrequencyDistribution {
		if bucket.Devices != wantBuckets[bucket.Label] {
			t.Fatalf("bucket %s: expected %d devices, got %d", bucket.Label, wantBuckets[bucket.Label], bucket.Devices)
		}
	}
	if report.EffectiveReach != 7 || report.EffectiveReachPercentage != 70 {
		t.Fatalf("unexpected effective reach: %d %.1f", report.EffectiveReach, report.EffectiveReachPercentage)
	}

	if report.CPM != 617.28 || report.CostPerReach != 5 {
		t.Fatalf("unexpected cost metrics: cpm=%v per reach=%v", report.CPM, report.CostPerReach)
	}
	if report.PeakDay == nil || report.PeakDay.Date != "2025-03-10" || report.PeakDay.Impressions != 81 {
		t.Fatalf("unexpected peak day: %+v", report.PeakDay)
	}
	if report.PeakHour == nil || report.PeakHour.Hour != 9 {
		t.Fatalf("unexpected peak hour: %+v", report.PeakHour)
	}
	if len(report.HourlyDistribution) != 24 || report.HourlyDistribution[9].Impressions != 81 {
		t.Fatalf("unexpected hourly distribution: %+v", report.HourlyDistribution)
	}
	if len(report.DailyTrend) != 7 || report.DailyTrend[6].Reach != 10 {
		t.Fatalf("unexpected daily trend: %+v", report.DailyTrend)
	}

	if report.Growth.PreviousReach != 1 || report.Growth.PreviousImpressions != 2 {
		t.Fatalf("unexpected previous period: %+v", report.Growth)
	}
	if report.Growth.ReachGrowth != 900 || report.Growth.ImpressionGrowth != 3950 {
		t.Fatalf("unexpected growth: %+v", report.Growth)
	}

	for _, code := range []string{"optimal_frequency", "strong_effective_reach", "overexposure"} {
		if !hasRecommendation(report.Recommendations, code) {
			t.Fatalf("expected recommendation %s in %+v", code, report.Recommendations)
		}
	}
	if hasRecommendation(report.Recommendations, "low_engagement") {
		t.Fatal("expected no engagement rule without timing data")
	}
}

func TestReachReportEmptyWindowIsAllZero(t *testing.T) {
	svc := NewReachService(setupServiceTestDB(t), time.UTC)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	report, err := svc.Report(context.Background(), ReportQuery{
		Window:         WindowForDays(now, 7, time.UTC),
		TargetAudience: 0,
		AdCost:         100,
	})
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	if report.TotalReach != 0 || report.Frequency != 0 || report.ReachRate != 0 || report.GRP != 0 {
		t.Fatalf("expected zero reach metrics: %+v", report)
	}
	if report.CPM != 0 || report.CostPerReach != 0 || report.EngagementRate != 0 || report.EffectiveReachPercentage != 0 {
		t.Fatalf("expected zero ratios: %+v", report)
	}
	if report.Growth.ReachGrowth != 0 || report.Growth.ImpressionGrowth != 0 {
		t.Fatalf("expected zero growth: %+v", report.Growth)
	}
	if report.PeakDay != nil || report.PeakHour != nil {
		t.Fatalf("expected no peaks: %+v %+v", report.PeakDay, report.PeakHour)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0].Code != "no_frequency_data" || report.Recommendations[0].Level != LevelInfo {
		t.Fatalf("unexpected recommendations: %+v", report.Recommendations)
	}
	if len(report.DailyTrend) != 7 {
		t.Fatalf("expected a zero-filled daily trend, got %d days", len(report.DailyTrend))
	}

	_, err = svc.Report(context.Background(), ReportQuery{Window: Window{Start: now, End: now.Add(-time.Hour)}})
	if !errors.Is(err, ErrWindowInvalid) {
		t.Fatalf("expected invalid window, got %v", err)
	}
}

func TestBuildReachReportEngagementAndThresholds(t *testing.T) {
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	seconds := func(v int) *int { return &v }
	rows := []impressionRow{
		{HotspotName: "a", ViewedAt: at, DeviceHash: "d1", DeviceClass: db.DeviceMobile, TimeOnPage: seconds(5)},
		{HotspotName: "a", ViewedAt: at, DeviceHash: "d2", DeviceClass: db.DeviceDesktop, TimeOnPage: seconds(10)},
		{HotspotName: "b", ViewedAt: at, DeviceHash: "d3", DeviceClass: db.DeviceDesktop, TimeOnPage: seconds(20)},
		{HotspotName: "b", ViewedAt: at, DeviceHash: "d4", DeviceClass: db.DeviceDesktop},
	}
	report := buildReachReport(ReportQuery{Window: DayWindow(at, time.UTC), TargetAudience: 8}, rows, time.UTC)

	if report.EngagementRate != 66.7 || report.AvgTimeOnPage != 11.7 {
		t.Fatalf("unexpected engagement: rate=%v avg=%v", report.EngagementRate, report.AvgTimeOnPage)
	}
	if report.Frequency != 1 || report.ReachRate != 50 || report.GRP != 50 {
		t.Fatalf("unexpected reach metrics: %+v", report)
	}
	if len(report.DeviceBreakdown) != 2 || report.DeviceBreakdown[0].Key != db.DeviceDesktop || report.DeviceBreakdown[0].Percentage != 75 {
		t.Fatalf("unexpected device breakdown: %+v", report.DeviceBreakdown)
	}
	if len(report.LocationBreakdown) != 2 || report.LocationBreakdown[0].Key != "a" {
		t.Fatalf("unexpected location breakdown: %+v", report.LocationBreakdown)
	}
	for _, code := range []string{"low_frequency", "low_effective_reach", "strong_engagement"} {
		if !hasRecommendation(report.Recommendations, code) {
			t.Fatalf("expected %s in %+v", code, report.Recommendations)
		}
	}
	if hasRecommendation(report.Recommendations, "overexposure") {
		t.Fatal("did not expect overexposure")
	}
}

func TestRecommendationFrequencyBreakpoints(t *testing.T) {
	cases := []struct {
		frequency float64
		code      string
	}{
		{2.9, "low_frequency"},
		{3, "optimal_frequency"},
		{15, "optimal_frequency"},
		{15.1, "ad_fatigue"},
	}
	for _, tc := range cases {
		report := ReachReport{
			TotalReach:            10,
			Frequency:             tc.frequency,
			FrequencyDistribution: frequencyDistribution(map[string]int{}),
		}
		if recs := recommendations(report, false); !hasRecommendation(recs, tc.code) {
			t.Errorf("frequency %.1f: expected %s, got %+v", tc.frequency, tc.code, recs)
		}
	}
}

func TestWindowForDays(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

	w := WindowForDays(now, 0, time.UTC)
	if !w.Start.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) || !w.End.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected default window: %+v", w)
	}

	w = WindowForDays(now, 1000, time.UTC)
	if days := w.End.Sub(w.Start).Hours() / 24; days != MaxReportDays {
		t.Fatalf("expected clamp to %d days, got %.0f", MaxReportDays, days)
	}

	prev := WindowForDays(now, 1, time.UTC).Previous()
	if !prev.Start.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) || !prev.End.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected previous window: %+v", prev)
	}
}
