package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/liblogin/internal/cache"
	"github.com/liblogin/internal/db"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrUnavailable
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrUnavailable
}

func (failingStore) Delete(context.Context, ...string) error { return nil }

func redirectCount(t *testing.T, svc *LandingService, id uint) int64 {
	t.Helper()
	row, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("load landing url: %v", err)
	}
	return row.RedirectCount
}

func TestLandingResolveCachesAndCountsEveryRedirect(t *testing.T) {
	gdb := setupServiceTestDB(t)
	store := cache.NewMemory()
	svc := NewLandingService(gdb, store, time.Minute)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	row, err := svc.Create(ctx, LandingInput{Title: "Catalog", URL: "https://library.example.org/catalog", HotspotName: "hotspot_lab", IsActive: true}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := svc.Resolve(ctx, "hotspot_lab", now)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := svc.Resolve(ctx, "hotspot_lab", now.Add(time.Second))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if first.Cache != CacheMiss || second.Cache != CacheHit {
		t.Fatalf("expected miss then hit, got %s then %s", first.Cache, second.Cache)
	}
	if first.URL == nil || second.URL == nil || *first.URL != *second.URL || first.Title != second.Title {
		t.Fatalf("expected identical results: %+v vs %+v", first, second)
	}
	if n := redirectCount(t, svc, row.ID); n != 2 {
		t.Fatalf("expected redirect_count 2, got %d", n)
	}

	stored, _ := svc.Get(ctx, row.ID)
	if stored.LastRedirectedAt == nil || !stored.LastRedirectedAt.Equal(now.Add(time.Second)) {
		t.Fatalf("unexpected last_redirected_at: %v", stored.LastRedirectedAt)
	}
	if _, ok, _ := store.Get(ctx, LandingCacheKey("hotspot_lab")); !ok {
		t.Fatal("expected cache entry after resolve")
	}
}

func TestLandingWritesInvalidateCache(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewLandingService(gdb, cache.NewMemory(), time.Hour)
	ctx := context.Background()
	now := time.Now()

	res, err := svc.Resolve(ctx, "hotspot_lab", now)
	if err != nil || !res.Fallback || res.URL != nil {
		t.Fatalf("expected fallback without URLs: %+v err=%v", res, err)
	}

	row, err := svc.Create(ctx, LandingInput{Title: "A", URL: "https://a.example.org", HotspotName: "hotspot_lab", IsActive: true}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	res, _ = svc.Resolve(ctx, "hotspot_lab", now)
	if res.Fallback || *res.URL != "https://a.example.org" {
		t.Fatalf("expected create to invalidate cached fallback: %+v", res)
	}

	if _, err := svc.Update(ctx, row.ID, LandingInput{Title: "B", URL: "https://b.example.org", HotspotName: "hotspot_lab", IsActive: true}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	res, _ = svc.Resolve(ctx, "hotspot_lab", now)
	if res.Cache != CacheMiss || *res.URL != "https://b.example.org" || res.Title != "B" {
		t.Fatalf("expected update to bypass stale cache: %+v", res)
	}

	// moving the row to another hotspot must refresh both
	if _, err := svc.Update(ctx, row.ID, LandingInput{Title: "B", URL: "https://b.example.org", HotspotName: "hotspot_hall", IsActive: true}); err != nil {
		t.Fatalf("Update move returned error: %v", err)
	}
	if res, _ = svc.Resolve(ctx, "hotspot_lab", now); !res.Fallback {
		t.Fatalf("expected old hotspot to fall back: %+v", res)
	}
	if res, _ = svc.Resolve(ctx, "hotspot_hall", now); res.Fallback {
		t.Fatalf("expected new hotspot to resolve: %+v", res)
	}

	if err := svc.Delete(ctx, row.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if res, _ = svc.Resolve(ctx, "hotspot_hall", now); !res.Fallback {
		t.Fatalf("expected delete to invalidate cache: %+v", res)
	}
	if err := svc.Delete(ctx, row.ID); !errors.Is(err, ErrLandingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLandingActivateKeepsOneActive(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewLandingService(gdb, cache.NewMemory(), time.Hour)
	ctx := context.Background()

	a, _ := svc.Create(ctx, LandingInput{URL: "https://a.example.org", HotspotName: "hotspot_lab", IsActive: true}, nil)
	b, _ := svc.Create(ctx, LandingInput{URL: "https://b.example.org", HotspotName: "hotspot_lab", IsActive: true}, nil)
	other, _ := svc.Create(ctx, LandingInput{URL: "https://c.example.org", HotspotName: "hotspot_hall", IsActive: true}, nil)

	if _, err := svc.Resolve(ctx, "hotspot_lab", time.Now()); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if _, err := svc.Activate(ctx, a.ID); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	var active []db.LandingPageURL
	gdb.Where("hotspot_name = ? AND is_active = ?", "hotspot_lab", true).Find(&active)
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("expected only %d active, got %+v", a.ID, active)
	}
	if got, _ := svc.Get(ctx, b.ID); got.IsActive {
		t.Fatal("expected b to be deactivated")
	}
	if got, _ := svc.Get(ctx, other.ID); !got.IsActive {
		t.Fatal("expected other hotspot to be untouched")
	}

	res, _ := svc.Resolve(ctx, "hotspot_lab", time.Now())
	if res.URL == nil || *res.URL != "https://a.example.org" {
		t.Fatalf("expected activation to invalidate cache: %+v", res)
	}

	if _, err := svc.Activate(ctx, 9999); !errors.Is(err, ErrLandingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLandingValidation(t *testing.T) {
	svc := NewLandingService(setupServiceTestDB(t), cache.NewMemory(), 0)
	ctx := context.Background()

	for _, name := range []string{"", "   ", strings.Repeat("x", 101)} {
		if _, err := svc.Resolve(ctx, name, time.Now()); !errors.Is(err, ErrHotspotNameInvalid) {
			t.Fatalf("expected invalid hotspot for %q, got %v", name, err)
		}
	}

	cases := []struct {
		name  string
		input LandingInput
		want  error
	}{
		{"missing url", LandingInput{HotspotName: "h"}, ErrLandingURLInvalid},
		{"not a url", LandingInput{URL: "library", HotspotName: "h"}, ErrLandingURLInvalid},
		{"wrong scheme", LandingInput{URL: "ftp://files.example.org", HotspotName: "h"}, ErrLandingURLInvalid},
		{"too long", LandingInput{URL: "https://example.org/" + strings.Repeat("a", 500), HotspotName: "h"}, ErrLandingURLInvalid},
		{"missing hotspot", LandingInput{URL: "https://example.org"}, ErrHotspotNameInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.input, nil); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLandingResolveSurvivesCacheOutage(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewLandingService(gdb, failingStore{}, time.Minute)
	ctx := context.Background()

	row, err := svc.Create(ctx, LandingInput{URL: "https://a.example.org", HotspotName: "hotspot_lab", IsActive: true}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	res, err := svc.Resolve(ctx, "hotspot_lab", time.Now())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Cache != CacheError || res.URL == nil || *res.URL != row.URL {
		t.Fatalf("expected store-backed result, got %+v", res)
	}
}
