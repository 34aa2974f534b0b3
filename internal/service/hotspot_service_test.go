package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liblogin/internal/cache"
	"github.com/liblogin/internal/db"
)

func writeHotspotFolder(t *testing.T, root, name, login string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if login == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, HotspotLoginFile), []byte(login), 0o644); err != nil {
		t.Fatalf("write login file: %v", err)
	}
}

func TestHotspotDeleteCascadesToContent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	ctx := context.Background()
	content := NewContentService(gdb, "/media")
	landing := NewLandingService(gdb, cache.NewMemory(), time.Minute)
	hotspots := NewHotspotService(gdb, t.TempDir(), landing)

	h, err := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_lab", IsActive: true}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	seed := []struct {
		kind ContentKind
		in   ContentInput
	}{
		{KindTemplate, ContentInput{Title: "t", HotspotName: "hotspot_lab"}},
		{KindBackground, ContentInput{Title: "b", ImagePath: "b.jpg", HotspotName: "hotspot_lab"}},
		{KindSlide, ContentInput{Title: "s", HotspotName: "hotspot_lab"}},
		{KindCard, ContentInput{Title: "c", HotspotName: "hotspot_lab"}},
		{KindSlide, ContentInput{Title: "shared"}},
	}
	for _, s := range seed {
		if _, err := content.Create(ctx, s.kind, s.in, nil); err != nil {
			t.Fatalf("seed %s: %v", s.kind, err)
		}
	}
	if _, err := landing.Create(ctx, LandingInput{URL: "https://a.example.org", HotspotName: "hotspot_lab"}, nil); err != nil {
		t.Fatalf("seed landing url: %v", err)
	}

	if err := hotspots.Delete(ctx, h.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	lab := NamedScope("hotspot_lab")
	for _, kind := range ContentKinds {
		items, err := content.List(ctx, kind, ContentFilter{Scope: &lab})
		if err != nil || len(items) != 0 {
			t.Fatalf("expected %s rows of the hotspot to be deleted, got %d err=%v", kind, len(items), err)
		}
	}
	shared, _ := content.List(ctx, KindSlide, ContentFilter{})
	if len(shared) != 1 {
		t.Fatalf("expected default-scope slide to survive, got %d", len(shared))
	}
	urls, _ := landing.List(ctx, "hotspot_lab")
	if len(urls) != 1 {
		t.Fatalf("expected landing urls to be kept, got %d", len(urls))
	}

	if err := hotspots.Delete(ctx, h.ID); !errors.Is(err, ErrHotspotNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHotspotRenameMovesReferences(t *testing.T) {
	gdb := setupServiceTestDB(t)
	ctx := context.Background()
	content := NewContentService(gdb, "/media")
	landing := NewLandingService(gdb, cache.NewMemory(), time.Hour)
	hotspots := NewHotspotService(gdb, t.TempDir(), landing)

	h, _ := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_lab"}, nil)
	if _, err := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_hall"}, nil); err != nil {
		t.Fatalf("create second hotspot: %v", err)
	}
	if _, err := content.Create(ctx, KindTemplate, ContentInput{Title: "t", HotspotName: "hotspot_lab", IsActive: true}, nil); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if _, err := landing.Create(ctx, LandingInput{URL: "https://a.example.org", HotspotName: "hotspot_lab", IsActive: true}, nil); err != nil {
		t.Fatalf("seed landing: %v", err)
	}
	if res, _ := landing.Resolve(ctx, "hotspot_lab", time.Now()); res.Fallback {
		t.Fatal("expected landing url before rename")
	}

	if _, err := hotspots.Update(ctx, h.ID, HotspotInput{HotspotName: "hotspot_hall"}); !errors.Is(err, ErrHotspotExists) {
		t.Fatalf("expected name conflict, got %v", err)
	}

	renamed, err := hotspots.Update(ctx, h.ID, HotspotInput{HotspotName: "hotspot_library", DisplayName: "Library"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if renamed.HotspotName != "hotspot_library" || renamed.DisplayName != "Library" {
		t.Fatalf("unexpected rename result: %+v", renamed)
	}

	bundle, err := content.Resolve(ctx, NamedScope("hotspot_library"), nil)
	if err != nil || bundle.Tier != TierHotspot {
		t.Fatalf("expected template to follow the rename: %+v err=%v", bundle, err)
	}
	if res, _ := landing.Resolve(ctx, "hotspot_lab", time.Now()); !res.Fallback {
		t.Fatalf("expected old name cache to be invalidated: %+v", res)
	}
	if res, _ := landing.Resolve(ctx, "hotspot_library", time.Now()); res.Fallback {
		t.Fatalf("expected landing url under the new name: %+v", res)
	}
}

func TestHotspotValidationAndDuplicates(t *testing.T) {
	hotspots := NewHotspotService(setupServiceTestDB(t), t.TempDir(), nil)
	ctx := context.Background()

	for _, name := range []string{"", "has space", "../escape", "x/y"} {
		if _, err := hotspots.Create(ctx, HotspotInput{HotspotName: name}, nil); !errors.Is(err, ErrHotspotNameInvalid) {
			t.Fatalf("expected invalid name for %q, got %v", name, err)
		}
	}

	created, err := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_main_hall"}, nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.DisplayName != "Main Hall" || created.Status != db.HotspotStatusUnchecked {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if _, err := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_main_hall"}, nil); !errors.Is(err, ErrHotspotExists) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestHotspotCheckConnectionStatuses(t *testing.T) {
	gdb := setupServiceTestDB(t)
	root := t.TempDir()
	hotspots := NewHotspotService(gdb, root, nil)
	ctx := context.Background()

	writeHotspotFolder(t, root, "hotspot_ready", `<script>window.HOTSPOT_NAME = "hotspot_ready";</script>`)
	writeHotspotFolder(t, root, "hotspot_mismatch", `<script>window.HOTSPOT_NAME='hotspot_other'</script>`)
	writeHotspotFolder(t, root, "hotspot_nologin", "")

	cases := map[string]string{
		"hotspot_ready":    db.HotspotStatusReady,
		"hotspot_mismatch": db.HotspotStatusWarning,
		"hotspot_nologin":  db.HotspotStatusWarning,
		"hotspot_missing":  db.HotspotStatusError,
	}
	for name, want := range cases {
		h, err := hotspots.Create(ctx, HotspotInput{HotspotName: name}, nil)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		checked, err := hotspots.CheckConnection(ctx, h.ID)
		if err != nil {
			t.Fatalf("check %s: %v", name, err)
		}
		if checked.Status != want || checked.LastChecked == nil {
			t.Fatalf("%s: expected %s, got %+v", name, want, checked)
		}
		stored, _ := hotspots.Get(ctx, h.ID)
		if stored.Status != want {
			t.Fatalf("%s: expected persisted status %s, got %s", name, want, stored.Status)
		}
	}
}

func TestImportFromFolders(t *testing.T) {
	gdb := setupServiceTestDB(t)
	root := t.TempDir()
	hotspots := NewHotspotService(gdb, root, nil)
	ctx := context.Background()

	writeHotspotFolder(t, root, "hotspot", `window.HOTSPOT_NAME = 'hotspot'`)
	writeHotspotFolder(t, root, "hotspot_lab", "")
	writeHotspotFolder(t, root, "static", "")
	if err := os.WriteFile(filepath.Join(root, "hotspot_file"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := hotspots.Create(ctx, HotspotInput{HotspotName: "hotspot_lab"}, nil); err != nil {
		t.Fatalf("seed hotspot: %v", err)
	}

	dry, err := hotspots.ImportFromFolders(ctx, true, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(dry.Found) != 2 || len(dry.Imported) != 1 || len(dry.Skipped) != 1 {
		t.Fatalf("unexpected dry run report: %+v", dry)
	}
	var count int64
	gdb.Model(&db.Hotspot{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected dry run to write nothing, got %d hotspots", count)
	}

	report, err := hotspots.ImportFromFolders(ctx, false, true)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Imported) != 1 || report.Imported[0].HotspotName != "hotspot" || report.Imported[0].DisplayName != "Default Hotspot" {
		t.Fatalf("unexpected import: %+v", report.Imported)
	}
	if report.Imported[0].Status != db.HotspotStatusReady {
		t.Fatalf("expected imported hotspot to be checked, got %s", report.Imported[0].Status)
	}
}

func TestDisplayNameForFolder(t *testing.T) {
	cases := map[string]string{
		"hotspot":           "Default Hotspot",
		"hotspot_":          "Default Hotspot",
		"hotspot_lab":       "Lab",
		"hotspot_main_hall": "Main Hall",
		"hotspotWIFI":       "Wifi",
	}
	for in, want := range cases {
		if got := DisplayNameForFolder(in); got != want {
			t.Errorf("DisplayNameForFolder(%q) = %q, want %q", in, got, want)
		}
	}
}
