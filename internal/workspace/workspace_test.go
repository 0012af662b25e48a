package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"libertyls/internal/catalog"
)

const yamlCatalog = `features:
  - shortName: alpha-1.0
    enables: [beta-1.0]
  - shortName: beta-1.0
configElements:
  betaConfig: [beta-1.0]
`

func write(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func countingShared(calls *atomic.Int32) *catalog.Shared {
	return catalog.NewShared(func() (*catalog.Catalog, error) {
		calls.Add(1)
		return catalog.New([]catalog.Feature{{ShortName: "shared-1.0"}}, nil), nil
	})
}

func TestRegistryFor(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingShared(&calls))
	outer := t.TempDir()
	inner := filepath.Join(outer, "services", "api")
	if err := r.SetFolders([]string{PathToURI(outer), PathToURI(inner)}); err != nil {
		t.Fatalf("SetFolders: %v", err)
	}

	ws := r.For(PathToURI(filepath.Join(inner, "src", "server.xml")))
	if ws.Root != inner || ws.Detached {
		t.Fatalf("For picked %q (detached=%v), want %q", ws.Root, ws.Detached, inner)
	}
	if ws := r.For(PathToURI(filepath.Join(outer, "server.xml"))); ws.Root != outer {
		t.Fatalf("For picked %q, want %q", ws.Root, outer)
	}

	elsewhere := t.TempDir()
	doc := PathToURI(filepath.Join(elsewhere, "server.xml"))
	d1 := r.For(doc)
	if !d1.Detached || d1.Root != elsewhere {
		t.Fatalf("detached workspace = %+v", d1)
	}
	if d2 := r.For(doc); d2 != d1 {
		t.Fatalf("detached workspace not reused")
	}

	if err := r.AddFolder(PathToURI(elsewhere)); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}
	if ws := r.For(doc); ws.Detached {
		t.Fatalf("document should belong to the added folder")
	}
	if err := r.RemoveFolder(PathToURI(inner)); err != nil {
		t.Fatalf("RemoveFolder: %v", err)
	}
	folders := r.Folders()
	if len(folders) != 2 || folders[0] > folders[1] {
		t.Fatalf("Folders = %v", folders)
	}
}

func TestSetFoldersKeepsSnapshots(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingShared(&calls))
	root := t.TempDir()
	if err := r.SetFolders([]string{PathToURI(root)}); err != nil {
		t.Fatalf("SetFolders: %v", err)
	}
	ws := r.For(PathToURI(filepath.Join(root, "server.xml")))
	ws.Snapshot(context.Background())
	if err := r.SetFolders([]string{PathToURI(root), PathToURI(t.TempDir())}); err != nil {
		t.Fatalf("SetFolders: %v", err)
	}
	if again := r.For(PathToURI(filepath.Join(root, "server.xml"))); again != ws || !again.Loaded() {
		t.Fatalf("workspace was replaced")
	}
	if err := r.SetFolders([]string{"https://example.com/x"}); err == nil {
		t.Fatalf("expected error for non-file URI")
	}
}

func TestSnapshotDefaultLoadsSharedOnce(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingShared(&calls))
	roots := []string{t.TempDir(), t.TempDir(), t.TempDir()}
	uris := make([]string, len(roots))
	for i, root := range roots {
		uris[i] = PathToURI(root)
	}
	if err := r.SetFolders(uris); err != nil {
		t.Fatalf("SetFolders: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		root := roots[i%len(roots)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.For(PathToURI(filepath.Join(root, "server.xml"))).Snapshot(context.Background())
			if s.Source != DefaultSource || s.Catalog.Len() != 1 {
				t.Errorf("snapshot = %+v", s)
			}
		}()
	}
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("shared loader ran %d times", n)
	}
}

func TestSnapshotDiscoversProjectCatalog(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, CatalogDir, "featurelist.yaml"), yamlCatalog)
	var calls atomic.Int32
	ws := newWorkspace(root, false, countingShared(&calls), nil)

	s := ws.Snapshot(context.Background())
	if s.Err != nil || s.Catalog.Len() != 2 {
		t.Fatalf("snapshot = %+v", s)
	}
	if !s.Graph().Reachable([]string{"alpha-1.0"}, "beta-1.0") {
		t.Fatalf("graph misses alpha -> beta")
	}
	if s.Graph() != s.Graph() {
		t.Fatalf("graph rebuilt")
	}
	if calls.Load() != 0 {
		t.Fatalf("shared catalog loaded although a project catalog exists")
	}
}

func TestSnapshotUsesManifest(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "catalogs", "mine.yaml"), yamlCatalog)
	write(t, filepath.Join(root, "libertyls.toml"), "[catalog]\npath = \"catalogs/mine.yaml\"\ncache = false\n[completion]\nmatch = \"substring\"\n")
	var calls atomic.Int32
	ws := newWorkspace(root, false, countingShared(&calls), nil)

	s := ws.Snapshot(context.Background())
	if s.Err != nil || s.Source != filepath.Join(root, "catalogs", "mine.yaml") {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Config.Completion.Match != "substring" {
		t.Fatalf("config = %+v", s.Config)
	}
}

func TestSnapshotFallsBackOnBrokenCatalog(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, CatalogDir, "featurelist.json"), "{not json")
	var calls atomic.Int32
	ws := newWorkspace(root, false, countingShared(&calls), nil)

	s := ws.Snapshot(context.Background())
	if !errors.Is(s.Err, catalog.ErrLoad) {
		t.Fatalf("Err = %v", s.Err)
	}
	if s.Source != DefaultSource || s.Catalog.Len() != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestLoadCatalogKeepsLastGood(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.yaml")
	bad := filepath.Join(root, "bad.json")
	write(t, good, yamlCatalog)
	write(t, bad, `{"features": [{"shortName": ""}]}`)
	var calls atomic.Int32
	ws := newWorkspace(root, false, countingShared(&calls), nil)
	ctx := context.Background()

	if err := ws.LoadCatalog(ctx, good); err != nil {
		t.Fatalf("LoadCatalog(good): %v", err)
	}
	before := ws.Snapshot(ctx)
	if err := ws.LoadCatalog(ctx, bad); !errors.Is(err, catalog.ErrLoad) {
		t.Fatalf("LoadCatalog(bad) = %v", err)
	}
	if after := ws.Snapshot(ctx); after != before {
		t.Fatalf("snapshot replaced after failed load")
	}
	if err := ws.LoadCatalog(ctx, filepath.Join(root, "missing.toml")); err == nil {
		t.Fatalf("expected error for missing catalog")
	}
}

func TestReloadKeepsLastGoodCatalog(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, CatalogDir, "featurelist.yaml")
	write(t, path, yamlCatalog)
	var calls atomic.Int32
	ws := newWorkspace(root, false, countingShared(&calls), nil)
	ctx := context.Background()
	first := ws.Snapshot(ctx)

	write(t, path, "features: [")
	s, err := ws.Reload(ctx)
	if err == nil {
		t.Fatalf("expected reload error")
	}
	if s.Catalog != first.Catalog {
		t.Fatalf("broken reload replaced the catalog")
	}
}

func TestURIs(t *testing.T) {
	dir := t.TempDir()
	got, err := URIToPath(PathToURI(filepath.Join(dir, "a b", "server.xml")))
	if err != nil || got != filepath.Join(dir, "a b", "server.xml") {
		t.Fatalf("round trip = %q, %v", got, err)
	}
	if _, err := URIToPath("http://example.com/server.xml"); err == nil {
		t.Fatalf("expected error")
	}
}
