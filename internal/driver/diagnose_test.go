package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"libertyls/internal/catalog"
	"libertyls/internal/diag"
	"libertyls/internal/observ"
	"libertyls/internal/source"
	"libertyls/internal/workspace"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

const duplicateServer = `<server>
    <featureManager>
        <feature>jaxrs-2.1</feature>
        <feature>jaxrs-2.1</feature>
    </featureManager>
</server>
`

const cleanServer = `<server>
    <featureManager>
        <feature>jaxrs-2.1</feature>
    </featureManager>
</server>
`

func TestDiagnoseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.xml")
	writeFile(t, path, duplicateServer)

	fs := source.NewFileSet()
	res, err := Diagnose(context.Background(), fs, path, Options{})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if res.Source != workspace.DefaultSource {
		t.Fatalf("source = %q", res.Source)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.FeatDuplicateFeature {
		t.Fatalf("unexpected diagnostics: %+v", items)
	}
	if lc := fs.Get(res.FileID).LineCol(items[0].Primary.Start); lc.Line != 4 || lc.Col != 18 {
		t.Fatalf("position = %+v", lc)
	}
}

func TestDiagnoseMissingFile(t *testing.T) {
	_, err := Diagnose(context.Background(), source.NewFileSet(), filepath.Join(t.TempDir(), "absent.xml"), Options{})
	if err == nil {
		t.Fatal("expected load error")
	}
}

func TestDiagnoseCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.xml")
	writeFile(t, path, cleanServer)
	cat := catalog.New([]catalog.Feature{{ShortName: "other-1.0"}}, nil)

	res, err := Diagnose(context.Background(), source.NewFileSet(), path, Options{Catalog: cat})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.FeatIncorrectFeature {
		t.Fatalf("unexpected diagnostics: %+v", items)
	}
}

func TestDiagnoseDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b", "server.xml"), duplicateServer)
	writeFile(t, filepath.Join(dir, "a", "server.xml"), cleanServer)
	writeFile(t, filepath.Join(dir, ".hidden", "server.xml"), duplicateServer)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	fs, results, err := DiagnoseDir(context.Background(), dir, Options{}, 2)
	if err != nil {
		t.Fatalf("DiagnoseDir: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if filepath.Base(filepath.Dir(results[0].Path)) != "a" || results[0].Bag.Len() != 0 {
		t.Fatalf("first result = %s with %d diagnostics", results[0].Path, results[0].Bag.Len())
	}
	if results[1].Bag.Len() != 1 {
		t.Fatalf("second result has %d diagnostics", results[1].Bag.Len())
	}
	if fs.BaseDir() != dir {
		t.Fatalf("base dir = %q", fs.BaseDir())
	}
}

func TestDiagnoseFilesReportsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "server.xml")
	writeFile(t, good, cleanServer)

	_, results, err := DiagnoseFiles(context.Background(), []string{good, filepath.Join(dir, "gone.xml")}, Options{}, 0)
	if err != nil {
		t.Fatalf("DiagnoseFiles: %v", err)
	}
	if results[0].Err != nil || results[1].Err == nil {
		t.Fatalf("errors = %v, %v", results[0].Err, results[1].Err)
	}
}

func TestDiagnoseUsesManifestLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "libertyls.toml"), "[diagnostics]\nmax = 1\n")
	path := filepath.Join(dir, "server.xml")
	writeFile(t, path, `<server>
    <featureManager>
        <feature>nope-1.0</feature>
        <feature>other-1.0</feature>
    </featureManager>
</server>
`)
	res, err := Diagnose(context.Background(), source.NewFileSet(), path, Options{})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if res.Bag.Len() != 1 {
		t.Fatalf("expected manifest limit of 1, got %d", res.Bag.Len())
	}
}

func TestDiagnoseFilesRecordsTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.xml")
	writeFile(t, path, duplicateServer)
	timer := observ.NewTimer()

	if _, _, err := DiagnoseFiles(context.Background(), []string{path}, Options{Timer: timer}, 1); err != nil {
		t.Fatalf("DiagnoseFiles: %v", err)
	}
	phases := timer.Report().Phases
	if len(phases) != 2 || phases[0].Name != "load" || phases[0].Note != "1 files" {
		t.Fatalf("phases = %+v", phases)
	}
	if phases[1].Note != "1 diagnostics" {
		t.Fatalf("file phase = %+v", phases[1])
	}
}
