package include

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty_server.xml"), []byte("<server/>\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "testDir.xml"), 0o755); err != nil {
		t.Fatalf("mkdir fixture: %v", err)
	}
	return dir
}

func run(t *testing.T, text string, opts Options) (*source.File, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("server.xml", []byte(text)))
	bag := diag.NewBag(0)
	Validate(xmldoc.Parse(file), opts, diag.BagReporter{Bag: bag})
	return file, bag.Items()
}

type want struct {
	code diag.Code
	text string
}

func expect(t *testing.T, file *source.File, got []diag.Diagnostic, wants ...want) {
	t.Helper()
	if len(got) != len(wants) {
		for _, d := range got {
			t.Logf("got %s %q", d.Code.ID(), file.Slice(d.Primary))
		}
		t.Fatalf("got %d diagnostics, want %d", len(got), len(wants))
	}
	for i, w := range wants {
		if got[i].Code != w.code || file.Slice(got[i].Primary) != w.text {
			t.Fatalf("diagnostic %d = %s %q, want %s %q", i, got[i].Code.ID(), file.Slice(got[i].Primary), w.code.ID(), w.text)
		}
	}
}

func applyFirstFix(t *testing.T, file *source.File, d diag.Diagnostic) string {
	t.Helper()
	if len(d.Fixes) == 0 {
		t.Fatalf("%s has no fix", d.Code.ID())
	}
	out, err := fix.ApplyEdits(file.Content, d.Fixes[0].Edits)
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	return string(out)
}

func TestValidateIncludes(t *testing.T) {
	dir := fixtureDir(t)
	text := strings.Join([]string{
		`<server description="default server">`,
		`    <include optional="true" location="./empty_server.xml"/>`,
		`    <include optional="true" location="/empty_server.xml"/>`,
		`    <include optional="true" location="MISSING FILE"/>`,
		`    <include`,
		`            optional="true" location="MULTI LINER"/>`,
		`    <include optional="false" location="MISSING FILE.xml"/>`,
		`    <include location="MISSING FILE.xml"/>`,
		`    <include location="/empty_server.xml/"/>`,
		`    <include location="/testDir.xml"/>`,
		`</server>`,
	}, "\n")
	file, got := run(t, text, Options{BaseDir: dir})
	expect(t, file, got,
		want{diag.IncNotXMLOrDir, `location="MISSING FILE"`},
		want{diag.IncNotXMLOrDir, `location="MULTI LINER"`},
		want{diag.IncNotOptional, `optional="false"`},
		want{diag.IncMissingFile, `location="MISSING FILE.xml"`},
		want{diag.IncImplicitNotOptional, `location="MISSING FILE.xml"`},
		want{diag.IncMissingFile, `location="MISSING FILE.xml"`},
		want{diag.IncIsFileNotDir, `location="/empty_server.xml/"`},
		want{diag.IncIsDirNotFile, `location="/testDir.xml"`},
	)
	if got[0].Message != msgNotXML || got[6].Message != msgIsFileNotDir {
		t.Fatalf("unexpected messages %q / %q", got[0].Message, got[6].Message)
	}

	if out := applyFirstFix(t, file, got[6]); !strings.Contains(out, `<include location="/empty_server.xml"/>`) {
		t.Fatalf("trailing slash not removed:\n%s", out)
	}
	if out := applyFirstFix(t, file, got[7]); !strings.Contains(out, `<include location="/testDir.xml/"/>`) {
		t.Fatalf("trailing slash not added:\n%s", out)
	}
	if out := applyFirstFix(t, file, got[2]); !strings.Contains(out, `<include optional="true" location="MISSING FILE.xml"/>`) {
		t.Fatalf("optional not set:\n%s", out)
	}
	if out := applyFirstFix(t, file, got[4]); !strings.Contains(out, `<include location="MISSING FILE.xml" optional="true"/>`) {
		t.Fatalf("optional not added:\n%s", out)
	}
}

func TestValidateKeepsBackslashSeparator(t *testing.T) {
	dir := fixtureDir(t)
	text := "<server>\n" +
		`    <include location="\empty_server.xml\"/>` + "\n" +
		`    <include location="\testDir.xml"/>` + "\n" +
		"</server>"
	file, got := run(t, text, Options{BaseDir: dir})
	expect(t, file, got,
		want{diag.IncIsFileNotDir, `location="\empty_server.xml\"`},
		want{diag.IncIsDirNotFile, `location="\testDir.xml"`},
	)
	if out := applyFirstFix(t, file, got[0]); !strings.Contains(out, `location="\empty_server.xml"/>`) {
		t.Fatalf("fix = %s", out)
	}
	if out := applyFirstFix(t, file, got[1]); !strings.Contains(out, `location="\testDir.xml\"/>`) {
		t.Fatalf("fix = %s", out)
	}
}

func TestValidateVariablesAndURIs(t *testing.T) {
	dir := fixtureDir(t)
	shared := t.TempDir()
	if err := os.WriteFile(filepath.Join(shared, "common.xml"), []byte("<server/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text := "<server>\n" +
		`  <variable name="inc.dir" value="${server.config.dir}"/>` + "\n" +
		`  <include location="${inc.dir}/empty_server.xml"/>` + "\n" +
		`  <include location="${shared.config.dir}/common.xml"/>` + "\n" +
		`  <include location="${undefined.var}/nothing.xml"/>` + "\n" +
		`  <include location="https://example.com/remote.xml"/>` + "\n" +
		`  <include location="file://` + filepath.ToSlash(filepath.Join(dir, "empty_server.xml")) + `"/>` + "\n" +
		`  <include location="${shared.config.dir}/gone.xml"/>` + "\n" +
		"</server>"

	file, got := run(t, text, Options{BaseDir: dir, SharedConfigDir: shared})
	expect(t, file, got,
		want{diag.IncImplicitNotOptional, `location="${shared.config.dir}/gone.xml"`},
		want{diag.IncMissingFile, `location="${shared.config.dir}/gone.xml"`},
	)
}

func TestExpand(t *testing.T) {
	vars := map[string]string{"a": "x", "b": "y"}
	if got, ok := Expand("${a}/${ b }/z.xml", vars); !ok || got != "x/y/z.xml" {
		t.Fatalf("Expand = %q, %v", got, ok)
	}
	if got, ok := Expand("${a}/${c}", vars); ok || got != "x/${c}" {
		t.Fatalf("Expand unresolved = %q, %v", got, ok)
	}
}

func TestReferencesAndVariables(t *testing.T) {
	text := `<server><variable name="v" defaultValue="d"/><variable name="v" value="ignored"/>` +
		`<include location="a.xml" optional="TRUE"/><include location="b.xml" optional="no"/><include/></server>`
	fs := source.NewFileSet()
	doc := xmldoc.Parse(fs.Get(fs.AddVirtual("server.xml", []byte(text))))

	refs := References(doc)
	if len(refs) != 3 {
		t.Fatalf("refs = %d", len(refs))
	}
	if refs[0].Optional != OptionalTrue || refs[1].Optional != OptionalFalse || refs[2].LocationAttr != nil {
		t.Fatalf("refs = %+v", refs)
	}
	if vars := Variables(doc); vars["v"] != "d" {
		t.Fatalf("vars = %v", vars)
	}
}
