package diagnose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"libertyls/internal/catalog"
	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/include"
	"libertyls/internal/source"
	"libertyls/internal/xmldoc"
)

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return cat
}

func parse(t *testing.T, lines ...string) *xmldoc.Document {
	t.Helper()
	fs := source.NewFileSet()
	return xmldoc.Parse(fs.Get(fs.AddVirtual("server.xml", []byte(strings.Join(lines, "\n")))))
}

func run(t *testing.T, doc *xmldoc.Document, cat *catalog.Catalog) []diag.Diagnostic {
	t.Helper()
	return Run(context.Background(), doc, Options{Catalog: cat, Include: include.Options{BaseDir: t.TempDir()}})
}

// position returns the 0-based line and column of the diagnostic start.
func position(doc *xmldoc.Document, d diag.Diagnostic) (uint32, uint32) {
	lc := doc.File.LineCol(d.Primary.Start)
	return lc.Line - 1, lc.Col - 1
}

func applyFix(t *testing.T, doc *xmldoc.Document, f diag.Fix) string {
	t.Helper()
	out, err := fix.ApplyEdits(doc.File.Content, f.Edits)
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	return string(out)
}

func TestDuplicateFeature(t *testing.T) {
	doc := parse(t,
		`<server description="Sample Liberty server">`,
		`       <featureManager>`,
		`               <feature>jaxrs-2.1</feature>`,
		`               <feature>jaxrs-2.1</feature>`,
		`               <feature>jsonp-1.1</feature>`,
		`               <!-- <feature>comment</feature> -->`,
		`               <feature>jsonp-1.1</feature>`,
		`       </featureManager>`,
		`</server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %+v", len(got), got)
	}
	wants := []struct {
		line, col uint32
		msg       string
	}{
		{3, 24, "ERROR: jaxrs-2.1 is already included."},
		{6, 24, "ERROR: jsonp-1.1 is already included."},
	}
	for i, w := range wants {
		line, col := position(doc, got[i])
		if got[i].Code != diag.FeatDuplicateFeature || got[i].Message != w.msg || line != w.line || col != w.col {
			t.Fatalf("diagnostic %d = %s %q at %d:%d", i, got[i].Code.ID(), got[i].Message, line, col)
		}
	}

	out := applyFix(t, doc, got[0].Fixes[0])
	if strings.Count(out, "jaxrs-2.1") != 1 || !strings.Contains(out, "<featureManager>\n               <feature>jaxrs-2.1</feature>\n               <feature>jsonp-1.1</feature>") {
		t.Fatalf("duplicate not removed cleanly:\n%s", out)
	}
}

func TestVersionConflict(t *testing.T) {
	doc := parse(t,
		`<server description="Sample Liberty server">`,
		`       <featureManager>`,
		`               <feature>jaxrs-2.0</feature>`,
		`               <feature>jaxrs-2.1</feature>`,
		`               <feature>jsonp-1.1</feature>`,
		`       </featureManager>`,
		`</server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	if len(got) != 1 || got[0].Code != diag.FeatVersionConflict {
		t.Fatalf("got %+v", got)
	}
	want := "ERROR: More than one version of feature jaxrs is included. Only one version of a feature may be specified."
	if got[0].Message != want {
		t.Fatalf("message = %q", got[0].Message)
	}
	if line, col := position(doc, got[0]); line != 3 || col != 24 {
		t.Fatalf("position = %d:%d", line, col)
	}
}

func TestInvalidFeature(t *testing.T) {
	doc := parse(t,
		`<server description="Sample Liberty server">`,
		`       <featureManager>`,
		`               <feature>jaxrs-2.1</feature>`,
		`               <feature>jaX</feature>`,
		`               <feature>jsonp-1.1</feature>`,
		`               <!-- <feature>comment</feature> -->`,
		`               <feature>invalid</feature>`,
		`       </featureManager>`,
		`</server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(got))
	}
	if got[0].Code != diag.FeatIncorrectFeature || got[0].Message != `ERROR: The feature "jaX" does not exist.` {
		t.Fatalf("first = %s %q", got[0].Code.ID(), got[0].Message)
	}
	if got[1].Code != diag.FeatIncorrectFeature || got[1].Message != `ERROR: The feature "invalid" does not exist.` {
		t.Fatalf("second = %s %q", got[1].Code.ID(), got[1].Message)
	}

	var replacements []string
	for _, f := range got[0].Fixes {
		if len(f.Edits) != 1 || doc.File.Slice(f.Edits[0].Span) != "jaX" {
			t.Fatalf("fix %q does not replace the name", f.Title)
		}
		replacements = append(replacements, f.Edits[0].NewText)
	}
	if strings.Join(replacements, ",") != "jaxb-2.2,jaxrsClient-2.0,jaxrsClient-2.1,jaxws-2.2" {
		t.Fatalf("replacements = %v", replacements)
	}
	if len(got[1].Fixes) != 0 {
		t.Fatalf("invalid should have no replacements, got %d", len(got[1].Fixes))
	}
}

func TestTrimmedFeature(t *testing.T) {
	doc := parse(t,
		`<server description="Sample Liberty server">`,
		`       <featureManager>`,
		`               <feature>jaxrs-2.1 </feature>`,
		`       </featureManager>`,
		`</server>`,
	)
	if got := run(t, doc, defaultCatalog(t)); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestInvalidNameStillCheckedForDuplication(t *testing.T) {
	doc := parse(t,
		`<server><featureManager>`,
		`  <feature>bogus</feature>`,
		`  <feature>Bogus</feature>`,
		`</featureManager></server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	codes := make([]string, len(got))
	for i, d := range got {
		codes[i] = d.Code.ID()
	}
	if strings.Join(codes, ",") != "incorrect_feature,incorrect_feature,duplicate_feature" {
		t.Fatalf("codes = %v", codes)
	}
}

func TestEmptyCatalogSuppressesCatalogRules(t *testing.T) {
	doc := parse(t,
		`<server>`,
		`  <featureManager>`,
		`    <feature>whatever-1.0</feature>`,
		`    <feature>whatever-1.0</feature>`,
		`  </featureManager>`,
		`  <ssl id=""/>`,
		`</server>`,
	)
	got := run(t, doc, catalog.Empty())
	if len(got) != 1 || got[0].Code != diag.FeatDuplicateFeature {
		t.Fatalf("got %+v", got)
	}
}

func TestMissingConfiguredFeature(t *testing.T) {
	configElement := `    <springBootApplication location=""/>`
	doc := parse(t,
		`<server description="Sample Liberty server">`,
		`    <featureManager>`,
		`        <feature>jaxrs-2.0</feature>`,
		`    </featureManager>`,
		configElement,
		`</server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	if len(got) != 1 || got[0].Code != diag.FeatMissingConfiguredFeature || got[0].Message != msgMissingFeature {
		t.Fatalf("got %+v", got)
	}
	if line, col := position(doc, got[0]); line != 4 || col != 4 {
		t.Fatalf("position = %d:%d", line, col)
	}
	if got[0].Primary.Len() != uint32(len(strings.TrimSpace(configElement))) {
		t.Fatalf("range length = %d", got[0].Primary.Len())
	}

	if len(got[0].Fixes) != 3 {
		t.Fatalf("fixes = %d, want 3", len(got[0].Fixes))
	}
	for i, name := range []string{"springBoot-1.5", "springBoot-2.0", "springBoot-3.0"} {
		edit := got[0].Fixes[i].Edits[0]
		lc := doc.File.LineCol(edit.Span.Start)
		if lc.Line-1 != 2 || lc.Col-1 != 36 || !edit.Span.Empty() {
			t.Fatalf("fix %d inserts at %d:%d", i, lc.Line-1, lc.Col-1)
		}
		if want := "\n        <feature>" + name + "</feature>"; edit.NewText != want {
			t.Fatalf("fix %d text = %q, want %q", i, edit.NewText, want)
		}
	}
}

func TestConfigElementDirectAndTransitive(t *testing.T) {
	cat := defaultCatalog(t)
	ok := parse(t,
		`<server description="Sample Liberty server">`,
		`   <featureManager>`,
		`           <feature>Ssl-1.0</feature>`,
		`   </featureManager>`,
		`   <ssl id=""/>`,
		`</server>`,
	)
	if got := run(t, ok, cat); len(got) != 0 {
		t.Fatalf("Ssl-1.0 should satisfy ssl: %+v", got)
	}

	missing := parse(t,
		`<server description="Sample Liberty server">`,
		`   <featureManager>`,
		`           <feature>jaxrs-2.0</feature>`,
		`   </featureManager>`,
		`   <ssl id=""/>`,
		`</server>`,
	)
	got := run(t, missing, cat)
	if len(got) != 1 || got[0].Code != diag.FeatMissingConfiguredFeature {
		t.Fatalf("got %+v", got)
	}
	if line, col := position(missing, got[0]); line != 4 || col != 3 || missing.File.Slice(got[0].Primary) != `<ssl id=""/>` {
		t.Fatalf("range = %d:%d %q", line, col, missing.File.Slice(got[0].Primary))
	}

	transitive := parse(t,
		`<server description="Sample Liberty server">`,
		`   <featureManager>`,
		`       <feature>microProfile-5.0</feature>`,
		`   </featureManager>`,
		`   <ssl id=""/>`,
		`</server>`,
	)
	if got := run(t, transitive, cat); len(got) != 0 {
		t.Fatalf("microProfile-5.0 should satisfy ssl: %+v", got)
	}

	platform := parse(t,
		`<server>`,
		`   <featureManager>`,
		`       <platform>microProfile-5.0</platform>`,
		`   </featureManager>`,
		`   <mpJwt/>`,
		`</server>`,
	)
	if got := run(t, platform, cat); len(got) != 0 {
		t.Fatalf("platform members should satisfy mpJwt: %+v", got)
	}
}

func TestConfigElementWithoutFeatureManager(t *testing.T) {
	doc := parse(t, `<server><ssl id=""/></server>`)
	if got := run(t, doc, defaultCatalog(t)); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestPlatformRules(t *testing.T) {
	doc := parse(t,
		`<server>`,
		`  <featureManager>`,
		`    <platform>javaee-7.0</platform>`,
		`    <platform>javaee-8.0</platform>`,
		`    <platform>jakartaee-10.0</platform>`,
		`    <platform>javaee-7.0</platform>`,
		`    <platform>microProfile-6.0</platform>`,
		`    <platform>javaee</platform>`,
		`  </featureManager>`,
		`</server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	codes := make([]string, len(got))
	for i, d := range got {
		codes[i] = d.Code.ID()
	}
	want := "platform_version_conflict,platform_family_conflict,duplicate_platform,incorrect_platform"
	if strings.Join(codes, ",") != want {
		t.Fatalf("codes = %v", codes)
	}
	if got[1].Message != "ERROR: The platform jakartaee-10.0 cannot be combined with the platform javaee-7.0." {
		t.Fatalf("family message = %q", got[1].Message)
	}
	if got[3].Message != `ERROR: The platform "javaee" does not exist.` {
		t.Fatalf("incorrect message = %q", got[3].Message)
	}
	// every declared javaee and jakartaee version excludes the whole family
	if len(got[3].Fixes) != 0 {
		t.Fatalf("replacements = %d", len(got[3].Fixes))
	}
}

func TestInvalidPlatformReplacements(t *testing.T) {
	doc := parse(t,
		`<server><featureManager>`,
		`  <platform>microProfile-6.0</platform>`,
		`  <platform>JAVAEE</platform>`,
		`</featureManager></server>`,
	)
	got := run(t, doc, defaultCatalog(t))
	if len(got) != 1 || got[0].Code != diag.FeatIncorrectPlatform {
		t.Fatalf("got %+v", got)
	}
	var names []string
	for _, f := range got[0].Fixes {
		names = append(names, f.Edits[0].NewText)
	}
	if strings.Join(names, ",") != "javaee-6.0,javaee-7.0,javaee-8.0" {
		t.Fatalf("replacements = %v", names)
	}
}

func TestIncludesMergedInOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "present.xml"), []byte("<server/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := parse(t,
		`<server>`,
		`  <include location="missing.xml"/>`,
		`  <featureManager>`,
		`    <feature>jaxrs-2.1</feature>`,
		`    <feature>jaxrs-2.1</feature>`,
		`  </featureManager>`,
		`  <include location="present.xml"/>`,
		`</server>`,
	)
	got := Run(context.Background(), doc, Options{Catalog: defaultCatalog(t), Include: include.Options{BaseDir: dir}})
	codes := make([]string, len(got))
	for i, d := range got {
		codes[i] = d.Code.ID()
	}
	if strings.Join(codes, ",") != "implicit_not_optional,missing_file,duplicate_feature" {
		t.Fatalf("codes = %v", codes)
	}
}

type panickyReporter struct {
	bag   *diag.Bag
	fired bool
}

func (p *panickyReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note, fixes []diag.Fix) {
	if !p.fired {
		p.fired = true
		panic("reporter failure")
	}
	diag.BagReporter{Bag: p.bag}.Report(code, sev, primary, msg, notes, fixes)
}

func TestPanicInOneElementDoesNotStopOthers(t *testing.T) {
	doc := parse(t,
		`<server><featureManager>`,
		`  <feature>nope</feature>`,
		`  <feature>alsoNope</feature>`,
		`</featureManager></server>`,
	)
	r := &panickyReporter{bag: diag.NewBag(0)}
	Report(context.Background(), doc, Options{Catalog: defaultCatalog(t)}, r)
	items := r.bag.Items()
	if len(items) != 1 || items[0].Message != `ERROR: The feature "alsoNope" does not exist.` {
		t.Fatalf("items = %+v", items)
	}
}

func TestMaxLimitsDiagnostics(t *testing.T) {
	doc := parse(t,
		`<server><featureManager>`,
		`  <feature>a</feature>`,
		`  <feature>b</feature>`,
		`  <feature>c</feature>`,
		`</featureManager></server>`,
	)
	got := Run(context.Background(), doc, Options{Catalog: defaultCatalog(t), Max: 2})
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
}

func TestApplyAllLeavesMissingFeatureChoiceToUser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.xml")
	content := strings.Join([]string{
		`<server>`,
		`    <featureManager>`,
		`        <feature>jaxrs-2.0</feature>`,
		`    </featureManager>`,
		`    <springBootApplication location=""/>`,
		`</server>`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got := Run(context.Background(), xmldoc.Parse(fs.Get(id)), Options{Catalog: defaultCatalog(t), Include: include.Options{BaseDir: dir}})
	if len(got) != 1 || len(got[0].Fixes) != 3 {
		t.Fatalf("got %+v", got)
	}

	res, err := fix.Apply(fs, got, fix.ApplyOptions{Mode: fix.ApplyModeAll})
	if !errors.Is(err, fix.ErrNoFixes) || len(res.Applied) != 0 {
		t.Fatalf("Apply = %+v, %v", res, err)
	}
	if out, _ := os.ReadFile(path); string(out) != content {
		t.Fatalf("file changed:\n%s", out)
	}
}

func TestTruncatedEndTagKeepsMarkupOutOfName(t *testing.T) {
	doc := parse(t,
		`<server>`,
		`    <featureManager>`,
		`        <feature>jaxrs-2.0</feat`,
	)
	if got := run(t, doc, defaultCatalog(t)); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}
