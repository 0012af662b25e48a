package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"libertyls/internal/diag"
	"libertyls/internal/fix"
	"libertyls/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("server.xml", []byte(serverXML))
	bag := singleBag(diag.NewError(diag.FeatIncorrectFeature, featureSpan(id), "bad"))

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("unexpected output: %+v", output)
	}
	got := output.Diagnostics[0]
	if got.Severity != "ERROR" || got.Code != "incorrect_feature" || got.Message != "bad" {
		t.Fatalf("unexpected diagnostic: %+v", got)
	}
	want := LocationJSON{File: "server.xml", StartByte: 47, EndByte: 56, StartLine: 3, StartCol: 18, EndLine: 3, EndCol: 27}
	if got.Location != want {
		t.Fatalf("location = %+v, want %+v", got.Location, want)
	}
}

func TestJSONWithNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("server.xml", []byte(serverXML))
	sp := featureSpan(id)
	d := diag.NewError(diag.FeatIncorrectFeature, sp, "bad").
		WithNote(source.Span{File: id, Start: 13, End: 29}, "here").
		WithFix(
			fix.DeleteSpan("Remove feature", sp, "jaxrs-2.1", fix.WithApplicability(diag.FixApplicabilityManualReview)),
			fix.ReplaceSpan("Replace with jaxrs-2.0", sp, "jaxrs-2.0", "jaxrs-2.1", fix.WithID("replace-1")),
		)

	output := BuildDiagnosticsOutput(singleBag(d), fs, JSONOpts{IncludeNotes: true, IncludeFixes: true, IncludePreviews: true})
	got := output.Diagnostics[0]
	if len(got.Notes) != 1 || got.Notes[0].Message != "here" {
		t.Fatalf("notes = %+v", got.Notes)
	}
	if len(got.Fixes) != 2 {
		t.Fatalf("fixes = %+v", got.Fixes)
	}
	first := got.Fixes[0]
	if first.ID != "replace-1" || first.Applicability != "always-safe" || first.Kind != "quickfix" {
		t.Fatalf("first fix = %+v", first)
	}
	edit := first.Edits[0]
	if edit.NewText != "jaxrs-2.0" || edit.OldText != "jaxrs-2.1" {
		t.Fatalf("edit = %+v", edit)
	}
	if len(edit.AfterLines) != 1 || edit.AfterLines[0] != "        <feature>jaxrs-2.0</feature>" {
		t.Fatalf("after lines = %q", edit.AfterLines)
	}
	if got.Fixes[1].Applicability != "manual-review" {
		t.Fatalf("second fix = %+v", got.Fixes[1])
	}
}

func TestJSONWithoutNotesOrPositions(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("server.xml", []byte(serverXML))
	d := diag.NewError(diag.FeatIncorrectFeature, featureSpan(id), "bad").
		WithNote(source.Span{File: id, Start: 13, End: 29}, "here")

	got := BuildDiagnosticsOutput(singleBag(d), fs, JSONOpts{}).Diagnostics[0]
	if got.Notes != nil || got.Fixes != nil {
		t.Fatalf("unexpected extras: %+v", got)
	}
	if got.Location.StartLine != 0 || got.Location.StartByte != 47 {
		t.Fatalf("location = %+v", got.Location)
	}
}

func TestJSONMaxLimit(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("server.xml", []byte(serverXML))
	bag := diag.NewBag(10)
	for i := range uint32(5) {
		bag.Add(diag.NewError(diag.FeatIncorrectFeature, source.Span{File: id, Start: i, End: i + 1}, "bad"))
	}
	output := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 3})
	if output.Count != 3 || len(output.Diagnostics) != 3 {
		t.Fatalf("count = %d", output.Count)
	}
}
