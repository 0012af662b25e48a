package lsp

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"libertyls/internal/workspace"
)

func TestCodeActionRemovesDuplicate(t *testing.T) {
	server, out := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, duplicateDoc)
	flushDiagnostics(server)
	diags := published(t, frames(t, out), uri).Diagnostics
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %+v", diags)
	}

	send(t, server, "3", "textDocument/codeAction", codeActionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Range:        diags[0].Range,
		Context:      codeActionContext{Diagnostics: diags},
	})
	msgs := frames(t, out)
	if len(msgs) != 1 {
		t.Fatalf("expected one response, got %d", len(msgs))
	}
	var actions []codeAction
	if err := json.Unmarshal(msgs[0].Result, &actions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %+v", actions)
	}
	action := actions[0]
	if action.Title != "Remove duplicate feature" || action.Kind != "quickfix" || !action.IsPreferred {
		t.Fatalf("unexpected action: %+v", action)
	}
	edits := action.Edit.Changes[uri]
	want := lspRange{Start: position{Line: 2, Character: 36}, End: position{Line: 3, Character: 36}}
	if len(edits) != 1 || edits[0].Range != want || edits[0].NewText != "" {
		t.Fatalf("unexpected edits: %+v", edits)
	}
}

func TestCodeActionMatchesRequestedDiagnostic(t *testing.T) {
	server, _ := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, duplicateDoc)
	at := lspRange{Start: position{Line: 3, Character: 17}, End: position{Line: 3, Character: 26}}

	other := lspDiagnostic{Range: at, Code: "incorrect_feature", Source: diagnosticSource}
	params := codeActionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Range:        at,
		Context:      codeActionContext{Diagnostics: []lspDiagnostic{other}},
	}
	if actions := server.buildCodeActions(params); len(actions) != 0 {
		t.Fatalf("expected no actions for unrelated diagnostic, got %+v", actions)
	}

	params.Context.Diagnostics = nil
	if actions := server.buildCodeActions(params); len(actions) != 1 {
		t.Fatalf("expected range match to find the duplicate, got %+v", actions)
	}

	params.Context.Only = []string{"refactor"}
	if actions := server.buildCodeActions(params); len(actions) != 0 {
		t.Fatalf("expected no actions for refactor-only request, got %+v", actions)
	}

	params.Context.Only = nil
	params.Range = lspRange{Start: position{Line: 0}, End: position{Line: 0, Character: 3}}
	if actions := server.buildCodeActions(params); len(actions) != 0 {
		t.Fatalf("expected no actions away from the diagnostic, got %+v", actions)
	}
}

func TestCodeActionMissingFeatureInsertsIntoManager(t *testing.T) {
	server, _ := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	text := "<server>\n" +
		"    <featureManager>\n" +
		"        <feature>jaxrs-2.0</feature>\n" +
		"    </featureManager>\n" +
		"    <springBootApplication location=\"\"/>\n" +
		"</server>\n"
	openDoc(t, server, uri, text)
	actions := server.buildCodeActions(codeActionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Range:        lspRange{Start: position{Line: 4, Character: 5}, End: position{Line: 4, Character: 5}},
	})
	if len(actions) != 3 {
		t.Fatalf("expected one action per springBoot version, got %+v", actions)
	}
	if actions[0].Title != "Add feature springBoot-1.5" {
		t.Fatalf("first action = %q", actions[0].Title)
	}
	for _, action := range actions {
		edits := action.Edit.Changes[uri]
		if len(edits) != 1 {
			t.Fatalf("unexpected edits: %+v", edits)
		}
		insertAt := position{Line: 2, Character: 36}
		if edits[0].Range.Start != insertAt || edits[0].Range.End != insertAt {
			t.Fatalf("insert at %+v, want %+v", edits[0].Range, insertAt)
		}
		if action.Diagnostics[0].Code != "missing_configured_feature" {
			t.Fatalf("action attached to %s", action.Diagnostics[0].Code)
		}
	}
}
