package lsp

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"libertyls/internal/workspace"
)

const completionDoc = "<server>\n" +
	"    <featureManager>\n" +
	"        <feature>jax</feature>\n" +
	"        <feature>jaxrs-2.0</feature>\n" +
	"        <platform></platform>\n" +
	"    </featureManager>\n" +
	"</server>\n"

func completionLabels(list completionList) string {
	labels := make([]string, len(list.Items))
	for i, item := range list.Items {
		labels[i] = item.Label
	}
	return strings.Join(labels, ",")
}

func TestCompletionFeature(t *testing.T) {
	server, out := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, completionDoc)

	send(t, server, "7", "textDocument/completion", completionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     position{Line: 2, Character: 20},
	})
	msgs := frames(t, out)
	if len(msgs) != 1 || string(msgs[0].ID) != "7" {
		t.Fatalf("expected one response, got %+v", msgs)
	}
	var list completionList
	if err := json.Unmarshal(msgs[0].Result, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "jaxb-2.2,jaxrs-2.0,jaxrsClient-2.0,jaxrsClient-2.1,jaxws-2.2"
	if got := completionLabels(list); got != want {
		t.Fatalf("labels = %s, want %s", got, want)
	}
	edit := list.Items[0].TextEdit
	if edit == nil || edit.NewText != "jaxb-2.2" {
		t.Fatalf("unexpected edit: %+v", edit)
	}
	wantRange := lspRange{Start: position{Line: 2, Character: 17}, End: position{Line: 2, Character: 20}}
	if edit.Range != wantRange {
		t.Fatalf("edit range = %+v, want %+v", edit.Range, wantRange)
	}
}

func TestCompletionSubstringSetting(t *testing.T) {
	server, _ := newTestServer(t)
	server.applySettings(json.RawMessage(`{"liberty":{"completion":{"match":"substring"}}}`))
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, strings.Replace(completionDoc, "<feature>jax<", "<feature>rsClient<", 1))

	list := server.buildCompletion(uri, position{Line: 2, Character: 17 + len("rsClient")})
	if got := completionLabels(list); got != "jaxrsClient-2.0,jaxrsClient-2.1" {
		t.Fatalf("labels = %s", got)
	}
}

func TestCompletionPlatform(t *testing.T) {
	server, _ := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, completionDoc)

	list := server.buildCompletion(uri, position{Line: 4, Character: 18})
	if len(list.Items) == 0 {
		t.Fatal("expected platform candidates")
	}
	for _, item := range list.Items {
		if item.Kind != completionItemKindModule || !strings.HasPrefix(item.Detail, "platform, ") {
			t.Fatalf("unexpected platform item: %+v", item)
		}
	}
}

func TestCompletionOutsideFeatureManager(t *testing.T) {
	server, _ := newTestServer(t)
	uri := workspace.PathToURI(filepath.Join(t.TempDir(), "server.xml"))
	openDoc(t, server, uri, completionDoc)

	if list := server.buildCompletion(uri, position{Line: 0, Character: 3}); len(list.Items) != 0 {
		t.Fatalf("expected no items, got %s", completionLabels(list))
	}
	if list := server.buildCompletion("file:///missing/server.xml", position{}); len(list.Items) != 0 {
		t.Fatal("expected no items for unopened document")
	}
}
