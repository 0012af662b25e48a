package lsp

import (
	"context"
	"path/filepath"

	"libertyls/internal/completion"
	"libertyls/internal/diag"
	"libertyls/internal/diagnose"
	"libertyls/internal/include"
	"libertyls/internal/source"
	"libertyls/internal/workspace"
	"libertyls/internal/xmldoc"
)

// analysis is one parsed revision of an open document bound to its
// workspace snapshot.
type analysis struct {
	uri  string
	file *source.File
	doc  *xmldoc.Document
	ws   *workspace.Workspace
	snap *workspace.Snapshot
}

func (s *Server) analyze(ctx context.Context, d openDocument) *analysis {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual(d.path, []byte(d.text)))
	ws := s.registry.For(d.uri)
	return &analysis{
		uri:  d.uri,
		file: file,
		doc:  xmldoc.Parse(file),
		ws:   ws,
		snap: ws.Snapshot(ctx),
	}
}

// diagnostics runs every rule over the document.
func (s *Server) diagnostics(ctx context.Context, a *analysis) []diag.Diagnostic {
	return diagnose.Run(ctx, a.doc, diagnose.Options{
		Catalog: a.snap.Catalog,
		Graph:   a.snap.Graph(),
		Include: include.Options{
			BaseDir:         filepath.Dir(a.file.Path),
			SharedConfigDir: a.ws.SharedConfigDir(),
			FS:              s.fsys,
		},
		Max: s.maxDiagnosticsFor(a.snap),
	})
}

// maxDiagnosticsFor picks the client setting, then the manifest, then the
// server default.
func (s *Server) maxDiagnosticsFor(snap *workspace.Snapshot) int {
	if n := s.currentSettings().maxDiags; n > 0 {
		return n
	}
	if n := snap.Config.Diagnostics.Max; n > 0 {
		return n
	}
	return s.maxDiagnostics
}

// completionEngine builds an engine with the client match mode, falling
// back to the manifest.
func (s *Server) completionEngine(snap *workspace.Snapshot) *completion.Engine {
	match := completion.MatchPrefix
	if m := s.currentSettings().match; m != nil {
		match = *m
	} else if m, err := completion.ParseMatch(snap.Config.Completion.Match); err == nil {
		match = m
	}
	return completion.New(snap.Catalog, completion.WithMatch(match))
}
