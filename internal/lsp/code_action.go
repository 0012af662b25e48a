package lsp

import (
	"encoding/json"
	"strings"

	"libertyls/internal/diag"
)

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	return s.sendResponse(msg.ID, s.buildCodeActions(params))
}

// buildCodeActions recomputes diagnostics for the document and turns the
// fixes of those the client asked about into workspace edits. Without
// diagnostics in the request, every diagnostic touching the range counts.
func (s *Server) buildCodeActions(params codeActionParams) []codeAction {
	out := []codeAction{}
	if !wantsQuickFix(params.Context.Only) {
		return out
	}
	d, ok := s.document(params.TextDocument.URI)
	if !ok || !isServerConfig(d.path) {
		return out
	}
	ctx := s.analysisContext()
	a := s.analyze(ctx, d)
	for _, dg := range s.diagnostics(ctx, a) {
		if len(dg.Fixes) == 0 {
			continue
		}
		pd := protocolDiagnostic(a, dg)
		if !requested(pd, params) {
			continue
		}
		for _, f := range dg.Fixes {
			out = append(out, codeActionFor(a, pd, f))
		}
	}
	return out
}

func codeActionFor(a *analysis, pd lspDiagnostic, f diag.Fix) codeAction {
	edits := make([]textEdit, 0, len(f.Edits))
	for _, e := range f.Edits {
		edits = append(edits, textEdit{
			Range:   rangeForSpan(a.file, e.Span),
			NewText: e.NewText,
		})
	}
	return codeAction{
		Title:       f.Title,
		Kind:        f.Kind.String(),
		Diagnostics: []lspDiagnostic{pd},
		IsPreferred: f.IsPreferred,
		Edit: &workspaceEdit{
			Changes: map[string][]textEdit{a.uri: edits},
		},
	}
}

func requested(pd lspDiagnostic, params codeActionParams) bool {
	if len(params.Context.Diagnostics) == 0 {
		return rangesOverlap(pd.Range, params.Range)
	}
	for _, want := range params.Context.Diagnostics {
		if want.Source != "" && want.Source != diagnosticSource {
			continue
		}
		if want.Code == pd.Code && want.Range == pd.Range {
			return true
		}
	}
	return false
}

func wantsQuickFix(only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, kind := range only {
		if kind == "quickfix" || strings.HasPrefix(kind, "quickfix.") {
			return true
		}
	}
	return false
}
