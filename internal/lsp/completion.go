package lsp

import (
	"encoding/json"
	"fmt"

	"libertyls/internal/completion"
)

const (
	completionItemKindModule = 9
	completionItemKindValue  = 12
)

func (s *Server) handleCompletion(msg *rpcMessage) error {
	var params completionParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	result := s.buildCompletion(params.TextDocument.URI, params.Position)
	return s.sendResponse(msg.ID, result)
}

func (s *Server) buildCompletion(uri string, pos position) completionList {
	d, ok := s.document(uri)
	if !ok || !isServerConfig(d.path) {
		return completionList{Items: []completionItem{}}
	}
	a := s.analyze(s.analysisContext(), d)
	ctx := completion.ContextAt(a.doc, offsetForPositionInFile(a.file, pos))
	if ctx.Kind == completion.KindNone {
		return completionList{Items: []completionItem{}}
	}
	candidates := s.completionEngine(a.snap).Complete(ctx)
	kind := completionItemKindValue
	if ctx.Kind == completion.KindPlatform {
		kind = completionItemKindModule
	}
	items := make([]completionItem, 0, len(candidates))
	for i, c := range candidates {
		items = append(items, completionItem{
			Label:  c.Label,
			Kind:   kind,
			Detail: c.Detail,
			// candidates arrive sorted; keep that order in the client
			SortText:   fmt.Sprintf("%05d", i),
			FilterText: c.Label,
			TextEdit: &textEdit{
				Range:   rangeForSpan(a.file, c.Span),
				NewText: c.InsertText,
			},
		})
	}
	return completionList{Items: items}
}
