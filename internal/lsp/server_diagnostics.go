package lsp

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"libertyls/internal/diag"
)

func (s *Server) scheduleDiagnostics() {
	s.mu.Lock()
	seq := atomic.AddUint64(&s.analysisSeq, 1)
	atomic.StoreUint64(&s.latestSeq, seq)
	if s.diagCancel != nil {
		s.diagCancel()
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.shutdownRequested {
		s.mu.Unlock()
		return
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.runDiagnostics(seq)
	})
	s.mu.Unlock()
}

func (s *Server) stopDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	if s.diagCancel != nil {
		s.diagCancel()
		s.diagCancel = nil
	}
}

// runDiagnostics analyzes every open server.xml and publishes the results.
// A document edited while it was analyzed is skipped; the edit has already
// scheduled a newer run.
func (s *Server) runDiagnostics(seq uint64) {
	if !s.isLatestSeq(seq) {
		return
	}
	s.mu.Lock()
	if s.diagCancel != nil {
		s.diagCancel()
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.diagCancel = cancel
	docs := make([]openDocument, 0, len(s.docs))
	for _, d := range s.docs {
		if isServerConfig(d.path) {
			docs = append(docs, *d)
		}
	}
	trace := s.settings.trace
	s.mu.Unlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].uri < docs[j].uri })

	for _, d := range docs {
		if ctx.Err() != nil || !s.isLatestSeq(seq) {
			if trace {
				s.logf("analysis discard: seq=%d", seq)
			}
			return
		}
		a := s.analyze(ctx, d)
		list := protocolDiagnostics(a, s.diagnostics(ctx, a))
		if trace {
			s.logf("analysis done: seq=%d uri=%s version=%d snapshotID=%d diags=%d source=%s",
				seq, d.uri, d.state.version, d.state.snapshotID, len(list), a.snap.Source)
		}
		s.publishDiagnostics(d, list)
	}
}

func (s *Server) publishDiagnostics(d openDocument, list []lspDiagnostic) {
	s.mu.Lock()
	current, ok := s.docStateLocked(d.uri)
	if !ok || current != d.state {
		s.mu.Unlock()
		return
	}
	s.published[d.uri] = struct{}{}
	s.mu.Unlock()
	version := d.state.version
	if err := s.sendPublish(d.uri, &version, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := s.published
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	uris := make([]string, 0, len(prev))
	for uri := range prev {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

func protocolDiagnostics(a *analysis, diags []diag.Diagnostic) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocolDiagnostic(a, d))
	}
	return out
}

func protocolDiagnostic(a *analysis, d diag.Diagnostic) lspDiagnostic {
	out := lspDiagnostic{
		Range:    rangeForSpan(a.file, d.Primary),
		Severity: d.Severity.ProtocolSeverity(),
		Code:     d.Code.ID(),
		Source:   diagnosticSource,
		Message:  d.Message,
	}
	for _, n := range d.Notes {
		out.RelatedInformation = append(out.RelatedInformation, diagnosticRelatedInformation{
			Location: location{URI: a.uri, Range: rangeForSpan(a.file, n.Span)},
			Message:  n.Msg,
		})
	}
	return out
}
