package lsp

import (
	"encoding/json"

	"libertyls/internal/completion"
)

// settings holds client overrides. Unset fields fall back to the workspace
// manifest.
type settings struct {
	match    *completion.Match
	maxDiags int
	trace    bool
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if s.applySettings(params.Settings) {
		s.scheduleDiagnostics()
	}
	return nil
}

// applySettings merges raw into the current settings and reports whether
// anything changed.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var in lspSettings
	if err := json.Unmarshal(raw, &in); err != nil {
		s.logf("ignoring settings: %v", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.settings
	if in.Liberty.Completion.Match != nil {
		m, err := completion.ParseMatch(*in.Liberty.Completion.Match)
		if err != nil {
			s.logf("ignoring completion.match: %v", err)
		} else {
			s.settings.match = &m
		}
	}
	if in.Liberty.Diagnostics.Max != nil && *in.Liberty.Diagnostics.Max >= 0 {
		s.settings.maxDiags = *in.Liberty.Diagnostics.Max
	}
	if in.Liberty.LSP.Trace != nil {
		s.settings.trace = *in.Liberty.LSP.Trace
	}
	return !sameSettings(prev, s.settings)
}

func sameSettings(a, b settings) bool {
	if a.maxDiags != b.maxDiags || a.trace != b.trace {
		return false
	}
	if (a.match == nil) != (b.match == nil) {
		return false
	}
	return a.match == nil || *a.match == *b.match
}

func (s *Server) currentSettings() settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Server) currentTrace() bool {
	return s.currentSettings().trace
}
