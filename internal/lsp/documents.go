package lsp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"libertyls/internal/project"
	"libertyls/internal/workspace"
)

// docState identifies one revision of an open document.
type docState struct {
	version    int
	snapshotID int64
}

type openDocument struct {
	uri   string
	path  string
	text  string
	state docState
}

// isServerConfig reports whether path is diagnosed. Other documents, such
// as the manifest, are tracked but never published.
func isServerConfig(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// isCatalogSource reports whether saving path should reload its workspace.
func isCatalogSource(path string) bool {
	if filepath.Base(path) == project.ManifestName {
		return true
	}
	return filepath.Base(filepath.Dir(path)) == workspace.CatalogDir &&
		strings.HasPrefix(filepath.Base(path), "featurelist")
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	path, err := workspace.URIToPath(uri)
	if err != nil {
		s.logf("didOpen: %v", err)
		return nil
	}
	s.mu.Lock()
	prev := s.docs[uri]
	d := &openDocument{uri: uri, path: path, text: params.TextDocument.Text}
	d.state.version = params.TextDocument.Version
	if prev != nil {
		d.state.snapshotID = prev.state.snapshotID + 1
	}
	s.docs[uri] = d
	s.mu.Unlock()
	s.scheduleDiagnostics()
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	d, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		s.logf("didChange for unopened document %s", uri)
		return nil
	}
	d.text = applyChanges(d.text, params.ContentChanges)
	d.state.version = params.TextDocument.Version
	d.state.snapshotID++
	trace := s.settings.trace
	state := d.state
	s.mu.Unlock()
	if trace {
		s.logf("didChange: uri=%s version=%d snapshotID=%d", uri, state.version, state.snapshotID)
	}
	s.scheduleDiagnostics()
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	path, err := workspace.URIToPath(uri)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	if d, ok := s.docs[uri]; ok && params.Text != nil && *params.Text != d.text {
		d.text = *params.Text
		d.state.snapshotID++
	}
	s.mu.Unlock()

	if isCatalogSource(path) {
		s.reloadWorkspace(uri)
	}
	s.scheduleDiagnostics()
	return nil
}

// reloadWorkspace rediscovers the catalog of the workspace owning uri.
func (s *Server) reloadWorkspace(uri string) {
	ws := s.registry.For(uri)
	snap, err := ws.Reload(s.analysisContext())
	if err != nil {
		s.logf("reload %s: %v", ws.Root, err)
	}
	if s.currentTrace() {
		s.logf("reload: root=%s source=%s features=%d", ws.Root, snap.Source, snap.Catalog.Len())
	}
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.docs, uri)
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

// document returns a copy of the open document for uri.
func (s *Server) document(uri string) (openDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[uri]
	if !ok {
		return openDocument{}, false
	}
	return *d, true
}

func (s *Server) docStateLocked(uri string) (docState, bool) {
	d, ok := s.docs[uri]
	if !ok {
		return docState{}, false
	}
	return d.state, true
}

func (s *Server) analysisContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}
