package fix

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"libertyls/internal/diag"
	"libertyls/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	// ApplyModeOnce applies the first fix in file order.
	ApplyModeOnce ApplyMode = iota
	// ApplyModeAll applies at most one always-safe fix per diagnostic.
	ApplyModeAll
	// ApplyModeID applies the fix with ApplyOptions.TargetID.
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

// candidate is one fix of one diagnostic. Candidates sharing a group come
// from the same diagnostic and are alternatives: at most one of them is
// ever applied.
type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	group int
}

// Apply selects fixes from diagnostics according to opts, applies their
// edits to the original file contents and writes the changed files.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{}
	if fs == nil {
		return result, fmt.Errorf("fix: FileSet is nil")
	}

	candidates, skips := gatherCandidates(diagnostics)
	result.Skipped = append(result.Skipped, skips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	selected, skips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, skips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	st := newStaging(fs)
	for _, cand := range selected {
		if reason := st.stage(cand.fix.Edits); reason != "" {
			result.Skipped = append(result.Skipped, SkippedFix{ID: cand.fix.ID, Title: cand.fix.Title, Reason: reason})
			continue
		}
		result.Applied = append(result.Applied, AppliedFix{
			ID:            cand.fix.ID,
			Title:         cand.fix.Title,
			Code:          cand.diag.Code,
			Message:       cand.diag.Message,
			Applicability: cand.fix.Applicability,
			PrimaryPath:   formatFilePath(fs, cand.diag.Primary.File),
			EditCount:     len(cand.fix.Edits),
		})
	}
	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}

	changes, err := st.write()
	result.FileChanges = changes
	return result, err
}

// gatherCandidates flattens the fixes of every diagnostic into candidates.
// Fixes without edits and fixes repeating an earlier ID are skipped. Fixes
// without an ID get one derived from the diagnostic code, location and index.
func gatherCandidates(diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	var cands []candidate
	var skips []SkippedFix
	seen := make(map[string]struct{})
	for group, d := range diagnostics {
		for idx, f := range d.Fixes {
			if len(f.Edits) == 0 {
				skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "fix has no edits"})
				continue
			}
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.File, d.Primary.Start, idx)
			}
			if _, dup := seen[f.ID]; dup {
				skips = append(skips, SkippedFix{ID: f.ID, Title: f.Title, Reason: "duplicate fix id"})
				continue
			}
			seen[f.ID] = struct{}{}
			cands = append(cands, candidate{diag: d, fix: f, group: group})
		}
	}
	return cands, skips
}

// sortCandidates orders candidates by the position of their diagnostic, then
// by diagnostic, preferred fixes first within a diagnostic, and the fix's
// original order last.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.diag.Primary.File != b.diag.Primary.File {
			return a.diag.Primary.File < b.diag.Primary.File
		}
		if a.diag.Primary.Start != b.diag.Primary.Start {
			return a.diag.Primary.Start < b.diag.Primary.Start
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.fix.IsPreferred && !b.fix.IsPreferred
	})
}

// groups splits sorted candidates into runs of the same diagnostic.
func groups(candidates []candidate) [][]candidate {
	var out [][]candidate
	for i := 0; i < len(candidates); {
		j := i + 1
		for j < len(candidates) && candidates[j].group == candidates[i].group {
			j++
		}
		out = append(out, candidates[i:j])
		i = j
	}
	return out
}

// choose picks the fix to apply unattended from one diagnostic's
// alternatives. A diagnostic qualifies when its preferred fix is always
// safe, or when it offers a single always-safe fix.
func choose(group []candidate) (candidate, string) {
	safe := make([]candidate, 0, len(group))
	for _, cand := range group {
		if cand.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
			safe = append(safe, cand)
		}
	}
	switch {
	case len(safe) == 0:
		return candidate{}, fmt.Sprintf("applicability is %s", group[0].fix.Applicability)
	case safe[0].fix.IsPreferred, len(safe) == 1 && len(group) == 1:
		return safe[0], ""
	default:
		return candidate{}, fmt.Sprintf("one of %d alternatives; apply it by id", len(group))
	}
}

func skipGroup(group []candidate, reason string) []SkippedFix {
	out := make([]SkippedFix, 0, len(group))
	for _, cand := range group {
		out = append(out, SkippedFix{ID: cand.fix.ID, Title: cand.fix.Title, Reason: reason})
	}
	return out
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.fix.ID == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{ID: opts.TargetID, Reason: "fix id not found"}}
	case ApplyModeAll:
		var selected []candidate
		var skipped []SkippedFix
		for _, group := range groups(candidates) {
			cand, reason := choose(group)
			if reason != "" {
				skipped = append(skipped, skipGroup(group, reason)...)
				continue
			}
			selected = append(selected, cand)
		}
		return selected, skipped
	case ApplyModeOnce:
		all := groups(candidates)
		for _, group := range all {
			if cand, reason := choose(group); reason == "" {
				return []candidate{cand}, nil
			}
		}
		// nothing applies unattended; fall back to the first diagnostic's top fix
		return []candidate{all[0][0]}, nil
	default:
		return nil, nil
	}
}

// staging accumulates accepted edits per file against the original
// content, so every fix is checked against the text it was computed for.
type staging struct {
	fs    *source.FileSet
	edits map[source.FileID][]diag.TextEdit
	order []source.FileID
}

func newStaging(fs *source.FileSet) *staging {
	return &staging{fs: fs, edits: make(map[source.FileID][]diag.TextEdit)}
}

// stage accepts all edits of one fix or none of them, returning the reason
// when it refuses.
func (st *staging) stage(edits []diag.TextEdit) string {
	accepted := make(map[source.FileID][]diag.TextEdit)
	for _, e := range edits {
		file := st.fs.Get(e.Span.File)
		switch {
		case file == nil:
			return "target file is unknown"
		case file.Flags&source.FileVirtual != 0:
			return "target file is virtual"
		case e.Span.End < e.Span.Start || int(e.Span.End) > len(file.Content):
			return "edit span out of range"
		case e.OldText != "" && file.Slice(e.Span) != e.OldText:
			return "existing text does not match expected content"
		}
		if conflictsWith(st.edits[e.Span.File], e) || conflictsWith(accepted[e.Span.File], e) {
			return fmt.Sprintf("conflicts with previously applied edits in %s", file.FormatPath("auto", st.fs.BaseDir()))
		}
		accepted[e.Span.File] = append(accepted[e.Span.File], e)
	}
	for id, list := range accepted {
		if _, ok := st.edits[id]; !ok {
			st.order = append(st.order, id)
		}
		st.edits[id] = append(st.edits[id], list...)
	}
	return ""
}

// write applies the staged edits and writes each changed file in place,
// keeping its permissions.
func (st *staging) write() ([]FileChange, error) {
	changes := make([]FileChange, 0, len(st.order))
	for _, id := range st.order {
		file := st.fs.Get(id)
		out, err := ApplyEdits(file.Content, st.edits[id])
		if err != nil {
			return changes, fmt.Errorf("%s: %w", file.Path, err)
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(file.Path); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(file.Path, out, mode); err != nil {
			return changes, fmt.Errorf("write %s: %w", file.Path, err)
		}
		changes = append(changes, FileChange{
			Path:      file.FormatPath("relative", st.fs.BaseDir()),
			EditCount: len(st.edits[id]),
		})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes, nil
}

func formatFilePath(fs *source.FileSet, fileID source.FileID) string {
	file := fs.Get(fileID)
	if file == nil {
		return ""
	}
	return file.FormatPath("auto", fs.BaseDir())
}
