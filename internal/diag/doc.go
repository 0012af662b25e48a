// Package diag defines the diagnostic model shared by the rule engines.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string ID such as
//     "duplicate_feature" (codes.go). The string ID is what editors see.
//   - Message: human oriented text.
//   - Primary: the source.Span the editor underlines.
//   - Notes: optional secondary spans, e.g. the first declaration of a duplicate.
//   - Fixes: optional Fix records describing automated corrections.
//
// # Fix suggestions
//
// A Fix carries a Title shown in the editor's quick-fix list, a Kind, an
// Applicability level and the concrete TextEdits. Fixes are data only; the
// language server turns them into code actions and internal/fix applies them
// to files on disk. TextEdit.OldText is an optional guard the fix engine checks
// before it rewrites anything.
//
// # Emitting diagnostics
//
// Rule engines report through a Reporter so emission stays decoupled from
// storage. ReportBuilder chains notes and fixes before Emit; BagReporter
// collects into a Bag, which supports sorting, deduplication and limits.
package diag
