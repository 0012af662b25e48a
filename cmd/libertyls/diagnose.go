package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"libertyls/internal/diag"
	"libertyls/internal/diagfmt"
	"libertyls/internal/driver"
	"libertyls/internal/observ"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] <server.xml|directory>...",
	Short: "Check featureManager declarations in server configuration files",
	Long:  `Run every featureManager and include check over the given files, or over every *.xml file below the given directories`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiagnose,
}

// errDiagnosticsFailed makes the command exit non-zero once the report has
// been printed.
var errDiagnosticsFailed = errors.New("diagnostics reported errors")

func init() {
	diagCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	diagCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	diagCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	diagCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	diagCmd.Flags().Bool("preview", false, "show the lines each suggested fix would change")
	diagCmd.Flags().String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	diagCmd.Flags().Bool("warnings-as-errors", false, "exit non-zero on warnings too")
	diagCmd.Flags().Int("context", 0, "source lines of context around each diagnostic")
}

// runDiagnose diagnoses every argument, prints the combined report and
// fails when any file has errors.
func runDiagnose(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	preview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	pathModeStr, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	contextLines, err := cmd.Flags().GetInt("context")
	if err != nil {
		return fmt.Errorf("failed to get context flag: %w", err)
	}
	pathMode, ok := diagfmt.ParsePathMode(pathModeStr)
	if !ok {
		return fmt.Errorf("unknown path mode %q", pathModeStr)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unknown format %q (must be pretty, short or json)", format)
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	if showTimings {
		opts.Timer = observ.NewTimer()
	}
	files, err := expandTargets(args)
	if err != nil {
		return err
	}
	fs, results, err := driver.DiagnoseFiles(cmd.Context(), files, opts, jobs)
	if err != nil {
		return fmt.Errorf("diagnose failed: %w", err)
	}
	if len(args) == 1 {
		if info, statErr := os.Stat(args[0]); statErr == nil && info.IsDir() {
			fs.SetBaseDir(args[0])
		}
	}

	out := cmd.OutOrStdout()
	bag := mergeResults(cmd.ErrOrStderr(), results)
	formatPhase := opts.Timer.Begin("format")
	switch format {
	case "json":
		err = diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
			IncludeFixes:     suggest,
			IncludePreviews:  preview,
		})
	case "short":
		err = diagfmt.Short(out, bag, fs, diagfmt.ShortOpts{IncludeNotes: withNotes})
	default:
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{
			Color:       color,
			Context:     int8(min(max(contextLines, 0), 5)),
			PathMode:    pathMode,
			ShowNotes:   withNotes,
			ShowFixes:   suggest,
			ShowPreview: preview,
		})
	}
	opts.Timer.End(formatPhase, format)
	if err != nil {
		return err
	}
	if showTimings {
		fmt.Fprint(cmd.ErrOrStderr(), opts.Timer.Summary())
	}

	if failed(results, warningsAsErrors) {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return errDiagnosticsFailed
	}
	return nil
}

// expandTargets replaces directories with the config files below them.
func expandTargets(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := driver.ListConfigFiles(arg)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// mergeResults combines per-file bags in file order. Unreadable files are
// reported on errOut.
func mergeResults(errOut io.Writer, results []driver.Result) *diag.Bag {
	bag := diag.NewBag(0)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", r.Path, r.Err)
			continue
		}
		bag.Merge(r.Bag)
	}
	return bag
}

func failed(results []driver.Result, warningsAsErrors bool) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
		if r.Bag.HasErrors() || (warningsAsErrors && r.Bag.HasWarnings()) {
			return true
		}
	}
	return false
}

// allDiagnostics flattens the readable results for the fix engine.
func allDiagnostics(results []driver.Result) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Bag.Items()...)
		}
	}
	return out
}
