package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"libertyls/internal/driver"
	"libertyls/internal/fix"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <server.xml|directory>...",
	Short: "Apply available fixes to server configuration files",
	Long:  "Run diagnostics, collect the fixes they offer, and apply them according to the chosen strategy.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("all", false, "apply one always-safe fix per diagnostic; diagnostics offering alternatives need --id")
	fixCmd.Flags().Bool("once", false, "apply the first available fix (default)")
	fixCmd.Flags().String("id", "", "apply the fix with a specific identifier")
	fixCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
}

func runFix(cmd *cobra.Command, args []string) error {
	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return fmt.Errorf("failed to get once flag: %w", err)
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return fmt.Errorf("failed to get id flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if targetID != "" && (applyAll || applyOnce) {
		return errors.New("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return errors.New("--all and --once are mutually exclusive")
	}
	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}

	opts, err := driverOptions(cmd)
	if err != nil {
		return err
	}
	files, err := expandTargets(args)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	// fix IDs are unique per file only
	if targetID != "" && len(files) != 1 {
		return errors.New("fix: --id can only be used with a single file")
	}
	fs, results, err := driver.DiagnoseFiles(cmd.Context(), files, opts, jobs)
	if err != nil {
		return fmt.Errorf("fix: diagnose failed: %w", err)
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
		}
	}
	res, applyErr := fix.Apply(fs, allDiagnostics(results), fix.ApplyOptions{Mode: mode, TargetID: targetID})
	return reportApplyResult(cmd.OutOrStdout(), res, applyErr)
}

func reportApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error) error {
	if res == nil {
		return applyErr
	}
	if len(res.Applied) > 0 {
		fmt.Fprintf(out, "Applied %d fix(es):\n", len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(out, "  %s [%s] %s (%d edits, %s)\n", item.Title, item.ID, location, item.EditCount, item.Applicability)
		}
	}
	if len(res.FileChanges) > 0 {
		fmt.Fprintln(out, "Updated files:")
		for _, change := range res.FileChanges {
			fmt.Fprintf(out, "  %s (%d edits)\n", change.Path, change.EditCount)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}
	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) && len(res.Applied) == 0 {
			_, err := fmt.Fprintln(out, "No applicable fixes found.")
			return err
		}
		return applyErr
	}
	return nil
}
