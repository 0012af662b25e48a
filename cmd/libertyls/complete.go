package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"libertyls/internal/completion"
	"libertyls/internal/source"
	"libertyls/internal/workspace"
	"libertyls/internal/xmldoc"
)

var completeCmd = &cobra.Command{
	Use:   "complete [flags] <server.xml> <line:col>",
	Short: "Print completion candidates at a position",
	Long:  `Print the feature or platform names that would be offered at a 1-based line and byte column inside a featureManager`,
	Args:  cobra.ExactArgs(2),
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().String("match", "", "candidate matching (prefix|substring); empty defers to libertyls.toml")
	completeCmd.Flags().String("format", "text", "output format (text|json)")
}

type completionJSON struct {
	Kind       string   `json:"kind"`
	Prefix     string   `json:"prefix"`
	Candidates []string `json:"candidates"`
}

func runComplete(cmd *cobra.Command, args []string) error {
	matchStr, err := cmd.Flags().GetString("match")
	if err != nil {
		return fmt.Errorf("failed to get match flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	lc, err := parseLineCol(args[1])
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}
	file := fs.Get(id)
	off, ok := file.Offset(lc)
	if !ok {
		return fmt.Errorf("%s: line %d is past the end of the file", args[0], lc.Line)
	}

	registry, err := newRegistry(cmd)
	if err != nil {
		return err
	}
	snap := registry.For(workspace.PathToURI(path)).Snapshot(cmd.Context())
	cat, err := catalogOverride(cmd)
	if err != nil {
		return err
	}
	if cat == nil {
		cat = snap.Catalog
	}
	if matchStr == "" {
		matchStr = snap.Config.Completion.Match
	}
	match, err := completion.ParseMatch(matchStr)
	if err != nil {
		return err
	}

	ctx := completion.ContextAt(xmldoc.Parse(file), off)
	candidates := completion.New(cat, completion.WithMatch(match)).Complete(ctx)

	out := cmd.OutOrStdout()
	if strings.EqualFold(format, "json") {
		payload := completionJSON{Kind: ctx.Kind.String(), Prefix: ctx.Prefix, Candidates: make([]string, 0, len(candidates))}
		for _, c := range candidates {
			payload.Candidates = append(payload.Candidates, c.Label)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	for _, c := range candidates {
		if c.Detail != "" {
			fmt.Fprintf(out, "%s\t%s\n", c.Label, c.Detail)
		} else {
			fmt.Fprintln(out, c.Label)
		}
	}
	return nil
}

// parseLineCol parses "12:7" into a 1-based position.
func parseLineCol(s string) (source.LineCol, error) {
	lineStr, colStr, ok := strings.Cut(s, ":")
	if !ok {
		return source.LineCol{}, fmt.Errorf("position %q must be line:col", s)
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil || line == 0 {
		return source.LineCol{}, fmt.Errorf("invalid line in %q", s)
	}
	col, err := strconv.ParseUint(colStr, 10, 32)
	if err != nil || col == 0 {
		return source.LineCol{}, fmt.Errorf("invalid column in %q", s)
	}
	return source.LineCol{Line: uint32(line), Col: uint32(col)}, nil
}
