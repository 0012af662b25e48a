package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"libertyls/internal/catalog"
	"libertyls/internal/catalog/graph"
	"libertyls/internal/workspace"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the feature catalog a workspace resolves to",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feature or platform names",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogVersionsCmd = &cobra.Command{
	Use:   "versions <base>",
	Short: "List the versions of a feature in semantic version order",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogVersions,
}

var catalogClosureCmd = &cobra.Command{
	Use:   "closure <feature>...",
	Short: "List every feature enabled by the given features",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCatalogClosure,
}

func init() {
	catalogCmd.PersistentFlags().String("dir", "", "workspace directory whose catalog is used (default: current directory)")
	catalogListCmd.Flags().Bool("platforms", false, "list platforms instead of features")
	catalogCmd.AddCommand(catalogListCmd, catalogVersionsCmd, catalogClosureCmd)
}

// resolveCatalog returns the --catalog override or the catalog discovered
// for --dir, along with where it came from.
func resolveCatalog(cmd *cobra.Command) (*catalog.Catalog, *graph.Graph, string, error) {
	cat, err := catalogOverride(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	if cat != nil {
		return cat, graph.Build(cat), "flag", nil
	}
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to get dir flag: %w", err)
	}
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, nil, "", err
		}
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, nil, "", err
	}
	registry, err := newRegistry(cmd)
	if err != nil {
		return nil, nil, "", err
	}
	if err := registry.SetFolders([]string{workspace.PathToURI(dir)}); err != nil {
		return nil, nil, "", err
	}
	snap := registry.For(workspace.PathToURI(filepath.Join(dir, "server.xml"))).Snapshot(cmd.Context())
	if snap.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", snap.Err)
	}
	return snap.Catalog, snap.Graph(), snap.Source, nil
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	platforms, err := cmd.Flags().GetBool("platforms")
	if err != nil {
		return fmt.Errorf("failed to get platforms flag: %w", err)
	}
	cat, _, src, err := resolveCatalog(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "catalog: %s (%d features)\n", src, cat.Len())
	if platforms {
		for _, name := range cat.AllPlatformNames() {
			fmt.Fprintf(out, "%s\t%d features\n", name, len(cat.Members(name)))
		}
		return nil
	}
	for _, f := range cat.Features() {
		if f.Description != "" {
			fmt.Fprintf(out, "%s\t%s\n", f.ShortName, f.Description)
		} else {
			fmt.Fprintln(out, f.ShortName)
		}
	}
	return nil
}

func runCatalogVersions(cmd *cobra.Command, args []string) error {
	cat, _, _, err := resolveCatalog(cmd)
	if err != nil {
		return err
	}
	base, _ := catalog.SplitName(args[0])
	versions := cat.Versions(base)
	if len(versions) == 0 {
		return fmt.Errorf("no feature named %q in the catalog", base)
	}
	for _, f := range versions {
		fmt.Fprintln(cmd.OutOrStdout(), f.ShortName)
	}
	return nil
}

func runCatalogClosure(cmd *cobra.Command, args []string) error {
	cat, g, _, err := resolveCatalog(cmd)
	if err != nil {
		return err
	}
	var unknown []string
	for _, name := range args {
		if _, ok := cat.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("not in the catalog: %s", strings.Join(unknown, ", "))
	}
	for _, name := range g.Closure(args) {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
