package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"libertyls/internal/catalog"
	"libertyls/internal/driver"
	"libertyls/internal/workspace"
)

const cacheApp = "libertyls"

// newRegistry builds a workspace registry honouring --disk-cache.
func newRegistry(cmd *cobra.Command) (*workspace.Registry, error) {
	useCache, err := cmd.Root().PersistentFlags().GetBool("disk-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	var opts []workspace.Option
	if useCache {
		cache, err := catalog.OpenDiskCache(cacheApp)
		if err != nil {
			return nil, fmt.Errorf("open disk cache: %w", err)
		}
		opts = append(opts, workspace.WithDiskCache(cache))
	}
	return workspace.NewRegistry(nil, opts...), nil
}

// catalogOverride loads the --catalog file, or returns nil when unset.
func catalogOverride(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, err := cmd.Root().PersistentFlags().GetString("catalog")
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	return catalog.Load(path)
}

// driverOptions collects the persistent flags shared by diag and fix.
func driverOptions(cmd *cobra.Command) (driver.Options, error) {
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	registry, err := newRegistry(cmd)
	if err != nil {
		return driver.Options{}, err
	}
	cat, err := catalogOverride(cmd)
	if err != nil {
		return driver.Options{}, err
	}
	return driver.Options{Registry: registry, Catalog: cat, MaxDiagnostics: maxDiagnostics}, nil
}
