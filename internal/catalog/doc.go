// Package catalog holds the feature catalog: every feature known for a
// product version, the platforms those features belong to, and the mapping
// from configuration elements to the features that enable them.
//
// A Catalog is immutable once built. Workspaces replace catalogs wholesale,
// so readers never observe a partially loaded table.
package catalog
