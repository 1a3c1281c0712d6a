// Package packstore implements the content-addressed packages store:
// path layout, existence checks, package retrieval, and lockfile
// validation against resources actually materialized on disk. Grounded
// on the layout rules in spec.md §3 ("Store layout") and §4.E.
package packstore
