// Package pagination retrieves the complete set of declaration-area records
// from the paginated OpenFEMA endpoint.
//
// The first page is requested with $metadata=on, which carries the total
// matching count. The remaining pages are derived from that count and fetched
// with $metadata=off, either sequentially (the default) or through a bounded
// worker pool with ordering restored by page index. The retrieval is
// all-or-nothing: the first transport, status, or decode failure aborts the
// whole run with no partial result.
//
// Example usage:
//
//	collector, err := pagination.NewCollector(apiClient, pagination.Config{
//		BaseURL: openfema.BaseURL,
//		Query:   openfema.Query(cutoff),
//	})
//	if err != nil {
//		return err
//	}
//	areas, err := collector.Collect(ctx)
package pagination
