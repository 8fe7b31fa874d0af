// Package pagination provides the incremental list loader for paged REST
// collections.
//
// A Loader owns one growing list of items. Each fetch asks a
// credentials.Provider for the current endpoint and keys, calls a Source for
// one page and merges the result into the list, skipping items whose key is
// already present. A page shorter than PageSize ends the session.
//
// Example usage:
//
//	loader, err := pagination.New(provider, source, func(o Order) int64 { return o.ID },
//		pagination.Config[Order]{Name: "orders"})
//	loader.Init(ctx)
//	for s := loader.State(); s.HasMore && !s.Failed(); s = loader.State() {
//		loader.LoadMore(ctx)
//	}
//	if s := loader.State(); s.Failed() {
//		// s.Err describes the failure; loader.Retry(ctx) re-fetches s.Page.
//	}
//
// A failed fetch leaves HasMore unchanged, so a walk must check Failed as
// well; LoadMore after a failure moves on to the next page.
//
// The loader:
//   - Runs at most one request at a time; triggers while loading are refused
//   - Captures fetch errors as a message on State, never returns them
//   - Keeps items from earlier pages when a later page fails
//   - Starts a fresh session on Reset and drops responses from older sessions
package pagination
