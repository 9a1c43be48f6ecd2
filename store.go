package docpager

import (
	"context"
	"slices"

	"github.com/samber/lo"
)

// Query is everything a Store needs to serve one page.
type Query struct {
	// Filter selects the documents beyond the cursor. Empty matches all.
	Filter Filter
	// Sort is the direction-adjusted store order.
	Sort Orderings
	// Projection limits the returned fields. Nil returns every field.
	Projection Projection
	// Limit is the number of rows to fetch, peek row included. NoLimit, or
	// any other non-positive value, fetches every matching row.
	Limit int
	// Injected lists the paths fetched only to build cursors. Remove them
	// from the results with StripInjected.
	Injected []string
}

// Store executes synthesized queries against a concrete document store.
// Errors are returned to the caller of Paginate unchanged; the pager never
// retries.
type Store interface {
	// Find returns at most q.Limit documents matching q.Filter in q.Sort order.
	Find(ctx context.Context, q Query) ([]Document, error)
	// Lookup returns the given fields of the document with the given
	// identity, or ErrNotFound.
	Lookup(ctx context.Context, id any, fields []string) (Document, error)
}

// Apply evaluates q over docs in memory, for stores without a query
// language of their own. docs is left untouched.
func (q Query) Apply(docs []Document) []Document {
	ret := lo.Filter(docs, func(doc Document, _ int) bool {
		return q.Filter.Match(doc)
	})
	slices.SortStableFunc(ret, q.Sort.Compare)

	if q.Limit > 0 && len(ret) > q.Limit {
		ret = ret[:q.Limit]
	}

	return lo.Map(ret, func(doc Document, _ int) Document {
		return q.Projection.Apply(doc)
	})
}
