package docpager

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Page is a generic paginated result container.
type Page[T any] struct {
	// Items result elements, always in the declared (forward) order.
	Items []T `json:"items"`
	// HasNext reports whether documents exist after the last item.
	HasNext bool `json:"hasNext"`
	// HasPrevious reports whether documents exist before the first item.
	HasPrevious bool `json:"hasPrevious"`
	// Next cursor of the last item; walk Forward from it for the next page.
	Next *Cursor `json:"next,omitempty"`
	// Previous cursor of the first item; walk Backward from it for the
	// previous page.
	Previous *Cursor `json:"previous,omitempty"`
}

// Getter extracts a field from a row for building cursors. The second return
// value is false when the field is absent.
type Getter[T any] func(item T, path string) (any, bool)

// DocumentGetter is the Getter for Document rows.
func DocumentGetter(doc Document, path string) (any, bool) {
	return Lookup(doc, path)
}

// GetterFunc adapts a per-column getter map, keyed by column, to a Getter.
// Example:
//
//	docpager.GetterFunc(map[string]func(User) any{
//		"_id":  func(u User) any { return u.ID },
//		"name": func(u User) any { return u.Name },
//	})
func GetterFunc[T any](getters map[string]func(T) any) Getter[T] {
	return func(item T, path string) (any, bool) {
		getter, ok := getters[path]
		if !ok {
			return nil, false
		}

		return getter(item), true
	}
}

// TrimResultSet drops the peek row. Rows are fetched with limit+1 so that a
// surplus row tells whether more data exists without a count query:
//
//   - limit = 2, resultSet = [a, b, c] → [a, b], true
//   - limit = 2, resultSet = [a, b] → [a, b], false
//
// NoLimit never trims.
func TrimResultSet[T any](resultSet []T, limit int) ([]T, bool) {
	if limit == NoLimit || len(resultSet) <= limit {
		return resultSet, false
	}

	return resultSet[:limit], true
}

// AssemblePage turns the rows returned for a synthesized query into a Page.
//
// rows must be in store order, i.e. reversed for Backward, and may hold one
// peek row beyond limit. orderings are the declared orderings with the
// tie-break, not the direction-adjusted store sort.
//
// The flags follow the walk: a page read from a cursor always has data on
// the cursor's side, and has data on the far side when the peek row was
// fetched. An empty page therefore never claims more data in its own
// direction, and it carries no cursors.
func AssemblePage[T any](
	rows []T,
	orderings Orderings,
	direction PageDirection,
	cursorSupplied bool,
	limit int,
	getter Getter[T],
) (*Page[T], error) {
	rows, hasMore := TrimResultSet(rows, limit)

	// The peek row tells about the side the walk heads to; the cursor
	// tells about the side it came from.
	page := &Page[T]{
		Items:       rows,
		HasNext:     lo.Ternary(direction == Forward, hasMore, cursorSupplied),
		HasPrevious: lo.Ternary(direction == Forward, cursorSupplied, hasMore),
	}

	if direction == Backward {
		page.Items = slices.Clone(rows)
		slices.Reverse(page.Items)
	}

	if len(page.Items) == 0 {
		return page, nil
	}

	var err error

	page.Previous, err = BuildCursor(page.Items[0], orderings, getter)
	if err != nil {
		return nil, err
	}

	page.Next, err = BuildCursor(lo.LastOrEmpty(page.Items), orderings, getter)
	if err != nil {
		return nil, err
	}

	return page, nil
}

// BuildCursor extracts the boundary tuple of item: one value per ordering,
// case-folded where the ordering is case-insensitive, Undefined where the
// field is absent. A folded value the store returned under FoldedField is
// taken as it is.
func BuildCursor[T any](item T, orderings Orderings, getter Getter[T]) (*Cursor, error) {
	values := make(Tuple, 0, len(orderings))
	for _, ordering := range orderings {
		if ordering.CaseInsensitive {
			if folded, ok := getter(item, FoldedField(ordering.Column)); ok {
				values = append(values, folded)
				continue
			}
		}

		v, ok := getter(item, ordering.Column)
		if !ok {
			v = Undefined
		}

		values = append(values, ordering.key(v))
	}

	if len(values) == 0 || inNullBucket(values[len(values)-1]) {
		return nil, fmt.Errorf("cannot build cursor: missing value for tie-break column")
	}

	return &Cursor{values: values}, nil
}
