package docpager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// RawCursorPager is intended for API payloads. For proper code generation, inline it:
//
//	type MyFilter struct {
//	    Paging RawCursorPager `json:",inline"`
//	}
//
// At most one of Next, Previous, After and Before may be set.
type RawCursorPager struct {
	// Limit - maximum number of records to return in the response.
	Limit int `json:"limit" mapstructure:"limit"`
	// Next - token of Page.Next; returns the page after it.
	Next string `json:"next" mapstructure:"next"`
	// Previous - token of Page.Previous; returns the page before it.
	Previous string `json:"previous" mapstructure:"previous"`
	// After - identity of a document; returns the page after it.
	After string `json:"after" mapstructure:"after"`
	// Before - identity of a document; returns the page before it.
	Before string `json:"before" mapstructure:"before"`
	// Fields - dotted paths to return. Empty returns every allowed field.
	Fields []string `json:"fields" mapstructure:"fields"`
}

// DecodeRawCursorPager decodes loosely typed request parameters, e.g. a
// parsed query string, into a RawCursorPager. Single-element lists are
// unwrapped, numbers may be given as strings and fields may be a
// comma-separated list.
func DecodeRawCursorPager(params map[string]any) (RawCursorPager, error) {
	flat := make(map[string]any, len(params))
	for key, value := range params {
		if values, ok := value.([]string); ok && len(values) == 1 {
			value = values[0]
		}

		flat[key] = value
	}

	var ret RawCursorPager

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           &ret,
	})
	if err != nil {
		return RawCursorPager{}, err
	}

	if err = decoder.Decode(flat); err != nil {
		return RawCursorPager{}, fmt.Errorf("cannot decode pagination parameters: %w", err)
	}

	return ret, nil
}

// Decode converts RawCursorPager into *CursorPager, normalizing Limit and
// decoding the boundary. Returns *CursorPager with WithSort applied.
func (p RawCursorPager) Decode(cfg Config, orderBy ...OrderBy) (*CursorPager, error) {
	if len(lo.Compact([]string{p.Next, p.Previous, p.After, p.Before})) > 1 {
		return nil, fmt.Errorf("at most one of next, previous, after and before may be set")
	}

	pager := NewCursorPager(cfg).
		WithSubstitutedSort(orderBy...).
		WithLimit(p.Limit).
		WithFields(p.Fields...)

	switch {
	case p.Next != "", p.Previous != "":
		token := lo.Ternary(p.Next != "", p.Next, p.Previous)

		cursor, err := DecodeCursor(token)
		if err != nil {
			return nil, err
		}

		pager = pager.
			WithCursor(cursor).
			WithDirection(lo.Ternary(p.Next != "", Forward, Backward))
	case p.After != "", p.Before != "":
		raw := lo.Ternary(p.After != "", p.After, p.Before)

		id, err := pager.config().parseID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boundary id '%s': %w", raw, err)
		}

		if p.After != "" {
			pager = pager.WithAfter(id)
		} else {
			pager = pager.WithBefore(id)
		}
	}

	return pager, nil
}

// CursorPager collects the parameters of one page request. Every method is
// safe to call on a nil *CursorPager, which behaves like
// NewCursorPager(DefaultConfig()).
type CursorPager struct {
	cfg       Config
	limit     int
	direction PageDirection
	cursor    *Cursor

	// boundary is the identity given by WithAfter or WithBefore. It is
	// turned into a cursor by Paginate.
	boundary    any
	hasBoundary bool

	sort     Orderings
	fields   []string
	allowed  []string
	override Projection
}

func NewCursorPager(cfg Config) *CursorPager {
	cfg = cfg.orDefault()

	return &CursorPager{
		cfg:   cfg,
		limit: cfg.DefaultLimit,
	}
}

func (c *CursorPager) orNew() *CursorPager {
	if c == nil {
		return NewCursorPager(DefaultConfig())
	}

	return c
}

func (c *CursorPager) config() Config {
	return c.cfg.orDefault()
}

// WithUnlimited requests every remaining record. Without
// Config.AllowUnbounded the limit is clamped to Config.MaxLimit.
func (c *CursorPager) WithUnlimited() *CursorPager {
	return c.WithLimit(NoLimit)
}

// WithLimit sets the maximum number of returned records. The limit is
// clamped with Config.NormalizeLimit.
func (c *CursorPager) WithLimit(limit int) *CursorPager {
	c = c.orNew()
	c.limit = c.config().NormalizeLimit(limit)

	return c
}

// WithCursor sets the cursor explicitly. It replaces any WithAfter or
// WithBefore boundary.
func (c *CursorPager) WithCursor(cursor *Cursor) *CursorPager {
	c = c.orNew()
	c.cursor = cursor
	c.boundary, c.hasBoundary = nil, false

	return c
}

// WithDirection selects the side of the cursor to read.
func (c *CursorPager) WithDirection(direction PageDirection) *CursorPager {
	c = c.orNew()
	c.direction = direction

	return c
}

// WithAfter requests the page following the document with the given
// identity. The document is looked up once by Paginate; when it does not
// exist the first page is returned.
func (c *CursorPager) WithAfter(id any) *CursorPager {
	return c.withBoundary(id, Forward)
}

// WithBefore requests the page preceding the document with the given
// identity. When it does not exist the last page is returned.
func (c *CursorPager) WithBefore(id any) *CursorPager {
	return c.withBoundary(id, Backward)
}

func (c *CursorPager) withBoundary(id any, direction PageDirection) *CursorPager {
	c = c.orNew()
	c.cursor = nil
	c.boundary, c.hasBoundary = id, true
	c.direction = direction

	return c
}

// WithSubstitutedSort resets previous orderings and applies the provided ones.
func (c *CursorPager) WithSubstitutedSort(orderBy ...OrderBy) *CursorPager {
	c = c.orNew()
	c.sort = nil

	return c.WithSort(orderBy...)
}

// WithSort appends sort orderings without overwriting existing ones.
// Order is preserved as if calling:
//
//	OrderBy(o1).ThenBy(o2).ThenBy(o3)...
func (c *CursorPager) WithSort(orderBy ...OrderBy) *CursorPager {
	c = c.orNew()

	for _, o := range orderBy {
		idx := slices.IndexFunc(c.sort, func(processed OrderBy) bool {
			return processed.Column == o.Column
		})

		// Remove previous occurrence (avoid duplication).
		if idx != -1 {
			c.sort = slices.Delete(c.sort, idx, idx+1)
		}

		c.sort = append(c.sort, o)
	}

	return c
}

// WithFields sets the dotted paths the caller wants back.
func (c *CursorPager) WithFields(fields ...string) *CursorPager {
	c = c.orNew()
	c.fields = slices.Clone(fields)

	return c
}

// WithAllowedFields sets the whitelist the requested fields are narrowed to.
func (c *CursorPager) WithAllowedFields(fields ...string) *CursorPager {
	c = c.orNew()
	c.allowed = slices.Clone(fields)

	return c
}

// WithOverrideFields sets paths that are always returned, plus optionally
// the exclusion of the identity field.
func (c *CursorPager) WithOverrideFields(override Projection) *CursorPager {
	c = c.orNew()
	c.override = override

	return c
}

// GetSort returns orderings that will be applied to the dataset, without the
// identity tie-break.
func (c *CursorPager) GetSort() Orderings {
	if c == nil {
		return nil
	}

	return c.sort
}

// GetLimit returns the normalized limit. Returning NoLimit is equivalent to
// no limit.
func (c *CursorPager) GetLimit() int {
	c = c.orNew()

	return c.config().NormalizeLimit(c.limit)
}

// IsUnlimited returns true if the limit equals NoLimit (unbounded number of records).
func (c *CursorPager) IsUnlimited() bool {
	return c.GetLimit() == NoLimit
}

// GetDatasetLimit returns the number of rows to fetch: GetLimit() + 1 for
// the peek row, or NoLimit.
func (c *CursorPager) GetDatasetLimit() int {
	limit := c.GetLimit()

	return lo.Ternary(limit == NoLimit, NoLimit, limit+1)
}

// GetCursor returns the cursor stored in CursorPager as-is.
func (c *CursorPager) GetCursor() *Cursor {
	if c == nil {
		return nil
	}

	return c.cursor
}

func (c *CursorPager) GetDirection() PageDirection {
	if c == nil {
		return Forward
	}

	return c.direction
}

// Query builds the store query for the pager's cursor. An After or Before
// boundary is not resolved here; use Paginate for that.
func (c *CursorPager) Query() (Query, error) {
	c = c.orNew()
	cfg := c.config()

	orderings := c.sort.WithTieBreak(cfg.IDField)

	filter, storeSort, err := Synthesize(orderings, c.direction, c.cursor)
	if err != nil {
		return Query{}, fmt.Errorf("cannot paginate: %w", err)
	}

	projection, err := ResolveProjection(c.fields, c.allowed, c.override, cfg.IDField)
	if err != nil {
		return Query{}, fmt.Errorf("cannot paginate: %w", err)
	}

	resolved := projection.Require(orderings.Columns()...)

	return Query{
		Filter:     filter,
		Sort:       storeSort,
		Projection: resolved.Fields,
		Limit:      c.GetDatasetLimit(),
		Injected:   resolved.Injected,
	}, nil
}

// Paginate reads one page from store. Store errors are returned unchanged.
func (c *CursorPager) Paginate(ctx context.Context, store Store) (*Page[Document], error) {
	c = c.orNew()
	cfg := c.config()
	logger := cfg.logger()

	pager := c
	if c.hasBoundary {
		var err error

		pager, err = c.resolveBoundary(ctx, store)
		if err != nil {
			return nil, err
		}
	}

	q, err := pager.Query()
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "fetching page",
		slog.String("direction", pager.direction.String()),
		slog.Int("limit", q.Limit),
		slog.Bool("cursor", !pager.cursor.IsEmpty()),
		slog.Int("disjuncts", len(q.Filter)),
	)

	rows, err := store.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	page, err := AssemblePage(
		rows,
		pager.sort.WithTieBreak(cfg.IDField),
		pager.direction,
		!pager.cursor.IsEmpty(),
		pager.GetLimit(),
		DocumentGetter,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot assemble page: %w", err)
	}

	if strip := append(slices.Clone(q.Injected), q.Sort.FoldedFields()...); len(strip) > 0 {
		for i, doc := range page.Items {
			page.Items[i] = StripInjected(doc, strip)
		}
	}

	return page, nil
}

// resolveBoundary returns a copy of the pager with its After/Before identity
// replaced by the cursor of that document.
func (c *CursorPager) resolveBoundary(ctx context.Context, store Store) (*CursorPager, error) {
	cfg := c.config()
	orderings := c.sort.WithTieBreak(cfg.IDField)

	resolved := *c
	resolved.boundary, resolved.hasBoundary = nil, false

	fields := append(orderings.Columns(), orderings.FoldedFields()...)

	doc, err := store.Lookup(ctx, c.boundary, fields)
	switch {
	case errors.Is(err, ErrNotFound):
		cfg.logger().WarnContext(ctx, "boundary document not found, paginating without boundary",
			slog.Any("id", c.boundary),
			slog.String("direction", c.direction.String()),
		)

		return &resolved, nil
	case err != nil:
		return nil, err
	}

	resolved.cursor, err = BuildCursor(doc, orderings, DocumentGetter)
	if err != nil {
		return nil, fmt.Errorf("cannot build boundary cursor: %w", err)
	}

	return &resolved, nil
}
