package docpager

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/mgo.v2/bson"
)

// Projection is a field-inclusion map: 1 includes a dotted path, 0 excludes
// it. Only the identity field may be excluded. A Projection without any
// inclusion selects every field except the excluded ones; a nil Projection
// selects everything.
type Projection map[string]int

// ResolvedProjection is the projection sent to the store together with the
// paths that were added only because pagination needs them.
type ResolvedProjection struct {
	Fields   Projection
	Injected []string
}

// ResolveProjection computes the projection for the desired fields under the
// allowed whitelist, then unions override in unconditionally.
//
// The intersection is the narrowest one: when a desired and an allowed path
// are hierarchically related, the more specific of the two is kept. Empty
// desired means "everything allowed"; a nil allowed means "no whitelist". A
// non-empty request that narrows to nothing returns ErrNoValidFields.
//
// override may exclude idField ({idField: 0}); any other exclusion returns
// ErrUnsupportedExclusion. The returned projection is nil when nothing
// restricts the field set.
func ResolveProjection(desired, allowed []string, override Projection, idField string) (Projection, error) {
	for path, include := range override {
		switch {
		case include == 1:
		case include == 0 && path == idField:
		case include == 0:
			return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedExclusion, path)
		default:
			return nil, fmt.Errorf("invalid projection value %d for '%s'", include, path)
		}
	}

	var fields []string
	switch {
	case len(desired) == 0:
		fields = allowed
	case allowed == nil:
		fields = desired
	default:
		fields = narrowestIntersection(desired, allowed)
	}

	restricted := len(desired) > 0 || allowed != nil
	ret := make(Projection, len(fields)+len(override))
	for _, path := range fields {
		ret[path] = 1
	}
	maps.Copy(ret, override)

	if restricted && !ret.hasInclusions() {
		return nil, ErrNoValidFields
	}

	if len(ret) == 0 {
		return nil, nil
	}

	return ret.collapse(), nil
}

// Include returns the projection including exactly paths. No paths yields
// nil, i.e. every field.
func Include(paths ...string) Projection {
	if len(paths) == 0 {
		return nil
	}

	return Projection(lo.SliceToMap(paths, func(path string) (string, int) {
		return path, 1
	})).collapse()
}

func narrowestIntersection(desired, allowed []string) []string {
	ret := make([]string, 0, len(desired))

	for _, d := range desired {
		for _, a := range allowed {
			switch {
			case d == a, isDescendant(d, a):
				ret = append(ret, d)
			case isDescendant(a, d):
				ret = append(ret, a)
			}
		}
	}

	return lo.Uniq(ret)
}

func isDescendant(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+".")
}

func (p Projection) hasInclusions() bool {
	return lo.SomeBy(lo.Values(p), func(include int) bool { return include == 1 })
}

// includes reports whether path is fetched under p.
func (p Projection) includes(path string) bool {
	if include, ok := p[path]; ok && include == 0 {
		return false
	}

	if !p.hasInclusions() {
		return true
	}

	return lo.SomeBy(lo.Keys(p), func(included string) bool {
		return p[included] == 1 && (included == path || isDescendant(path, included))
	})
}

func (p Projection) includesDescendantOf(path string) bool {
	return lo.SomeBy(lo.Keys(p), func(included string) bool {
		return p[included] == 1 && isDescendant(included, path)
	})
}

// collapse drops inclusions already covered by an included ancestor; stores
// reject overlapping projection paths.
func (p Projection) collapse() Projection {
	for path, include := range p {
		if include != 1 {
			continue
		}

		for other, otherInclude := range p {
			if otherInclude == 1 && isDescendant(path, other) {
				delete(p, path)
				break
			}
		}
	}

	return p
}

// Require makes sure every path is fetched. Paths that had to be added,
// including an excluded identity, are reported as Injected so they can be
// stripped from the result.
func (p Projection) Require(paths ...string) ResolvedProjection {
	if p == nil {
		return ResolvedProjection{}
	}

	ret := ResolvedProjection{Fields: maps.Clone(p)}
	for _, path := range lo.Uniq(paths) {
		if ret.Fields.includes(path) {
			continue
		}

		if include, ok := ret.Fields[path]; ok && include == 0 {
			delete(ret.Fields, path)
		}

		if ret.Fields.hasInclusions() {
			ret.Fields[path] = 1
		}

		// Stripping an ancestor would drop requested descendants with it.
		if !p.includesDescendantOf(path) {
			ret.Injected = append(ret.Injected, path)
		}
	}

	if len(ret.Fields) == 0 {
		ret.Fields = nil
	}

	ret.Fields = ret.Fields.collapse()

	return ret
}

// Paths returns the included paths in sorted order.
func (p Projection) Paths() []string {
	ret := lo.Filter(lo.Keys(p), func(path string, _ int) bool { return p[path] == 1 })
	slices.Sort(ret)

	return ret
}

// ToBSON converts the projection to a MongoDB projection document. A nil
// projection yields nil, i.e. every field.
func (p Projection) ToBSON() bson.M {
	if p == nil {
		return nil
	}

	ret := make(bson.M, len(p))
	for path, include := range p {
		ret[path] = include
	}

	return ret
}

// Apply projects doc in memory. The input is left untouched.
func (p Projection) Apply(doc Document) Document {
	if p == nil {
		return doc
	}

	var ret Document
	if p.hasInclusions() {
		ret = make(Document, len(p))
		for _, path := range p.Paths() {
			if v, ok := Lookup(doc, path); ok {
				setPath(ret, path, v)
			}
		}
	} else {
		ret = doc
	}

	for path, include := range p {
		if include == 0 {
			ret = withoutPath(ret, path)
		}
	}

	return ret
}

// StripInjected removes the paths a ResolvedProjection injected. The input is
// left untouched.
func StripInjected(doc Document, injected []string) Document {
	for _, path := range injected {
		doc = withoutPath(doc, path)
	}

	return doc
}

func setPath(doc Document, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc

	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(Document)
		if !ok {
			next = Document{}
			cur[part] = next
		}
		cur = next
	}

	cur[parts[len(parts)-1]] = v
}

// withoutPath returns doc without path, copying every map on the way so
// that doc itself is not modified.
func withoutPath(doc Document, path string) Document {
	if _, ok := doc[path]; ok {
		ret := maps.Clone(doc)
		delete(ret, path)
		return ret
	}

	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return doc
	}

	child, ok := asMap(doc[head])
	if !ok {
		return doc
	}

	ret := maps.Clone(doc)
	ret[head] = withoutPath(Document(child), rest)

	return ret
}
