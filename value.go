package docpager

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/mgo.v2/bson"
)

// Document is a single row as produced or consumed by a Store.
type Document = bson.M

// UndefinedValue marks a field that is absent from a document. It differs
// from nil, which marks a field that is present and null.
type UndefinedValue struct{}

// MarshalJSON renders the marker the way extended JSON renders undefined.
func (UndefinedValue) MarshalJSON() ([]byte, error) {
	return []byte(`{"$undefined":true}`), nil
}

func (UndefinedValue) String() string {
	return "undefined"
}

// Undefined is the absent-field marker.
var Undefined = UndefinedValue{}

func IsUndefined(v any) bool {
	_, ok := v.(UndefinedValue)
	return ok
}

// inNullBucket reports whether v orders within the null bucket: present and
// null, or absent.
func inNullBucket(v any) bool {
	return v == nil || IsUndefined(v)
}

// Lookup resolves a dotted path in doc. The second return value is false when
// the path is absent; a present null yields (nil, true). A key containing the
// literal dotted path wins over nested traversal, which keeps qualified SQL
// column names working.
func Lookup(doc Document, path string) (any, bool) {
	if v, ok := doc[path]; ok {
		return v, true
	}

	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}

		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Value is Lookup with absence reported as Undefined.
func Value(doc Document, path string) any {
	v, ok := Lookup(doc, path)
	if !ok {
		return Undefined
	}

	return v
}

// Fold returns the lowercased form of string values and leaves every other
// value untouched. It lowercases rune by rune like SQL LOWER does, so
// "Straße" folds to "straße" and not to "strasse".
func Fold(v any) any {
	switch s := v.(type) {
	case string:
		return cases.Lower(language.Und).String(s)
	case []byte:
		return cases.Lower(language.Und).String(string(s))
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	case bson.D:
		return m.Map(), true
	default:
		return nil, false
	}
}
