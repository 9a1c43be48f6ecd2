package docpager

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/mgo.v2/bson"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

func (o Direction) ForOperator() Operator {
	switch o {
	case DirectionASC:
		return OperatorGT
	case DirectionDESC:
		return OperatorLT
	default:
		panic(fmt.Errorf("cannot map direction '%s' to operator", o))
	}
}

// Reverse returns the opposite direction.
func (o Direction) Reverse() Direction {
	return lo.Ternary(o == DirectionDESC, DirectionASC, DirectionDESC)
}

// FoldedFieldPrefix prefixes the computed field that holds the case-folded
// copy of a case-insensitive column in stores that cannot fold inline.
const FoldedFieldPrefix = "__lc_"

// FoldedField returns the name of the computed, case-folded copy of column.
// Stores that fold on their side return this copy with each row, and cursors
// are built from it so that they hold exactly the key the store compares.
func FoldedField(column string) string {
	return FoldedFieldPrefix + strings.ReplaceAll(column, ".", "_")
}

// SplitFoldedFields separates a Lookup field list into plain fields and the
// columns whose FoldedField copy is requested along with them.
func SplitFoldedFields(fields []string) (plain []string, folded []string) {
	sources := make(map[string]string, len(fields))
	for _, field := range fields {
		sources[FoldedField(field)] = field
	}

	for _, field := range fields {
		if source, ok := sources[field]; ok && source != field {
			folded = append(folded, source)
			continue
		}

		plain = append(plain, field)
	}

	return plain, folded
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    string
		Direction Direction
		// CaseInsensitive orders, filters and encodes cursors on the
		// case-folded value. Returned documents keep their original casing.
		CaseInsensitive bool

		// unique is set on the identity tie-break; such a column is never null.
		unique bool
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases to fully qualified column names.
	// Use it when bare column names could cause an "ambiguous column name" error.
	// Key is an external alias, value is an internal column name.
	ColumnMapping = map[ColumnAlias]string
)

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	if o.Column == "" {
		return fmt.Errorf("empty ordering column name")
	}

	// Guard against SQL injection by restricting allowed characters in column names.
	if !lo.Every(_availableColumnNameSymbols, []rune(o.Column)) {
		return fmt.Errorf("ordering column name contains forbidden symbols '%s'", o.Column)
	}

	return nil
}

// Reverse flips the direction of every ordering. Walking backward through a
// dataset is a forward walk over the reversed orderings.
func (o Orderings) Reverse() Orderings {
	return lo.Map(o, func(ordering OrderBy, _ int) OrderBy {
		ordering.Direction = ordering.Direction.Reverse()
		return ordering
	})
}

// WithTieBreak returns orderings that end with idField, which makes the order
// strict. The identity takes the direction of the last ordering unless it is
// already the last one. Empty orderings sort by idField ascending.
func (o Orderings) WithTieBreak(idField string) Orderings {
	ret := make(Orderings, len(o), len(o)+1)
	copy(ret, o)

	if len(ret) == 0 {
		return append(ret, OrderBy{Column: idField, Direction: DirectionASC, unique: true})
	}

	last := &ret[len(ret)-1]
	if last.Column == idField {
		last.unique = true
		return ret
	}

	return append(ret, OrderBy{Column: idField, Direction: last.Direction, unique: true})
}

// Columns returns the ordering column names in order.
func (o Orderings) Columns() []string {
	return lo.Map(o, func(ordering OrderBy, _ int) string {
		return ordering.Column
	})
}

// Key returns the comparison key of the i-th ordering for doc: the field
// value, case-folded when the ordering is case-insensitive, or Undefined when
// the field is absent.
func (o Orderings) Key(doc Document, i int) any {
	return o[i].key(Value(doc, o[i].Column))
}

func (o OrderBy) key(v any) any {
	if o.CaseInsensitive {
		return Fold(v)
	}

	return v
}

// Compare orders two documents. With a tie-break appended the order is
// strict for documents with distinct identities.
func (o Orderings) Compare(a, b Document) int {
	for i, ordering := range o {
		c := Compare(o.Key(a, i), o.Key(b, i))
		if c == 0 {
			continue
		}

		if ordering.Direction == DirectionDESC {
			return -c
		}

		return c
	}

	return 0
}

func (o OrderBy) sqlColumn() string {
	return lo.Ternary(o.CaseInsensitive, fmt.Sprintf("LOWER(%s)", o.Column), o.Column)
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Nullable columns are preceded by a "<column> IS NULL" key so that nulls
// sort first in ascending order on every dialect. Case-insensitive columns are
// wrapped in LOWER().
//
// Example: for Orderings: [{"a", "ASC"}, {"id", "DESC", unique}] returns
// ["a IS NULL DESC", "a ASC", "id DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, 2*len(o))
	for _, ordering := range o {
		column := ordering.sqlColumn()
		if !ordering.unique {
			ret = append(ret, fmt.Sprintf("%s IS NULL %s", ordering.Column, ordering.Direction.Reverse()))
		}

		ret = append(ret, fmt.Sprintf("%s %s", column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string suitable for embedding into an
// SQL query.
// Example: for [{"a", "ASC"}, {"id", "ASC", unique}] returns
// "a IS NULL DESC, a ASC, id ASC".
//
// Usage:
//
//	query := fmt.Sprintf("SELECT * FROM table ORDER BY %s", orderings.ToSQL())
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.ToSQL())
}

// ToBSON converts Orderings to a MongoDB $sort document. Case-insensitive
// columns sort on their FoldedField.
func (o Orderings) ToBSON() bson.D {
	return lo.Map(o, func(ordering OrderBy, _ int) bson.DocElem {
		return bson.DocElem{
			Name:  ordering.bsonField(),
			Value: lo.Ternary(ordering.Direction == DirectionDESC, -1, 1),
		}
	})
}

// ToMgoSort converts Orderings to the field list accepted by mgo's
// Query.Sort, e.g. ["name", "-_id"].
func (o Orderings) ToMgoSort() []string {
	return lo.Map(o, func(ordering OrderBy, _ int) string {
		return lo.Ternary(ordering.Direction == DirectionDESC, "-", "") + ordering.bsonField()
	})
}

// FoldedColumns returns the distinct case-insensitive columns.
func (o Orderings) FoldedColumns() []string {
	return lo.Uniq(lo.FilterMap(o, func(ordering OrderBy, _ int) (string, bool) {
		return ordering.Column, ordering.CaseInsensitive
	}))
}

// FoldedFields returns the FoldedField names of the case-insensitive columns.
func (o Orderings) FoldedFields() []string {
	return lo.Map(o.FoldedColumns(), func(column string, _ int) string {
		return FoldedField(column)
	})
}

// HasCaseInsensitive reports whether any ordering needs a folded column.
func (o Orderings) HasCaseInsensitive() bool {
	return lo.SomeBy(o, func(ordering OrderBy) bool {
		return ordering.CaseInsensitive
	})
}

func (o OrderBy) bsonField() string {
	return lo.Ternary(o.CaseInsensitive, FoldedField(o.Column), o.Column)
}

func (o Orderings) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("empty ordering list")
	}

	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// ParseSort builds Orderings from a list of strings in the format
// "column asc|desc [ci]". The optional "ci" suffix makes the ordering
// case-insensitive. Column aliases are resolved via ColumnMapping; a nil
// mapping accepts column names as they are. Returns an error if an alias is
// not found in the mapping.
func ParseSort(stringsOrderings []string, columnMapping ColumnMapping) (Orderings, error) {
	ret := make([]OrderBy, 0, len(stringsOrderings))
	aliases := lo.Keys(columnMapping)

	for _, stringOrdering := range stringsOrderings {
		cutStringOrdering := strings.Fields(stringOrdering)
		if len(cutStringOrdering) != 2 && len(cutStringOrdering) != 3 {
			return nil, fmt.Errorf("invalid ordering string format '%s'", stringOrdering)
		}

		caseInsensitive := false
		if len(cutStringOrdering) == 3 {
			if !strings.EqualFold(cutStringOrdering[2], "ci") {
				return nil, fmt.Errorf("invalid ordering modifier '%s'", cutStringOrdering[2])
			}
			caseInsensitive = true
		}

		columnAlias := cutStringOrdering[0]
		direction := Direction(strings.ToUpper(cutStringOrdering[1]))
		columnName := columnAlias
		if columnMapping != nil {
			columnName = columnMapping[columnAlias]
		}
		if columnName == "" {
			return nil, fmt.Errorf("invalid column alias. closest: '%s'", closestAlias(columnAlias, aliases))
		}

		ordering := OrderBy{
			Column:          columnName,
			Direction:       direction,
			CaseInsensitive: caseInsensitive,
		}
		if err := ordering.validate(); err != nil {
			return nil, err
		}

		ret = append(ret, ordering)
	}

	return ret, nil
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
