package docpager

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/mgo.v2/bson"
	"gorm.io/gorm/clause"
)

type (
	// Conjunct is the condition Operator(Column, Value). Folded conjuncts
	// compare the case-folded column value.
	Conjunct struct {
		Column   string
		Value    any
		Operator Operator
		Folded   bool
	}

	Disjunct []Conjunct

	// Filter represents the disjunctive normal form (DNF) of a logical
	// expression. Each disjunct is joined by OR, and each disjunct consists of
	// a list of conjuncts which are joined by AND.
	//
	// Thus:
	//
	//	DNF = X1 OR X2 ... OR Xn, where Xi = Ai1 AND Ai2 ... AND Aim.
	//	DNF = (A11 AND A12 AND A13) OR (A21 AND A22 AND A23), for n=2, m=3.
	//
	//  Where (A11 AND A12 AND A13), (A21 AND A22 AND A23) are disjuncts and
	//  A11, A12, A13, A21, A22, A23 are conjuncts.
	//
	// An empty Filter matches every document.
	Filter []Disjunct
)

// IsEmpty reports whether the filter is unconstrained.
func (d Filter) IsEmpty() bool {
	return len(d) == 0
}

func (c Conjunct) sqlColumn() string {
	return lo.Ternary(c.Folded, fmt.Sprintf("LOWER(%s)", c.Column), c.Column)
}

// toGORMExpression converts a conjunct of the form Operator(Column, Value)
// into an SQL condition "Column Operator Value" represented as a clause.Expression.
//
// IMPORTANT: The method uses the SQL placeholder "?".
//
// Example:
//
//	Conjunct = { Column: "id", Operator: ">", Value: "123"}
//
// Result:
//
//	"id > 123"
func (c Conjunct) toGORMExpression() clause.Expression {
	sqlClause, args := c.toSQLClause()

	return clause.Expr{
		SQL:  sqlClause,
		Vars: lo.Map(args, func(arg driver.Value, _ int) any { return arg }),
	}
}

// toSQLClause converts a conjunct of the form Operator(Column, Value) to
// an SQL condition of the form "Column Operator ?" with a corresponding value.
// Null-bucket operators take no placeholder.
//
// Example:
//
//	Conjunct = { Column: "id", Operator: ">", Value: 123}
//
// Result:
//
//	("id > ?", [123])
func (c Conjunct) toSQLClause() (string, []driver.Value) {
	if c.Operator.unary() {
		return fmt.Sprintf("%s %s", c.Column, c.Operator), nil
	}

	return fmt.Sprintf("%s %s ?", c.sqlColumn(), c.Operator), []driver.Value{c.Value}
}

// toBSON converts a conjunct into a MongoDB query document. IS NULL maps to
// {column: null}, which matches both null and missing fields.
func (c Conjunct) toBSON() bson.M {
	column := lo.Ternary(c.Folded, FoldedField(c.Column), c.Column)

	switch c.Operator {
	case OperatorIsNull:
		return bson.M{column: nil}
	case OperatorNotNull:
		return bson.M{column: bson.M{"$ne": nil}}
	case OperatorGT:
		return bson.M{column: bson.M{"$gt": c.Value}}
	case OperatorLT:
		return bson.M{column: bson.M{"$lt": c.Value}}
	default:
		return bson.M{column: c.Value}
	}
}

// match evaluates the conjunct against doc. Comparisons never match a value
// in the null bucket, mirroring SQL and MongoDB semantics.
func (c Conjunct) match(doc Document) bool {
	v := Value(doc, c.Column)
	if c.Folded {
		v = Fold(v)
	}

	switch c.Operator {
	case OperatorIsNull:
		return inNullBucket(v)
	case OperatorNotNull:
		return !inNullBucket(v)
	}

	if inNullBucket(v) {
		return false
	}

	cmp := Compare(v, c.Value)
	switch c.Operator {
	case OperatorGT:
		return cmp > 0
	case OperatorLT:
		return cmp < 0
	case OperatorEq:
		return cmp == 0
	default:
		return false
	}
}

// toGORMExpression converts a disjunct (K1, K2, K3) into a gorm expression
// "K1 AND K2 AND K3" where each Ki is expanded via Conjunct.toGORMExpression.
func (d Disjunct) toGORMExpression() clause.Expression {
	andExpressions := make([]clause.Expression, 0, len(d))
	for _, conjunct := range d {
		andExpressions = append(andExpressions, conjunct.toGORMExpression())
	}

	if len(andExpressions) == 1 {
		return andExpressions[0]
	} else if len(andExpressions) > 1 {
		return clause.And(andExpressions...)
	}

	return nil
}

// toSQLClause converts a disjunct (K1, K2, K3) into an SQL condition
// "(K1 AND K2 AND K3)" with corresponding values. Returns the SQL string and
// the list of values for placeholders.
//
// Example:
//
//	Disjunct = {
//		{Column: "id", Operator: ">", Value: 5},
//		{Column: "name", Operator: "<", Value: "abc"}
//	}
//
// Result:
//
//	("(id > ? AND name < ?)", [5, "abc"])
func (d Disjunct) toSQLClause() (string, []driver.Value) {
	andClauses := make([]string, 0, len(d))
	andValues := make([]driver.Value, 0, len(d))

	for _, conjunct := range d {
		andClause, values := conjunct.toSQLClause()
		andClauses = append(andClauses, andClause)
		andValues = append(andValues, values...)
	}

	if len(andClauses) >= 1 {
		return fmt.Sprintf("(%s)", strings.Join(andClauses, " AND ")), andValues
	}

	return "", nil
}

func (d Disjunct) toBSON() bson.M {
	if len(d) == 1 {
		return d[0].toBSON()
	}

	return bson.M{"$and": lo.Map(d, func(c Conjunct, _ int) bson.M { return c.toBSON() })}
}

func (d Disjunct) match(doc Document) bool {
	return lo.EveryBy(d, func(c Conjunct) bool { return c.match(doc) })
}

// ToGORMExpression converts a Filter into a clause.Expression.
// For each disjunct it calls Disjunct.toGORMExpression and joins disjuncts
// with OR. Returns nil for an empty filter.
func (d Filter) ToGORMExpression() clause.Expression {
	orExpressions := make([]clause.Expression, 0, len(d))

	for _, disjunct := range d {
		andExpressions := disjunct.toGORMExpression()
		if andExpressions == nil {
			continue
		}

		orExpressions = append(orExpressions, andExpressions)
	}

	if len(orExpressions) == 1 {
		return orExpressions[0]
	} else if len(orExpressions) > 1 {
		return clause.Or(orExpressions...)
	}

	return nil
}

// ToSQL converts a Filter into an SQL condition. For each disjunct it
// calls Disjunct.toSQLClause and joins disjuncts with OR. Returns the SQL
// string and the list of values for placeholders.
//
// Example:
//
//	Filter = {
//		{{Column: "id", Operator: "<", Value: 10}},
//		{{Column: "id", Operator: "=", Value: 10}, {Column: "name", Operator: "<", Value: "abc"}},
//	}
//
// Result:
//
//	("((id < ?) OR (id = ? AND name < ?))", [10, 10, "abc"])
//
// Usage:
//
//	where, args := filter.ToSQL()
//	query := fmt.Sprintf("SELECT * FROM table WHERE %s", where)
func (d Filter) ToSQL() (string, []driver.Value) {
	orClauses := make([]string, 0, len(d))
	values := make([]driver.Value, 0, len(d))

	for _, disjunct := range d {
		orClause, orValues := disjunct.toSQLClause()
		if orClause == "" {
			continue
		}

		orClauses = append(orClauses, orClause)
		values = append(values, orValues...)
	}

	if len(orClauses) >= 1 {
		return fmt.Sprintf("(%s)", strings.Join(orClauses, " OR ")), values
	}

	return "TRUE", nil
}

// ToBSON converts a Filter into a MongoDB query document. Case-insensitive
// conjuncts refer to FoldedField columns, which the store has to compute.
func (d Filter) ToBSON() bson.M {
	switch len(d) {
	case 0:
		return bson.M{}
	case 1:
		return d[0].toBSON()
	default:
		return bson.M{"$or": lo.Map(d, func(disjunct Disjunct, _ int) bson.M { return disjunct.toBSON() })}
	}
}

// Match evaluates the filter against a document in memory.
func (d Filter) Match(doc Document) bool {
	if d.IsEmpty() {
		return true
	}

	return lo.SomeBy(d, func(disjunct Disjunct) bool { return disjunct.match(doc) })
}
