package docpager

import "fmt"

// Operator defines a comparison operator for filtering by column.
// Used in pagination filtering conditions.
type Operator string

// Valid reports whether o is a walking operator, i.e. one that can be derived
// from a sort direction.
func (o Operator) Valid() bool {
	return o == OperatorLT || o == OperatorGT
}

func (o Operator) ForOrdering() Direction {
	switch o {
	case OperatorGT:
		return DirectionASC
	case OperatorLT:
		return DirectionDESC
	default:
		panic(fmt.Errorf("cannot map operator '%s' to ordering", o))
	}
}

const (
	OperatorGT Operator = ">"
	OperatorLT Operator = "<"

	// OperatorEq is only produced for the columns preceding the one a
	// disjunct walks on.
	OperatorEq Operator = "="

	// OperatorIsNull matches the null bucket: null or absent. It takes no value.
	OperatorIsNull Operator = "IS NULL"
	// OperatorNotNull matches present, non-null values. It takes no value.
	OperatorNotNull Operator = "IS NOT NULL"
)

// unary reports whether o takes no comparison value.
func (o Operator) unary() bool {
	return o == OperatorIsNull || o == OperatorNotNull
}
