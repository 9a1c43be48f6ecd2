package docpager

import (
	"fmt"

	"github.com/samber/lo"
)

// PageDirection selects which side of the cursor a page is read from.
type PageDirection int

const (
	// Forward reads the page after the cursor, in the declared order.
	Forward PageDirection = iota
	// Backward reads the page before the cursor by scanning the reversed
	// order; the assembler restores the declared order.
	Backward
)

func (d PageDirection) String() string {
	return lo.Ternary(d == Backward, "backward", "forward")
}

// Synthesize turns orderings, a direction and an optional cursor into a store
// filter and the store sort. The orderings must already end with the
// identity tie-break (see Orderings.WithTieBreak).
//
// Backward reverses every direction, for the filter and the returned sort
// alike. Without a cursor the filter is empty.
//
// With a cursor (v1, ..., vK) the filter is the lexicographic expansion
//
//	(C1 O1 V1) or (C1 = V1 and C2 O2 V2) or ... or (C1 = V1 and ... and CK OK VK)
//
// where "=" and "O" follow the null-bucket rules: a null or absent vi is
// matched by "Ci IS NULL", walking ascending past the bucket is
// "Ci IS NOT NULL", walking descending past it matches nothing, and walking
// descending past a present value also enters the bucket.
func Synthesize(orderings Orderings, direction PageDirection, cursor *Cursor) (Filter, Orderings, error) {
	err := orderings.validate()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot synthesize filter: %w", err)
	}

	walk := orderings
	if direction == Backward {
		walk = orderings.Reverse()
	}

	if cursor.IsEmpty() {
		return nil, walk, nil
	}

	err = cursor.validate(orderings)
	if err != nil {
		return nil, nil, err
	}

	values := cursor.Values()
	filter := make(Filter, 0, len(walk))

	for k := range walk {
		equalities := lo.Map(walk[:k], func(ordering OrderBy, i int) Conjunct {
			return equalTo(ordering, values[i])
		})

		for _, beyond := range beyondConjuncts(walk[k], values[k]) {
			disjunct := make(Disjunct, 0, k+1)
			disjunct = append(disjunct, equalities...)
			disjunct = append(disjunct, beyond)

			filter = append(filter, disjunct)
		}
	}

	return filter, walk, nil
}

// equalTo matches documents tied with v on the ordering's column. For a v in
// the null bucket that is the whole bucket.
func equalTo(ordering OrderBy, v any) Conjunct {
	if inNullBucket(v) {
		return Conjunct{Column: ordering.Column, Operator: OperatorIsNull}
	}

	return Conjunct{
		Column:   ordering.Column,
		Value:    v,
		Operator: OperatorEq,
		Folded:   ordering.CaseInsensitive,
	}
}

// beyondConjuncts returns the alternatives for "strictly after v" on the
// ordering's column. Each alternative becomes its own disjunct so the filter
// stays in DNF.
func beyondConjuncts(ordering OrderBy, v any) []Conjunct {
	operator := ordering.Direction.ForOperator()

	if inNullBucket(v) {
		// The bucket sorts first: ascending leaves it for the present
		// values, descending has nothing after it.
		if operator == OperatorGT {
			return []Conjunct{{Column: ordering.Column, Operator: OperatorNotNull}}
		}

		return nil
	}

	ret := []Conjunct{{
		Column:   ordering.Column,
		Value:    v,
		Operator: operator,
		Folded:   ordering.CaseInsensitive,
	}}

	if operator == OperatorLT && !ordering.unique {
		ret = append(ret, Conjunct{Column: ordering.Column, Operator: OperatorIsNull})
	}

	return ret
}
