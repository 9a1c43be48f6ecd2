package docpager

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"
	"gorm.io/gorm/clause"
)

func Test_Conjunct_toExpression(t *testing.T) {
	timeNow := time.Now().UTC()

	tests := []struct {
		name     string
		conjunct Conjunct
		wantSQL  string
		wantVars []interface{}
	}{
		{
			name:     "string less than",
			conjunct: Conjunct{Column: "name", Operator: OperatorLT, Value: "abc"},
			wantSQL:  "name < ?",
			wantVars: []interface{}{"abc"},
		},
		{
			name:     "timestamp greater than",
			conjunct: Conjunct{Column: "created_at", Operator: OperatorGT, Value: timeNow},
			wantSQL:  "created_at > ?",
			wantVars: []interface{}{timeNow},
		},
		{
			name:     "integer less than",
			conjunct: Conjunct{Column: "id", Operator: OperatorLT, Value: 10},
			wantSQL:  "id < ?",
			wantVars: []interface{}{10},
		},
		{
			name:     "folded equality",
			conjunct: Conjunct{Column: "name", Operator: OperatorEq, Value: "abc", Folded: true},
			wantSQL:  "LOWER(name) = ?",
			wantVars: []interface{}{"abc"},
		},
		{
			name:     "is null takes no placeholder",
			conjunct: Conjunct{Column: "name", Operator: OperatorIsNull, Folded: true},
			wantSQL:  "name IS NULL",
			wantVars: []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := tt.conjunct.toGORMExpression()
			clauseExpr := expr.(clause.Expr)

			if clauseExpr.SQL != tt.wantSQL {
				t.Errorf("unexpected SQL: got %s, want %s", clauseExpr.SQL, tt.wantSQL)
			}

			if len(clauseExpr.Vars) != len(tt.wantVars) {
				t.Errorf("unexpected vars length: got %d, want %d", len(clauseExpr.Vars), len(tt.wantVars))
			}

			for i, wantVar := range tt.wantVars {
				if clauseExpr.Vars[i] != wantVar {
					t.Errorf("unexpected var[%d]: got %v, want %v", i, clauseExpr.Vars[i], wantVar)
				}
			}
		})
	}
}

func Test_Disjunct_toExpression(t *testing.T) {
	tests := []struct {
		name     string
		disjunct Disjunct
		wantNil  bool
	}{
		{
			name: "non-empty disjunct",
			disjunct: Disjunct{
				{Column: "id", Operator: OperatorGT, Value: 5},
				{Column: "created_at", Operator: OperatorGT, Value: "2024-01-02T03:04:05Z"},
			},
			wantNil: false,
		},
		{
			name:     "empty disjunct",
			disjunct: Disjunct{},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := tt.disjunct.toGORMExpression()
			if (expr == nil) != tt.wantNil {
				t.Errorf("unexpected expression result: got %v, want nil=%v", expr, tt.wantNil)
			}
		})
	}
}

func Test_Filter_ToGORMExpression(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantNil bool
	}{
		{
			name: "non-empty filter",
			filter: Filter{
				{
					{Column: "id", Operator: OperatorGT, Value: 5},
					{Column: "created_at", Operator: OperatorGT, Value: "2024-01-02T03:04:05Z"},
				},
				{{Column: "id", Operator: OperatorGT, Value: 10}},
			},
			wantNil: false,
		},
		{
			name:    "empty filter",
			filter:  Filter{},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := tt.filter.ToGORMExpression()
			if (expr == nil) != tt.wantNil {
				t.Errorf("unexpected expression result: got %v, want nil=%v", expr, tt.wantNil)
			}
		})
	}
}

func Test_Conjunct_toSQLClause(t *testing.T) {
	timeNow := time.Now().UTC()

	tests := []struct {
		name     string
		conjunct Conjunct
		wantSQL  string
		wantVals []driver.Value
	}{
		{
			name:     "string less than",
			conjunct: Conjunct{Column: "name", Operator: OperatorLT, Value: "abc"},
			wantSQL:  "name < ?",
			wantVals: []driver.Value{"abc"},
		},
		{
			name:     "timestamp greater than",
			conjunct: Conjunct{Column: "created_at", Operator: OperatorGT, Value: timeNow},
			wantSQL:  "created_at > ?",
			wantVals: []driver.Value{timeNow},
		},
		{
			name:     "float greater than",
			conjunct: Conjunct{Column: "price", Operator: OperatorGT, Value: 99.99},
			wantSQL:  "price > ?",
			wantVals: []driver.Value{99.99},
		},
		{
			name:     "folded less than",
			conjunct: Conjunct{Column: "name", Operator: OperatorLT, Value: "abc", Folded: true},
			wantSQL:  "LOWER(name) < ?",
			wantVals: []driver.Value{"abc"},
		},
		{
			name:     "is not null",
			conjunct: Conjunct{Column: "name", Operator: OperatorNotNull},
			wantSQL:  "name IS NOT NULL",
			wantVals: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotVals := tt.conjunct.toSQLClause()

			assert.Equal(t, tt.wantSQL, gotSQL)
			assert.Equal(t, tt.wantVals, gotVals)
		})
	}
}

func Test_Disjunct_toSQLClause(t *testing.T) {
	tests := []struct {
		name     string
		disjunct Disjunct
		wantSQL  string
		wantVals []driver.Value
	}{
		{
			name: "single conjunct",
			disjunct: Disjunct{
				{Column: "id", Operator: OperatorGT, Value: 5},
			},
			wantSQL:  "(id > ?)",
			wantVals: []driver.Value{5},
		},
		{
			name: "multiple conjuncts",
			disjunct: Disjunct{
				{Column: "id", Operator: OperatorGT, Value: 5},
				{Column: "name", Operator: OperatorLT, Value: "abc"},
				{Column: "active", Operator: OperatorGT, Value: true},
			},
			wantSQL:  "(id > ? AND name < ? AND active > ?)",
			wantVals: []driver.Value{5, "abc", true},
		},
		{
			name: "null bucket",
			disjunct: Disjunct{
				{Column: "name", Operator: OperatorIsNull},
				{Column: "id", Operator: OperatorGT, Value: 5},
			},
			wantSQL:  "(name IS NULL AND id > ?)",
			wantVals: []driver.Value{5},
		},
		{
			name:     "empty disjunct",
			disjunct: Disjunct{},
			wantSQL:  "",
			wantVals: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotVals := tt.disjunct.toSQLClause()

			if gotSQL != tt.wantSQL {
				t.Errorf("toSQLClause() SQL = %v, want %v", gotSQL, tt.wantSQL)
			}

			if len(gotVals) != len(tt.wantVals) {
				t.Errorf("toSQLClause() Vals length = %v, want %v", len(gotVals), len(tt.wantVals))
			}

			for i, wantVal := range tt.wantVals {
				if gotVals[i] != wantVal {
					t.Errorf("toSQLClause() Vals[%d] = %v, want %v", i, gotVals[i], wantVal)
				}
			}
		})
	}
}

func Test_Filter_ToSQL(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		wantSQL  string
		wantVals []driver.Value
	}{
		{
			name: "single disjunct with single conjunct",
			filter: Filter{
				{{Column: "id", Operator: OperatorGT, Value: 5}},
			},
			wantSQL:  "((id > ?))",
			wantVals: []driver.Value{5},
		},
		{
			name: "multiple disjuncts",
			filter: Filter{
				{
					{Column: "id", Operator: OperatorGT, Value: 5},
					{Column: "name", Operator: OperatorLT, Value: "abc"},
				},
				{
					{Column: "id", Operator: OperatorGT, Value: 10},
				},
			},
			wantSQL:  "((id > ? AND name < ?) OR (id > ?))",
			wantVals: []driver.Value{5, "abc", 10},
		},
		{
			name:     "empty filter",
			filter:   Filter{},
			wantSQL:  "TRUE",
			wantVals: nil,
		},
		{
			name: "filter with empty disjuncts",
			filter: Filter{
				{},
				{{Column: "id", Operator: OperatorGT, Value: 5}},
				{},
			},
			wantSQL:  "((id > ?))",
			wantVals: []driver.Value{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotVals := tt.filter.ToSQL()

			if gotSQL != tt.wantSQL {
				t.Errorf("ToSQL() SQL = %v, want %v", gotSQL, tt.wantSQL)
			}

			if len(gotVals) != len(tt.wantVals) {
				t.Errorf("ToSQL() Vals length = %v, want %v", len(gotVals), len(tt.wantVals))
			}

			for i, wantVal := range tt.wantVals {
				if gotVals[i] != wantVal {
					t.Errorf("ToSQL() Vals[%d] = %v, want %v", i, gotVals[i], wantVal)
				}
			}
		})
	}
}

func Test_Filter_ToBSON(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   bson.M
	}{
		{
			name:   "empty filter matches everything",
			filter: nil,
			want:   bson.M{},
		},
		{
			name:   "single conjunct",
			filter: Filter{{{Column: "_id", Operator: OperatorLT, Value: 5}}},
			want:   bson.M{"_id": bson.M{"$lt": 5}},
		},
		{
			name: "lexicographic expansion",
			filter: Filter{
				{{Column: "name", Operator: OperatorGT, Value: "bob"}},
				{
					{Column: "name", Operator: OperatorEq, Value: "bob"},
					{Column: "_id", Operator: OperatorGT, Value: 3},
				},
			},
			want: bson.M{"$or": []bson.M{
				{"name": bson.M{"$gt": "bob"}},
				{"$and": []bson.M{
					{"name": "bob"},
					{"_id": bson.M{"$gt": 3}},
				}},
			}},
		},
		{
			name: "null bucket and folded column",
			filter: Filter{
				{{Column: "name", Operator: OperatorIsNull}},
				{{Column: "name", Operator: OperatorNotNull}},
				{{Column: "a.b", Operator: OperatorEq, Value: "x", Folded: true}},
			},
			want: bson.M{"$or": []bson.M{
				{"name": nil},
				{"name": bson.M{"$ne": nil}},
				{"__lc_a_b": "x"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.ToBSON())
		})
	}
}

func Test_Filter_Match(t *testing.T) {
	doc := Document{"_id": 7, "name": "Bob", "age": nil, "address": bson.M{"city": "Oslo"}}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "empty filter",
			filter: nil,
			want:   true,
		},
		{
			name:   "greater than",
			filter: Filter{{{Column: "_id", Operator: OperatorGT, Value: int64(6)}}},
			want:   true,
		},
		{
			name:   "numbers compare across kinds",
			filter: Filter{{{Column: "_id", Operator: OperatorEq, Value: 7.0}}},
			want:   true,
		},
		{
			name:   "folded equality",
			filter: Filter{{{Column: "name", Operator: OperatorEq, Value: "bob", Folded: true}}},
			want:   true,
		},
		{
			name:   "case sensitive equality",
			filter: Filter{{{Column: "name", Operator: OperatorEq, Value: "bob"}}},
			want:   false,
		},
		{
			name:   "null is in the bucket",
			filter: Filter{{{Column: "age", Operator: OperatorIsNull}}},
			want:   true,
		},
		{
			name:   "absent is in the bucket",
			filter: Filter{{{Column: "missing", Operator: OperatorIsNull}}},
			want:   true,
		},
		{
			name:   "comparison never matches the bucket",
			filter: Filter{{{Column: "age", Operator: OperatorLT, Value: 100}}},
			want:   false,
		},
		{
			name:   "dotted path",
			filter: Filter{{{Column: "address.city", Operator: OperatorGT, Value: "Berlin"}}},
			want:   true,
		},
		{
			name: "disjuncts are ORed and conjuncts ANDed",
			filter: Filter{
				{
					{Column: "name", Operator: OperatorEq, Value: "Bob"},
					{Column: "_id", Operator: OperatorGT, Value: 7},
				},
				{{Column: "address.city", Operator: OperatorNotNull}},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(doc))
		})
	}
}
