package docpager

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/mgo.v2/bson"
)

// typeRank orders values of different kinds against each other, close to
// the BSON comparison order. The null bucket always sorts lowest.
type typeRank int

const (
	rankNull typeRank = iota
	rankNumber
	rankString
	rankObject
	rankArray
	rankObjectID
	rankBool
	rankTime
	rankOther
)

func rankOf(v any) typeRank {
	switch v.(type) {
	case nil, UndefinedValue:
		return rankNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return rankNumber
	case string, []byte:
		return rankString
	case bson.ObjectId:
		return rankObjectID
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case bson.M, map[string]any, bson.D:
		return rankObject
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return rankArray
	case reflect.Map:
		return rankObject
	default:
		return rankOther
	}
}

// Compare defines the natural order over document values. It returns a
// negative number when a < b, zero when they are equal and a positive number
// otherwise. Null and Undefined compare equal to each other and lower than
// anything else.
func Compare(a, b any) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNull:
		return 0
	case rankNumber:
		return compareNumbers(a, b)
	case rankString:
		return strings.Compare(asString(a), asString(b))
	case rankObjectID:
		return strings.Compare(string(a.(bson.ObjectId)), string(b.(bson.ObjectId)))
	case rankBool:
		return cmp.Compare(lo.Ternary(a.(bool), 1, 0), lo.Ternary(b.(bool), 1, 0))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankObject:
		return compareObjects(a, b)
	case rankArray:
		return compareArrays(a, b)
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v.(string)
}

func compareNumbers(a, b any) int {
	ai, aOK := asInt64(a)
	bi, bOK := asInt64(b)
	if aOK && bOK {
		return cmp.Compare(ai, bi)
	}

	return cmp.Compare(asFloat64(a), asFloat64(b))
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	default:
		return 0, false
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		i, _ := asInt64(v)
		return float64(i)
	}
}

func compareObjects(a, b any) int {
	ma, okA := asMap(a)
	mb, okB := asMap(b)
	if !okA || !okB {
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}

	ka, kb := lo.Keys(ma), lo.Keys(mb)
	slices.Sort(ka)
	slices.Sort(kb)

	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strings.Compare(ka[i], kb[i]); c != 0 {
			return c
		}

		if c := Compare(ma[ka[i]], mb[kb[i]]); c != 0 {
			return c
		}
	}

	return cmp.Compare(len(ka), len(kb))
}

func compareArrays(a, b any) int {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)

	for i := 0; i < va.Len() && i < vb.Len(); i++ {
		if c := Compare(va.Index(i).Interface(), vb.Index(i).Interface()); c != 0 {
			return c
		}
	}

	return cmp.Compare(va.Len(), vb.Len())
}
