package docpager

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/mgo.v2/bson"
)

var _encoder = base64.RawURLEncoding

var (
	_cborEnc cbor.EncMode
	_cborDec cbor.DecMode
)

func init() {
	var err error

	// Canonical mode keeps the encoding deterministic: equal tuples always
	// produce equal tokens.
	_cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Errorf("cannot build cursor encoder: %w", err))
	}

	_cborDec, err = cbor.DecOptions{
		MaxNestedLevels:  8,
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Errorf("cannot build cursor decoder: %w", err))
	}
}

// Tuple is the boundary tuple of a cursor: one value per ordering column,
// the identity tie-break last.
type Tuple []any

// Type tags of the cursor wire format. The undefined tag is the private
// sentinel that keeps absent fields apart from nulls.
const (
	tagNull      = "n"
	tagUndefined = "u"
	tagString    = "s"
	tagInt       = "i"
	tagUint      = "x"
	tagFloat     = "f"
	tagBool      = "b"
	tagTime      = "t"
	tagObjectID  = "o"
	tagDocument  = "d"
)

type cursorValue struct {
	Tag  string          `cbor:"t"`
	Data cbor.RawMessage `cbor:"v,omitempty"`
}

// EncodeCursor serializes a tuple into an opaque, URL-safe token.
//
// Integers are normalized to int64 (or uint64 above math.MaxInt64), floats
// to float64, []byte to string and times to UTC; a decoded tuple holds these
// canonical types.
func EncodeCursor(tuple Tuple) (string, error) {
	wire := make([]cursorValue, 0, len(tuple))
	for i, v := range tuple {
		cv, err := encodeCursorValue(v)
		if err != nil {
			return "", fmt.Errorf("cannot encode cursor position %d: %w", i, err)
		}

		wire = append(wire, cv)
	}

	data, err := _cborEnc.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("cannot marshal cursor: %w", err)
	}

	return _encoder.EncodeToString(data), nil
}

func encodeCursorValue(v any) (cursorValue, error) {
	var (
		tag     string
		payload any
	)

	switch vt := v.(type) {
	case nil:
		return cursorValue{Tag: tagNull}, nil
	case UndefinedValue:
		return cursorValue{Tag: tagUndefined}, nil
	case string:
		tag, payload = tagString, vt
	case []byte:
		tag, payload = tagString, string(vt)
	case bool:
		tag, payload = tagBool, vt
	case float32:
		tag, payload = tagFloat, float64(vt)
	case float64:
		tag, payload = tagFloat, vt
	case time.Time:
		tag, payload = tagTime, vt.UTC().Format(time.RFC3339Nano)
	case bson.ObjectId:
		if !vt.Valid() {
			return cursorValue{}, fmt.Errorf("invalid object id %q", string(vt))
		}
		tag, payload = tagObjectID, vt.Hex()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		if i, ok := asInt64(vt); ok {
			tag, payload = tagInt, i
		} else {
			tag, payload = tagUint, asUint64(vt)
		}
	default:
		doc, err := bson.Marshal(bson.M{"v": v})
		if err != nil {
			return cursorValue{}, fmt.Errorf("unsupported cursor value of type %T: %w", v, err)
		}
		tag, payload = tagDocument, doc
	}

	data, err := _cborEnc.Marshal(payload)
	if err != nil {
		return cursorValue{}, err
	}

	return cursorValue{Tag: tag, Data: data}, nil
}

func asUint64(v any) uint64 {
	switch n := v.(type) {
	case uint:
		return uint64(n)
	case uint64:
		return n
	default:
		i, _ := asInt64(v)
		return uint64(i)
	}
}

// DecodeTuple is the inverse of EncodeCursor. Every failure wraps
// ErrInvalidCursor. Decoding never interprets the token beyond the tags
// above.
func DecodeTuple(token string) (Tuple, error) {
	data, err := _encoder.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64 encoded cursor: %w", ErrInvalidCursor, err)
	}

	var wire []cursorValue
	if err = _cborDec.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal cursor: %w", ErrInvalidCursor, err)
	}

	if len(wire) == 0 {
		return nil, fmt.Errorf("%w: empty tuple", ErrInvalidCursor)
	}

	tuple := make(Tuple, 0, len(wire))
	for i, cv := range wire {
		v, err := decodeCursorValue(cv)
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %w", ErrInvalidCursor, i, err)
		}

		tuple = append(tuple, v)
	}

	return tuple, nil
}

func decodeCursorValue(cv cursorValue) (any, error) {
	switch cv.Tag {
	case tagNull:
		return nil, nil
	case tagUndefined:
		return Undefined, nil
	case tagString:
		return decodePayload[string](cv.Data)
	case tagInt:
		return decodePayload[int64](cv.Data)
	case tagUint:
		return decodePayload[uint64](cv.Data)
	case tagFloat:
		return decodePayload[float64](cv.Data)
	case tagBool:
		return decodePayload[bool](cv.Data)
	case tagTime:
		s, err := decodePayload[string](cv.Data)
		if err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case tagObjectID:
		s, err := decodePayload[string](cv.Data)
		if err != nil {
			return nil, err
		}
		if !bson.IsObjectIdHex(s) {
			return nil, fmt.Errorf("malformed object id %q", s)
		}
		return bson.ObjectIdHex(s), nil
	case tagDocument:
		raw, err := decodePayload[[]byte](cv.Data)
		if err != nil {
			return nil, err
		}
		var doc bson.M
		if err = bson.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		v, ok := doc["v"]
		if !ok {
			return nil, fmt.Errorf("malformed embedded value")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown value tag %q", cv.Tag)
	}
}

func decodePayload[T any](data cbor.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("missing payload")
	}

	err := _cborDec.Unmarshal(data, &v)

	return v, err
}

// Cursor is a decoded pagination token: the boundary tuple of a page edge.
// A nil or empty Cursor means "no boundary".
type Cursor struct {
	values Tuple
}

func NewCursor(values ...any) *Cursor {
	return &Cursor{
		values: values,
	}
}

// DecodeCursor attempts to parse a token produced by Cursor.String. An empty
// token yields a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if len(token) == 0 {
		return nil, nil
	}

	values, err := DecodeTuple(token)
	if err != nil {
		return nil, err
	}

	return &Cursor{
		values: values,
	}, nil
}

// Encode returns the token of the cursor, or an error when a value cannot be
// represented.
func (c *Cursor) Encode() (string, error) {
	if c.IsEmpty() {
		return "", nil
	}

	return EncodeCursor(c.values)
}

// String - implements fmt.Stringer.
func (c *Cursor) String() string {
	token, err := c.Encode()
	if err != nil {
		panic(fmt.Errorf("cannot marshal cursor value: %w", err))
	}

	return token
}

// MarshalText lets cursors be embedded in JSON responses as their token.
func (c *Cursor) MarshalText() ([]byte, error) {
	token, err := c.Encode()
	return []byte(token), err
}

func (c *Cursor) UnmarshalText(text []byte) error {
	decoded, err := DecodeCursor(string(text))
	if err != nil {
		return err
	}

	c.values = nil
	if decoded != nil {
		c.values = decoded.values
	}

	return nil
}

func (c *Cursor) IsEmpty() bool {
	return c == nil || len(c.values) == 0
}

// Values returns the boundary tuple.
func (c *Cursor) Values() Tuple {
	if c == nil {
		return nil
	}

	return c.values
}

// validate checks that the cursor fits the orderings: one value per column
// and a non-null identity.
func (c *Cursor) validate(orderings Orderings) error {
	if c.IsEmpty() {
		return nil
	}

	if len(c.values) != len(orderings) {
		return fmt.Errorf("%w: cursor column number mismatch: got %d, want %d",
			ErrInvalidCursor, len(c.values), len(orderings))
	}

	if inNullBucket(c.values[len(c.values)-1]) {
		return fmt.Errorf("%w: cursor identity is empty", ErrInvalidCursor)
	}

	return nil
}

var (
	_ fmt.Stringer = (*Cursor)(nil)
)
