package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/mgo.v2/bson"

	"github.com/Alp4ka/docpager"
)

// decodeJSON parses data keeping integers exact. {"$oid": hex} becomes an
// ObjectId and {"$undefined": true} the absent-field marker.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return fromJSON(v)
}

func fromJSON(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}

		return v.Float64()
	case []any:
		ret := make([]any, len(v))
		for i, item := range v {
			var err error
			if ret[i], err = fromJSON(item); err != nil {
				return nil, err
			}
		}

		return ret, nil
	case map[string]any:
		if hex, ok := v["$oid"].(string); ok && len(v) == 1 {
			if !bson.IsObjectIdHex(hex) {
				return nil, fmt.Errorf("invalid ObjectId %q", hex)
			}

			return bson.ObjectIdHex(hex), nil
		}

		if undefined, ok := v["$undefined"].(bool); ok && undefined && len(v) == 1 {
			return docpager.Undefined, nil
		}

		ret := make(docpager.Document, len(v))
		for key, item := range v {
			var err error
			if ret[key], err = fromJSON(item); err != nil {
				return nil, err
			}
		}

		return ret, nil
	default:
		return v, nil
	}
}
