package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/capnweb-go/capnweb/wire"
)

// Tagged is the JSON-like text codec of spec.md §4.2. Non-JSON values are
// encoded as tag arrays of two to four elements (["bigint",...],
// ["date",...], ["bytes",...], ["error",...]); Infinity/-Infinity/NaN are
// carried as ["number", "Infinity"|"-Infinity"|"NaN"] so that plain JSON's
// inability to represent them doesn't lose information on the round trip.
type Tagged struct{}

func NewTagged() *Tagged { return &Tagged{} }

func (Tagged) Classify(v interface{}) Kind { return Classify(v) }

func (Tagged) Encode(tree wire.Expr) (wire.Frame, error) {
	jsonVal, err := toJSON(tree)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(jsonVal)
	if err != nil {
		return nil, fmt.Errorf("codec: tagged encode: %w", err)
	}
	return wire.TextFrame(string(b)), nil
}

func (Tagged) Decode(frame wire.Frame) (wire.Expr, error) {
	text, ok := wire.AsText(frame)
	if !ok {
		b, ok2 := wire.AsBytes(frame)
		if !ok2 {
			return nil, fmt.Errorf("codec: tagged decode: frame is neither text nor bytes")
		}
		text = string(b)
	}
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("codec: tagged decode: %w", err)
	}
	return fromJSON(raw)
}

func toJSON(e wire.Expr) (interface{}, error) {
	switch v := e.(type) {
	case nil:
		return nil, nil
	case wire.Undefined:
		return []interface{}{"undefined"}, nil
	case wire.SpecialNumber:
		return []interface{}{"number", string(v)}, nil
	case float64:
		if math.IsInf(v, 1) {
			return []interface{}{"number", "Infinity"}, nil
		}
		if math.IsInf(v, -1) {
			return []interface{}{"number", "-Infinity"}, nil
		}
		if math.IsNaN(v) {
			return []interface{}{"number", "NaN"}, nil
		}
		return v, nil
	case float32:
		return toJSON(float64(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool, string:
		return v, nil
	case wire.BigInt:
		return []interface{}{"bigint", v.Decimal}, nil
	case wire.Date:
		return []interface{}{"date", v.UnixMilli}, nil
	case wire.Bytes:
		return []interface{}{"bytes", base64.StdEncoding.EncodeToString(v.Data)}, nil
	case wire.WireError:
		arr := []interface{}{"error", v.Name, v.Message}
		if v.Stack != "" {
			arr = append(arr, v.Stack)
		}
		return arr, nil
	case wire.Raw:
		return []interface{}{"raw", v.Value}, nil
	case wire.Ref:
		arr := []interface{}{string(v.Kind), v.ID}
		if len(v.Path) > 0 {
			arr = append(arr, pathToJSON(v.Path))
		}
		return arr, nil
	case wire.Array:
		out := make([]interface{}, len(v))
		for i, el := range v {
			jv, err := toJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case wire.Object:
		out := make(map[string]interface{}, len(v))
		for k, el := range v {
			jv, err := toJSON(el)
			if err != nil {
				return nil, err
			}
			out[k] = jv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("codec: tagged encode: unsupported expr leaf %T", e)
	}
}

var tagNames = map[string]bool{
	"bigint": true, "date": true, "bytes": true, "error": true,
	"raw": true, "undefined": true, "number": true,
	string(wire.RefExport): true, string(wire.RefImport): true, string(wire.RefPromise): true,
}

func fromJSON(raw interface{}) (wire.Expr, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		if len(v) > 0 {
			if tag, ok := v[0].(string); ok && tagNames[tag] {
				return fromTaggedArray(tag, v)
			}
		}
		out := make(wire.Array, len(v))
		for i, el := range v {
			ev, err := fromJSON(el)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case map[string]interface{}:
		out := make(wire.Object, len(v))
		for k, el := range v {
			ev, err := fromJSON(el)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}

func fromTaggedArray(tag string, v []interface{}) (wire.Expr, error) {
	switch tag {
	case "bigint":
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed bigint tag")
		}
		s, _ := v[1].(string)
		return wire.BigInt{Decimal: s}, nil
	case "date":
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed date tag")
		}
		f, _ := v[1].(float64)
		return wire.Date{UnixMilli: f}, nil
	case "bytes":
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed bytes tag")
		}
		s, _ := v[1].(string)
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("codec: bad base64 bytes: %w", err)
		}
		return wire.Bytes{Data: data}, nil
	case "error":
		if len(v) < 3 {
			return nil, fmt.Errorf("codec: malformed error tag")
		}
		name, _ := v[1].(string)
		msg, _ := v[2].(string)
		stack := ""
		if len(v) >= 4 {
			stack, _ = v[3].(string)
		}
		return wire.WireError{Name: name, Message: msg, Stack: stack}, nil
	case "raw":
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed raw tag")
		}
		return wire.Raw{Value: v[1]}, nil
	case "undefined":
		return wire.Undefined{}, nil
	case "number":
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed number tag")
		}
		s, _ := v[1].(string)
		return wire.SpecialNumber(s), nil
	default: // export, import, promise
		if len(v) < 2 {
			return nil, fmt.Errorf("codec: malformed %s tag", tag)
		}
		var id int64
		switch n := v[1].(type) {
		case float64:
			id = int64(n)
		case int64: // msgp (Binary) decodes integers as int64
			id = n
		default:
			return nil, fmt.Errorf("codec: %s id must be a number", tag)
		}
		ref := wire.Ref{Kind: wire.RefKind(tag), ID: id}
		if len(v) >= 3 {
			p, err := pathFromJSON(v[2])
			if err != nil {
				return nil, err
			}
			ref.Path = p
		}
		return ref, nil
	}
}

func pathToJSON(p wire.Path) []interface{} {
	out := make([]interface{}, len(p))
	for i, seg := range p {
		if seg.IsIndex {
			out[i] = seg.Index
		} else {
			out[i] = seg.Key
		}
	}
	return out
}

func pathFromJSON(v interface{}) (wire.Path, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("codec: path must be an array")
	}
	out := make(wire.Path, len(arr))
	for i, el := range arr {
		switch k := el.(type) {
		case string:
			out[i] = wire.StringSegment(k)
		case float64:
			out[i] = wire.IndexSegment(int64(k))
		case int64:
			out[i] = wire.IndexSegment(k)
		default:
			return nil, fmt.Errorf("codec: invalid path segment type %T", el)
		}
	}
	return out, nil
}
