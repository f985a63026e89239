package license

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Canonicalize produces the byte-exact JSON encoding a signature is computed
// over. Structurally equal values always encode to identical bytes regardless
// of construction order:
//   - object keys are sorted by Unicode code point (byte order on UTF-8),
//   - array element order is preserved,
//   - no insignificant whitespace is emitted,
//   - anything that is not an object, array, string, number, boolean or null
//     encodes to null.
//
// The vendor-side generator signs exactly these bytes; any divergence between
// signer and verifier breaks every signature.
func Canonicalize(v any) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, t[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, el)
		}
		buf.WriteByte(']')
	case string:
		writeJSONString(buf, t)
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		// Numbers decoded with UseNumber keep their original text, so the
		// bytes round-trip without float formatting drift.
		buf.WriteString(t.String())
	case int:
		buf.WriteString(strconv.Itoa(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		b, _ := json.Marshal(t)
		buf.Write(b)
	default:
		// Undefined-ish leaves (channels, funcs, structs not decoded from
		// JSON) canonicalize to null rather than failing.
		buf.WriteString("null")
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// DecodeValue parses JSON text into the generic value tree Canonicalize
// operates on, preserving exact number text via json.Number.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
