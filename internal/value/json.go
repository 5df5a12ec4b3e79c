package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MaxDepth bounds the nesting of lists and maps.
const MaxDepth = 512

// MarshalJSON implements json.Marshaler. Map key order is preserved and
// integral floats keep a fractional part so they parse back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil, false)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) appendJSON(dst []byte, lenient bool) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		return strconv.AppendBool(dst, v.b), nil
	case KindInt:
		return strconv.AppendInt(dst, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			if !lenient {
				return nil, fmt.Errorf("value: cannot marshal %v as JSON", v.f)
			}
			return strconv.AppendFloat(dst, v.f, 'g', -1, 64), nil
		}
		start := len(dst)
		dst = strconv.AppendFloat(dst, v.f, 'g', -1, 64)
		if !bytes.ContainsAny(dst[start:], ".eE") {
			dst = append(dst, ".0"...)
		}
		return dst, nil
	case KindString:
		return appendJSONString(dst, v.s)
	case KindList:
		dst = append(dst, '[')
		for i, item := range v.list {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = item.appendJSON(dst, lenient); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindMap:
		dst = append(dst, '{')
		for i, f := range v.fields {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendJSONString(dst, f.Key); err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			if dst, err = f.Value.appendJSON(dst, lenient); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	default:
		return nil, fmt.Errorf("value: invalid kind %s", v.kind)
	}
}

func appendJSONString(dst []byte, s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	// Encode appends a newline.
	return append(dst, bytes.TrimRight(buf.Bytes(), "\n")...), nil
}

// ParseJSON parses a single JSON document into a Value, keeping object keys in
// document order. Numbers without a fraction or exponent that fit in int64
// become integers; all others become floats. A repeated object key keeps its
// first position and its last value.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("value: parse json: %w", err)
	}
	v, err := parseToken(dec, tok, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("value: parse json: trailing data after document")
	}
	return v, nil
}

func parseToken(dec *json.Decoder, tok json.Token, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, fmt.Errorf("value: parse json: nesting deeper than %d", MaxDepth)
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return parseNumber(t)
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				next, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("value: parse json: %w", err)
				}
				item, err := parseToken(dec, next, depth+1)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("value: parse json: %w", err)
			}
			return List(items...), nil
		case '{':
			var fields []Field
			index := make(map[string]int)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("value: parse json: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("value: parse json: object key %v is not a string", keyTok)
				}
				next, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("value: parse json: %w", err)
				}
				item, err := parseToken(dec, next, depth+1)
				if err != nil {
					return Value{}, err
				}
				if pos, dup := index[key]; dup {
					fields[pos].Value = item
					continue
				}
				index[key] = len(fields)
				fields = append(fields, Field{Key: key, Value: item})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("value: parse json: %w", err)
			}
			return Map(fields...), nil
		}
	}
	return Value{}, fmt.Errorf("value: parse json: unexpected token %v", tok)
}

func parseNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("value: parse json number %q: %w", s, err)
	}
	return Float(f), nil
}
