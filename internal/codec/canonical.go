package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/freeeve/cdict/internal/cderr"
	"github.com/freeeve/cdict/internal/value"
)

// Version is the canonical encoding format version, written as the first byte.
const Version byte = 0x01

const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagList
	tagMap
)

// Marshal returns the canonical encoding of v without compression.
func Marshal(v value.Value) ([]byte, error) {
	buf := make([]byte, 1, 64)
	buf[0] = Version
	return appendValue(buf, v, "$", 0)
}

func appendValue(dst []byte, v value.Value, path string, depth int) ([]byte, error) {
	if depth > value.MaxDepth {
		return nil, &cderr.UnsupportedValueError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d", value.MaxDepth)}
	}
	switch v.Kind() {
	case value.KindNull:
		return append(dst, tagNull), nil
	case value.KindBool:
		if b, _ := v.AsBool(); b {
			return append(dst, tagTrue), nil
		}
		return append(dst, tagFalse), nil
	case value.KindInt:
		i, _ := v.AsInt()
		dst = append(dst, tagInt)
		return binary.AppendVarint(dst, i), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		dst = append(dst, tagFloat)
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f)), nil
	case value.KindString:
		s, _ := v.AsString()
		dst = append(dst, tagString)
		dst = binary.AppendUvarint(dst, uint64(len(s)))
		return append(dst, s...), nil
	case value.KindList:
		items, _ := v.AsList()
		dst = append(dst, tagList)
		dst = binary.AppendUvarint(dst, uint64(len(items)))
		var err error
		for i, item := range items {
			if dst, err = appendValue(dst, item, path+"["+strconv.Itoa(i)+"]", depth+1); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case value.KindMap:
		fields, _ := v.AsMap()
		dst = append(dst, tagMap)
		dst = binary.AppendUvarint(dst, uint64(len(fields)))
		seen := make(map[string]struct{}, len(fields))
		var err error
		for _, f := range fields {
			if _, dup := seen[f.Key]; dup {
				return nil, &cderr.UnsupportedValueError{Path: path, Type: "map", Reason: fmt.Sprintf("duplicate key %q", f.Key)}
			}
			seen[f.Key] = struct{}{}
			dst = binary.AppendUvarint(dst, uint64(len(f.Key)))
			dst = append(dst, f.Key...)
			if dst, err = appendValue(dst, f.Value, path+"."+f.Key, depth+1); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, &cderr.UnsupportedValueError{Path: path, Type: v.Kind().String()}
	}
}

// Unmarshal parses a canonical encoding produced by Marshal.
func Unmarshal(data []byte) (value.Value, error) {
	if len(data) == 0 {
		return value.Value{}, cderr.Corrupt("decode", "empty encoding", nil)
	}
	if data[0] != Version {
		return value.Value{}, cderr.Corrupt("decode", fmt.Sprintf("unknown encoding version %d", data[0]), nil)
	}
	r := reader{buf: data, off: 1}
	v, err := r.value(0)
	if err != nil {
		return value.Value{}, err
	}
	if r.off != len(r.buf) {
		return value.Value{}, r.corrupt("%d trailing bytes", len(r.buf)-r.off)
	}
	return v, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) corrupt(format string, args ...any) error {
	return cderr.Corrupt("decode", fmt.Sprintf("offset %d: ", r.off)+fmt.Sprintf(format, args...), nil)
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) uvarint() (uint64, error) {
	u, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, r.corrupt("bad uvarint")
	}
	r.off += n
	return u, nil
}

// count reads a length prefix; every counted element needs at least one byte.
func (r *reader) count() (int, error) {
	u, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if u > uint64(r.remaining()) {
		return 0, r.corrupt("length %d exceeds %d remaining bytes", u, r.remaining())
	}
	return int(u), nil
}

func (r *reader) bytes(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) value(depth int) (value.Value, error) {
	if depth > value.MaxDepth {
		return value.Value{}, r.corrupt("nesting deeper than %d", value.MaxDepth)
	}
	if r.remaining() < 1 {
		return value.Value{}, r.corrupt("truncated value")
	}
	tag := r.buf[r.off]
	r.off++

	switch tag {
	case tagNull:
		return value.Null(), nil
	case tagFalse:
		return value.Bool(false), nil
	case tagTrue:
		return value.Bool(true), nil
	case tagInt:
		i, n := binary.Varint(r.buf[r.off:])
		if n <= 0 {
			return value.Value{}, r.corrupt("bad varint")
		}
		r.off += n
		return value.Int(i), nil
	case tagFloat:
		if r.remaining() < 8 {
			return value.Value{}, r.corrupt("truncated float")
		}
		return value.Float(math.Float64frombits(binary.LittleEndian.Uint64(r.bytes(8)))), nil
	case tagString:
		n, err := r.count()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(string(r.bytes(n))), nil
	case tagList:
		n, err := r.count()
		if err != nil {
			return value.Value{}, err
		}
		items := make([]value.Value, n)
		for i := range items {
			if items[i], err = r.value(depth + 1); err != nil {
				return value.Value{}, err
			}
		}
		return value.List(items...), nil
	case tagMap:
		n, err := r.count()
		if err != nil {
			return value.Value{}, err
		}
		fields := make([]value.Field, n)
		seen := make(map[string]struct{}, n)
		for i := range fields {
			kl, err := r.count()
			if err != nil {
				return value.Value{}, err
			}
			key := string(r.bytes(kl))
			if _, dup := seen[key]; dup {
				return value.Value{}, r.corrupt("duplicate map key %q", key)
			}
			seen[key] = struct{}{}
			v, err := r.value(depth + 1)
			if err != nil {
				return value.Value{}, err
			}
			fields[i] = value.F(key, v)
		}
		return value.Map(fields...), nil
	default:
		return value.Value{}, r.corrupt("unknown tag 0x%02x", tag)
	}
}
