package record

import (
	"errors"
	"math"

	"github.com/coredb/coredb/internal/alias/bx"
)

// Tuple is a positional row of values, one per Schema column. A nil entry
// means SQL NULL.
type Tuple []any

var (
	ErrSchemaMismatch   = errors.New("rowcodec: schema/values count mismatch")
	ErrNotNullable      = errors.New("rowcodec: non-nullable column given nil value")
	ErrWrongType        = errors.New("rowcodec: value does not match column type")
	ErrBadBuffer        = errors.New("rowcodec: buffer underflow")
	ErrVarTooLong       = errors.New("rowcodec: variable-length value exceeds u16")
	ErrUnsupportedType  = errors.New("rowcodec: unsupported column type")
)

// EncodeRow packs values according to schema into the on-page tuple
// format: a leading null-bitmap (1 bit per column, 1 == NULL) followed by
// fixed-width fields inline and varlen fields (TEXT/BYTES) as a u16 length
// prefix plus bytes.
func EncodeRow(s Schema, values Tuple) ([]byte, error) {
	if len(values) != s.NumCols() {
		return nil, ErrSchemaMismatch
	}

	nullBytes := (s.NumCols() + 7) / 8
	out := make([]byte, nullBytes)

	for i, col := range s.Cols {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrNotNullable
			}
			out[i/8] |= 1 << uint(i%8)
			continue
		}

		switch col.Type {
		case ColInt32:
			x, ok := asInt32(v)
			if !ok {
				return nil, ErrWrongType
			}
			var b [4]byte
			bx.PutU32(b[:], uint32(x))
			out = append(out, b[:]...)

		case ColInt64:
			x, ok := asInt64(v)
			if !ok {
				return nil, ErrWrongType
			}
			var b [8]byte
			bx.PutU64(b[:], uint64(x))
			out = append(out, b[:]...)

		case ColBool:
			x, ok := v.(bool)
			if !ok {
				return nil, ErrWrongType
			}
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		case ColFloat64:
			x, ok := asFloat64(v)
			if !ok {
				return nil, ErrWrongType
			}
			var b [8]byte
			bx.PutU64(b[:], math.Float64bits(x))
			out = append(out, b[:]...)

		case ColText:
			str, ok := v.(string)
			if !ok {
				return nil, ErrWrongType
			}
			bs := []byte(str)
			if len(bs) > math.MaxUint16 {
				return nil, ErrVarTooLong
			}
			var l [2]byte
			bx.PutU16(l[:], uint16(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		case ColBytes:
			bs, ok := v.([]byte)
			if !ok {
				return nil, ErrWrongType
			}
			if len(bs) > math.MaxUint16 {
				return nil, ErrVarTooLong
			}
			var l [2]byte
			bx.PutU16(l[:], uint16(len(bs)))
			out = append(out, l[:]...)
			out = append(out, bs...)

		default:
			return nil, ErrUnsupportedType
		}
	}

	return out, nil
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(s Schema, buf []byte) (Tuple, error) {
	nc := s.NumCols()
	nullBytes := (nc + 7) / 8
	if len(buf) < nullBytes {
		return nil, ErrBadBuffer
	}

	row := make(Tuple, nc)
	off := nullBytes

	for i, col := range s.Cols {
		isNull := buf[i/8]&(1<<uint(i%8)) != 0
		if isNull {
			row[i] = nil
			continue
		}

		switch col.Type {
		case ColInt32:
			if off+4 > len(buf) {
				return nil, ErrBadBuffer
			}
			row[i] = int32(bx.U32(buf[off : off+4]))
			off += 4

		case ColInt64:
			if off+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			row[i] = int64(bx.U64(buf[off : off+8]))
			off += 8

		case ColBool:
			if off+1 > len(buf) {
				return nil, ErrBadBuffer
			}
			row[i] = buf[off] != 0
			off++

		case ColFloat64:
			if off+8 > len(buf) {
				return nil, ErrBadBuffer
			}
			row[i] = math.Float64frombits(bx.U64(buf[off : off+8]))
			off += 8

		case ColText:
			if off+2 > len(buf) {
				return nil, ErrBadBuffer
			}
			n := int(bx.U16(buf[off : off+2]))
			off += 2
			if off+n > len(buf) {
				return nil, ErrBadBuffer
			}
			row[i] = string(buf[off : off+n])
			off += n

		case ColBytes:
			if off+2 > len(buf) {
				return nil, ErrBadBuffer
			}
			n := int(bx.U16(buf[off : off+2]))
			off += 2
			if off+n > len(buf) {
				return nil, ErrBadBuffer
			}
			cp := make([]byte, n)
			copy(cp, buf[off:off+n])
			row[i] = cp
			off += n

		default:
			return nil, ErrUnsupportedType
		}
	}

	return row, nil
}

func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		return int32(x), true
	case int64:
		return int32(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
