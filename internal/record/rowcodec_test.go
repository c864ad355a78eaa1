package record

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTestSchema() Schema {
	return Schema{
		Cols: []Column{
			{Name: "id32", Type: ColInt32, Nullable: false},
			{Name: "id64", Type: ColInt64, Nullable: false},
			{Name: "active", Type: ColBool, Nullable: false},
			{Name: "score", Type: ColFloat64, Nullable: false},
			{Name: "name", Type: ColText, Nullable: true},
			{Name: "blob", Type: ColBytes, Nullable: true},
		},
	}
}

func TestEncodeDecodeRow_RoundTrip(t *testing.T) {
	schema := makeTestSchema()

	values := Tuple{
		int32(42),
		int64(123456789),
		true,
		3.14159,
		"hello",
		[]byte{0x01, 0x02, 0x03},
	}

	buf, err := EncodeRow(schema, values)
	require.NoError(t, err)
	require.NotEmpty(t, buf)

	row, err := DecodeRow(schema, buf)
	require.NoError(t, err)

	require.Len(t, row, len(values))
	require.Equal(t, int32(42), row[0].(int32))
	require.Equal(t, int64(123456789), row[1].(int64))
	require.True(t, row[2].(bool))
	require.InDelta(t, 3.14159, row[3].(float64), 1e-9)
	require.Equal(t, "hello", row[4].(string))
	require.Equal(t, []byte{0x01, 0x02, 0x03}, row[5].([]byte))
}

func TestEncodeDecodeRow_Nullable(t *testing.T) {
	schema := makeTestSchema()

	values := Tuple{int32(1), int64(2), false, 1.5, nil, nil}

	buf, err := EncodeRow(schema, values)
	require.NoError(t, err)

	row, err := DecodeRow(schema, buf)
	require.NoError(t, err)

	require.Nil(t, row[4])
	require.Nil(t, row[5])
}

func TestEncodeRow_SchemaMismatch(t *testing.T) {
	schema := makeTestSchema()

	t.Run("wrong number of values", func(t *testing.T) {
		_, err := EncodeRow(schema, Tuple{1, 2, 3})
		require.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("non-nullable column is nil", func(t *testing.T) {
		values := Tuple{nil, int64(1), true, 1.0, "ok", []byte("abcd")}
		_, err := EncodeRow(schema, values)
		require.ErrorIs(t, err, ErrNotNullable)
	})

	t.Run("wrong type for column", func(t *testing.T) {
		values := Tuple{"not-int32", int64(1), true, 1.0, "ok", []byte("abcd")}
		_, err := EncodeRow(schema, values)
		require.ErrorIs(t, err, ErrWrongType)
	})
}

func TestEncodeRow_VarTooLong(t *testing.T) {
	schema := Schema{Cols: []Column{{Name: "name", Type: ColText, Nullable: false}}}
	longStr := strings.Repeat("a", math.MaxUint16+1)

	_, err := EncodeRow(schema, Tuple{longStr})
	require.ErrorIs(t, err, ErrVarTooLong)
}

func TestDecodeRow_TruncatedBuffer(t *testing.T) {
	schema := makeTestSchema()
	values := Tuple{int32(42), int64(99), true, 2.71828, "test", []byte{0xAA, 0xBB}}

	buf, err := EncodeRow(schema, values)
	require.NoError(t, err)

	_, err = DecodeRow(schema, buf[:len(buf)-3])
	require.ErrorIs(t, err, ErrBadBuffer)
}

func TestSchema_ProjectAndColumnIndex(t *testing.T) {
	schema := makeTestSchema()

	require.Equal(t, 0, schema.ColumnIndex("id32"))
	require.Equal(t, -1, schema.ColumnIndex("nope"))

	p := schema.Project("name", "id64")
	require.Equal(t, []string{"name", "id64"}, []string{p.Cols[0].Name, p.Cols[1].Name})
}
