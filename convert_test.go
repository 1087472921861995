package confer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsInt_Range(t *testing.T) {
	_, err := AsInt[uint8]("App", "port", Integer(300))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValueParse))
	assert.Contains(t, err.Error(), "uint8")
	assert.Contains(t, err.Error(), "300")

	n, err := AsInt[uint16]("App", "port", Integer(300))
	require.NoError(t, err)
	assert.Equal(t, uint16(300), n)
}

func TestAsInt_Widths(t *testing.T) {
	_, err := AsInt[int8]("s", "k", Integer(-129))
	assert.ErrorIs(t, err, ErrValueParse)

	v8, err := AsInt[int8]("s", "k", Integer(-128))
	require.NoError(t, err)
	assert.Equal(t, int8(-128), v8)

	_, err = AsInt[uint32]("s", "k", Integer(-1))
	assert.ErrorIs(t, err, ErrValueParse)

	_, err = AsInt[int32]("s", "k", Integer(math.MaxInt32+1))
	assert.ErrorIs(t, err, ErrValueParse)

	u64, err := AsInt[uint64]("s", "k", Integer(math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxInt64), u64)

	_, err = AsInt[int]("s", "k", String("1"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAsFloat_Upcast(t *testing.T) {
	f, err := AsFloat("s", "k", Integer(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = AsFloat("s", "k", Boolean(true))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	fs, err := AsFloatSlice("s", "k", Array{Integer(1), Float(2.5)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, fs)
}

func TestAsFloat32(t *testing.T) {
	f, err := AsFloat32("s", "k", Float(1.5))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	_, err = AsFloat32("s", "k", Float(math.Inf(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")

	_, err = AsFloat32("s", "k", Float(math.MaxFloat64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float32")
}

func TestAsDatetime_FromString(t *testing.T) {
	d, err := AsDatetime("s", "k", String("2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, OffsetDateTime, d.Form())

	_, err = AsDatetime("s", "k", String("not a date"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueParse)
	assert.Contains(t, err.Error(), "failed to parse datetime")

	_, err = AsDatetime("s", "k", Integer(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAsScalar_Mismatch(t *testing.T) {
	_, err := AsString("App", "host", Integer(1))
	require.Error(t, err)

	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "string", tm.Expected)
	assert.Equal(t, "integer", tm.Found)
	assert.Equal(t, "expected string at App.host but found integer", err.Error())

	_, err = AsBoolean("s", "k", String("true"))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, err = AsInteger("s", "k", Float(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAsSlice_ElementErrors(t *testing.T) {
	_, err := AsStringSlice("s", "names", Array{String("a"), Integer(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueParse)
	assert.Equal(t, "invalid value at s.names: expected array elements of type string, found integer (at index 1)", err.Error())

	_, err = AsIntSlice[uint8]("s", "ports", Array{Integer(1), Integer(2), Integer(256)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValueParse)
	assert.Contains(t, err.Error(), "out of range for uint8 (at index 2)")

	_, err = AsDatetimeSlice("s", "when", Array{String("bad")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(at index 0)")

	_, err = AsBooleanSlice("s", "flags", Boolean(true))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAsSlice_Success(t *testing.T) {
	ss, err := AsStringSlice("s", "k", Array{String("a"), String("b")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ss)

	is, err := AsIntegerSlice("s", "k", Array{})
	require.NoError(t, err)
	assert.Empty(t, is)

	f32, err := AsFloat32Slice("s", "k", Array{Integer(2)})
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, f32)
}

func TestIntegerOf(t *testing.T) {
	n, err := IntegerOf("s", "k", uint64(math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, Integer(math.MaxInt64), n)

	_, err = IntegerOf("s", "k", uint64(math.MaxInt64)+1)
	assert.ErrorIs(t, err, ErrValueParse)

	n, err = IntegerOf("s", "k", int8(-5))
	require.NoError(t, err)
	assert.Equal(t, Integer(-5), n)
}
