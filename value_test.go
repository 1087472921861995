package confer

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{String("x"), "string"},
		{Integer(1), "integer"},
		{Float(1.5), "float"},
		{Boolean(true), "boolean"},
		{MustParseDatetime("1979-05-27"), "datetime"},
		{Array{}, "array"},
		{Table{}, "table"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.Kind().String())
		assert.Equal(t, tt.want, describe(tt.v))
	}
	assert.Equal(t, "nothing", describe(nil))
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestTable_Keys(t *testing.T) {
	tbl := Table{"b": Integer(1), "a": Integer(2), "c": Integer(3)}
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Keys())
	assert.Empty(t, Table{}.Keys())
}

func TestClone_Deep(t *testing.T) {
	orig := Table{
		"list": Array{Integer(1), Array{String("nested")}},
		"sub":  Table{"k": Boolean(true)},
	}

	cp := Clone(orig).(Table)
	cp["list"].(Array)[0] = Integer(99)
	cp["list"].(Array)[1].(Array)[0] = String("changed")
	cp["sub"].(Table)["k"] = Boolean(false)

	assert.Equal(t, Integer(1), orig["list"].(Array)[0])
	assert.Equal(t, String("nested"), orig["list"].(Array)[1].(Array)[0])
	assert.Equal(t, Boolean(true), orig["sub"].(Table)["k"])
}

func TestFromAny(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := map[string]any{
		"s":   "text",
		"i":   int64(7),
		"f":   2.5,
		"b":   true,
		"t":   when,
		"ld":  toml.LocalDate{Year: 2024, Month: 1, Day: 2},
		"arr": []any{int64(1), "two"},
		"tbl": map[string]any{"x": int64(1)},
	}

	tbl, err := tableFromMap(raw)
	require.NoError(t, err)

	assert.Equal(t, String("text"), tbl["s"])
	assert.Equal(t, Integer(7), tbl["i"])
	assert.Equal(t, Float(2.5), tbl["f"])
	assert.Equal(t, Boolean(true), tbl["b"])
	assert.Equal(t, OffsetDateTime, tbl["t"].(Datetime).Form())
	assert.Equal(t, "2024-01-02", tbl["ld"].(Datetime).String())
	assert.Equal(t, Array{Integer(1), String("two")}, tbl["arr"])
	assert.Equal(t, Table{"x": Integer(1)}, tbl["tbl"])

	back := tbl.toMap()
	assert.Equal(t, int64(7), back["i"])
	assert.Equal(t, []any{int64(1), "two"}, back["arr"])
	assert.Equal(t, toml.LocalDate{Year: 2024, Month: 1, Day: 2}, back["ld"])
}

func TestFromAny_Unsupported(t *testing.T) {
	_, err := fromAny(struct{}{})
	assert.Error(t, err)

	_, err = tableFromMap(map[string]any{"bad": []any{int64(1), complex(1, 2)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		lit  string
		want Value
	}{
		{"8080", Integer(8080)},
		{"-1.5", Float(-1.5)},
		{"true", Boolean(true)},
		{`"text"`, String("text")},
		{"'raw'", String("raw")},
		{"[1, 2]", Array{Integer(1), Integer(2)}},
		{"{ a = 1 }", Table{"a": Integer(1)}},
	}
	for _, tt := range tests {
		got, err := ParseLiteral(tt.lit)
		require.NoError(t, err, tt.lit)
		assert.Equal(t, tt.want, got, tt.lit)
	}

	d, err := ParseLiteral("1979-05-27")
	require.NoError(t, err)
	assert.Equal(t, "1979-05-27", d.(Datetime).String())

	for _, bad := range []string{"", "bare words", "1\nw = 2", "[1,"} {
		_, err := ParseLiteral(bad)
		assert.Error(t, err, bad)
	}
}

func TestNative(t *testing.T) {
	assert.Nil(t, Native(nil))
	assert.Equal(t, map[string]any{"a": []any{int64(1)}}, Native(Table{"a": Array{Integer(1)}}))

	v, err := FromNative(map[string]any{"b": true})
	require.NoError(t, err)
	assert.Equal(t, Table{"b": Boolean(true)}, v)
}
