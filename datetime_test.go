package confer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatetime(t *testing.T) {
	tests := []struct {
		in   string
		form DatetimeForm
		want string
	}{
		{"1979-05-27T07:32:00Z", OffsetDateTime, "1979-05-27T07:32:00Z"},
		{"1979-05-27T00:32:00.999999-07:00", OffsetDateTime, "1979-05-27T00:32:00.999999-07:00"},
		{"1979-05-27 07:32:00Z", OffsetDateTime, "1979-05-27T07:32:00Z"},
		{"1979-05-27t07:32:00z", OffsetDateTime, "1979-05-27T07:32:00Z"},
		{"1979-05-27T07:32:00", LocalDateTime, "1979-05-27T07:32:00"},
		{"1979-05-27", LocalDate, "1979-05-27"},
		{"07:32:00", LocalTime, "07:32:00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDatetime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.form, d.Form())
			assert.Equal(t, tt.want, d.String())

			again, err := ParseDatetime(d.String())
			require.NoError(t, err)
			assert.True(t, d.Equal(again))
		})
	}
}

func TestParseDatetime_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024/01/01", "25:00:00"} {
		_, err := ParseDatetime(in)
		assert.Error(t, err, in)
	}
	assert.Panics(t, func() { MustParseDatetime("nope") })
}

func TestDatetime_Time(t *testing.T) {
	d := MustParseDatetime("2024-03-01T12:30:00")
	got := d.Time(time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), got)

	offset := NewDatetime(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-01T12:30:00Z", offset.String())
	assert.True(t, offset.Time(nil).Equal(got))
}

func TestDatetime_Text(t *testing.T) {
	var d Datetime
	require.NoError(t, d.UnmarshalText([]byte("2024-01-01")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", string(text))

	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}

func TestDatetime_EqualDifferentForms(t *testing.T) {
	a := MustParseDatetime("2024-01-01")
	b := MustParseDatetime("2024-01-01T00:00:00")
	assert.False(t, a.Equal(b))
}
