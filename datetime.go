package confer

import (
	"fmt"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DatetimeForm identifies which of the four TOML timestamp shapes a
// Datetime holds.
type DatetimeForm uint8

const (
	// OffsetDateTime is a full timestamp with a UTC offset.
	OffsetDateTime DatetimeForm = iota
	// LocalDateTime is a date and time without an offset.
	LocalDateTime
	// LocalDate is a calendar date only.
	LocalDate
	// LocalTime is a time of day only.
	LocalTime
)

// String returns the form name.
func (f DatetimeForm) String() string {
	switch f {
	case OffsetDateTime:
		return "offset-datetime"
	case LocalDateTime:
		return "local-datetime"
	case LocalDate:
		return "local-date"
	case LocalTime:
		return "local-time"
	default:
		return "unknown"
	}
}

// Datetime is a calendar timestamp value. It is opaque apart from its text
// form; use ParseDatetime and String to move between the two.
type Datetime struct {
	form   DatetimeForm
	offset time.Time
	local  toml.LocalDateTime
}

// Kind implements Value.
func (Datetime) Kind() Kind { return KindDatetime }
func (Datetime) value()     {}

// NewDatetime returns an offset date-time value.
func NewDatetime(t time.Time) Datetime {
	return Datetime{form: OffsetDateTime, offset: t}
}

// NewLocalDateTime returns a local date-time value.
func NewLocalDateTime(v toml.LocalDateTime) Datetime {
	return Datetime{form: LocalDateTime, local: v}
}

// NewLocalDate returns a local date value.
func NewLocalDate(v toml.LocalDate) Datetime {
	return Datetime{form: LocalDate, local: toml.LocalDateTime{LocalDate: v}}
}

// NewLocalTime returns a local time value.
func NewLocalTime(v toml.LocalTime) Datetime {
	return Datetime{form: LocalTime, local: toml.LocalDateTime{LocalTime: v}}
}

// ParseDatetime parses any of the TOML timestamp forms. A space or a
// lowercase "t" may separate date and time, as TOML allows.
func ParseDatetime(s string) (Datetime, error) {
	text := strings.TrimSpace(s)
	norm := strings.ToUpper(text)
	if len(norm) > 10 && norm[10] == ' ' {
		norm = norm[:10] + "T" + norm[11:]
	}

	if t, err := time.Parse(time.RFC3339Nano, norm); err == nil {
		return NewDatetime(t), nil
	}

	var ldt toml.LocalDateTime
	if err := ldt.UnmarshalText([]byte(norm)); err == nil {
		return NewLocalDateTime(ldt), nil
	}

	var ld toml.LocalDate
	if err := ld.UnmarshalText([]byte(norm)); err == nil {
		return NewLocalDate(ld), nil
	}

	var lt toml.LocalTime
	if err := lt.UnmarshalText([]byte(norm)); err == nil {
		return NewLocalTime(lt), nil
	}

	return Datetime{}, fmt.Errorf("invalid datetime %q", s)
}

// MustParseDatetime is like ParseDatetime but panics on error.
// Useful for literals in tests and package-level defaults.
func MustParseDatetime(s string) Datetime {
	d, err := ParseDatetime(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Form reports which timestamp shape d holds.
func (d Datetime) Form() DatetimeForm { return d.form }

// String returns the TOML text form of d.
func (d Datetime) String() string {
	switch d.form {
	case OffsetDateTime:
		return d.offset.Format(time.RFC3339Nano)
	case LocalDateTime:
		return d.local.String()
	case LocalDate:
		return d.local.LocalDate.String()
	case LocalTime:
		return d.local.LocalTime.String()
	default:
		return ""
	}
}

// Time converts d to a time.Time. Local forms are interpreted in loc;
// a local time is placed on the zero date.
func (d Datetime) Time(loc *time.Location) time.Time {
	if d.form == OffsetDateTime {
		return d.offset
	}
	if loc == nil {
		loc = time.UTC
	}
	ld, lt := d.local.LocalDate, d.local.LocalTime
	if d.form == LocalTime {
		ld = toml.LocalDate{Year: 0, Month: 1, Day: 1}
	}
	return time.Date(ld.Year, time.Month(ld.Month), ld.Day, lt.Hour, lt.Minute, lt.Second, lt.Nanosecond, loc)
}

// Equal reports whether d and o hold the same form and instant.
func (d Datetime) Equal(o Datetime) bool {
	if d.form != o.form {
		return false
	}
	if d.form == OffsetDateTime {
		return d.offset.Equal(o.offset)
	}
	return d.String() == o.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Datetime) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Datetime) UnmarshalText(b []byte) error {
	parsed, err := ParseDatetime(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// raw returns the representation the TOML encoder writes natively.
func (d Datetime) raw() any {
	switch d.form {
	case LocalDateTime:
		return d.local
	case LocalDate:
		return d.local.LocalDate
	case LocalTime:
		return d.local.LocalTime
	default:
		return d.offset
	}
}
