package manager

import (
	"fmt"
	"strings"
)

// Genre classifies a value by audience.
type Genre uint8

const (
	GenreBasic Genre = iota
	GenreUser
	GenreConfig
	GenreSystem
)

var genreNames = [...]string{"Basic", "User", "Config", "System"}

func (g Genre) String() string {
	if int(g) < len(genreNames) {
		return genreNames[g]
	}
	return fmt.Sprintf("Genre(%d)", uint8(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Genre) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Genre) UnmarshalText(b []byte) error {
	v, err := ParseGenre(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ParseGenre parses a genre name, case-insensitive.
func ParseGenre(s string) (Genre, error) {
	for i, name := range genreNames {
		if strings.EqualFold(s, name) {
			return Genre(i), nil
		}
	}
	return 0, fmt.Errorf("unknown genre %q", s)
}

// ValueType is the data type of a value.
type ValueType uint8

const (
	TypeBool ValueType = iota
	TypeByte
	TypeDecimal
	TypeInt
	TypeList
	TypeSchedule
	TypeShort
	TypeString
	TypeButton
	TypeRaw
)

var typeNames = [...]string{"Bool", "Byte", "Decimal", "Int", "List", "Schedule", "Short", "String", "Button", "Raw"}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ValueType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ValueType) UnmarshalText(b []byte) error {
	v, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseValueType parses a value type name, case-insensitive.
func ParseValueType(s string) (ValueType, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return ValueType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}
