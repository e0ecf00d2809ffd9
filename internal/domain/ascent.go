package domain

import "fmt"

// AscentType is the style in which a route was climbed, from hardest style to plain attempt.
type AscentType int

const (
	OnSight AscentType = iota + 1
	Flash
	Redpoint
	Pinkpoint
	TopRope
	AutoBelay
	Attempt
)

// AscentTypes lists every ascent type in effort order.
var AscentTypes = []AscentType{OnSight, Flash, Redpoint, Pinkpoint, TopRope, AutoBelay, Attempt}

// String returns the wire name of the ascent type.
func (t AscentType) String() string {
	switch t {
	case OnSight:
		return "OS"
	case Flash:
		return "FLASH"
	case Redpoint:
		return "RP"
	case Pinkpoint:
		return "PP"
	case TopRope:
		return "TOPROPE"
	case AutoBelay:
		return "AUTOBELAY"
	case Attempt:
		return "TRY"
	default:
		return fmt.Sprintf("AscentType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared ascent types.
func (t AscentType) Valid() bool {
	return t >= OnSight && t <= Attempt
}

// Completed reports whether the ascent topped the route. Attempts do not count
// towards hardest-grade or grade-distribution statistics.
func (t AscentType) Completed() bool {
	return t != Attempt
}

// ParseAscentType parses a wire name such as "RP".
func ParseAscentType(s string) (AscentType, error) {
	for _, t := range AscentTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAscentType, s)
}

// MarshalText implements encoding.TextMarshaler
func (t AscentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAscentType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *AscentType) UnmarshalText(text []byte) error {
	parsed, err := ParseAscentType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
