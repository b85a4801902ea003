// Package channel names the colour channels that carry section IDs.
package channel

import (
	"fmt"
	"image/color"
	"strings"
)

// Channel selects one component of an RGBA colour.
type Channel int

const (
	R Channel = iota
	G
	B
)

// All lists the section channels in order.
var All = []Channel{R, G, B}

func (c Channel) String() string {
	switch c {
	case R:
		return "r"
	case G:
		return "g"
	case B:
		return "b"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Valid reports whether c is R, G or B.
func (c Channel) Valid() bool {
	return c >= R && c <= B
}

// Parse accepts "r", "g", "b" and their upper-case or long forms.
func Parse(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "red":
		return R, nil
	case "g", "green":
		return G, nil
	case "b", "blue":
		return B, nil
	}
	return R, fmt.Errorf("channel: unknown channel %q", s)
}

// Value returns the component of col selected by c. Invalid channels read 0.
func (c Channel) Value(col color.RGBA) uint8 {
	switch c {
	case R:
		return col.R
	case G:
		return col.G
	case B:
		return col.B
	}
	return 0
}

// Set writes v into the component of col selected by c.
func (c Channel) Set(col *color.RGBA, v uint8) {
	switch c {
	case R:
		col.R = v
	case G:
		col.G = v
	case B:
		col.B = v
	}
}
