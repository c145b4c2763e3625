// Package palette assigns each branch a stable pastel color so that branches
// keep their look across refreshes.
package palette

import "fmt"

// RGBA is a packed 0xAARRGGBB color.
type RGBA uint32

const (
	threshold = 0xB0
	alpha     = 0xAA
)

// Color folds the bytes of name, as unsigned values, into three channels and
// maps each channel into the pastel range [0xB0, 0xFF). It is a pure function
// of name.
func Color(name string) RGBA {
	r, g, b := uint32(0xFF), uint32(0xFF), uint32(0xFF)

	for i := 0; i < len(name); i++ {
		c := uint32(name[i])
		r ^= c
		g ^= c << 4
		b ^= c << 8
	}

	r = r%(0xFF-threshold) + threshold
	g = g%(0xFF-threshold) + threshold
	b = b%(0xFF-threshold) + threshold

	return RGBA(alpha<<24 | r<<16 | g<<8 | b)
}

func (c RGBA) R() uint8 { return uint8(c >> 16) }
func (c RGBA) G() uint8 { return uint8(c >> 8) }
func (c RGBA) B() uint8 { return uint8(c) }
func (c RGBA) A() uint8 { return uint8(c >> 24) }

// Hex renders the color as #RRGGBBAA, the form CSS expects.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R(), c.G(), c.B(), c.A())
}

// MarshalText lets views serialize colors as hex strings.
func (c RGBA) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}
