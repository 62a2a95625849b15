package calendar

import (
	"fmt"
	"image/color"

	"stayregister/internal/domain/stays"
)

// Color is a palette entry. Stays beyond len(Palette) reuse colors in order.
type Color struct {
	Name string `json:"name"`
	R    uint8  `json:"-"`
	G    uint8  `json:"-"`
	B    uint8  `json:"-"`
}

// Palette is deliberately small; cycling on larger sets is accepted.
var Palette = []Color{
	{Name: "teal", R: 0x2a, G: 0x9d, B: 0x8f},
	{Name: "amber", R: 0xe9, G: 0xc4, B: 0x6a},
	{Name: "coral", R: 0xe7, G: 0x6f, B: 0x51},
	{Name: "indigo", R: 0x45, G: 0x5e, B: 0xb5},
	{Name: "plum", R: 0x9b, G: 0x5d, B: 0xe5},
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Muted blends the color toward white for days outside the viewed month.
func (c Color) Muted() Color {
	blend := func(v uint8) uint8 { return uint8((int(v)*45 + 255*55) / 100) }
	return Color{Name: c.Name + "-muted", R: blend(c.R), G: blend(c.G), B: blend(c.B)}
}

// Assignment maps stays to palette colors by chronological position.
type Assignment struct {
	order  []stays.StayID
	colors map[stays.StayID]Color
}

// AssignColors orders list chronologically and gives the i-th stay
// Palette[i % len(Palette)]. The same input always yields the same colors.
func AssignColors(list []*stays.Stay) Assignment {
	ordered := stays.Chronological(list)
	a := Assignment{
		order:  make([]stays.StayID, 0, len(ordered)),
		colors: make(map[stays.StayID]Color, len(ordered)),
	}
	for _, s := range ordered {
		if s == nil {
			continue
		}
		if _, dup := a.colors[s.ID]; dup {
			continue
		}
		a.colors[s.ID] = Palette[len(a.order)%len(Palette)]
		a.order = append(a.order, s.ID)
	}
	return a
}

func (a Assignment) Color(id stays.StayID) (Color, bool) {
	c, ok := a.colors[id]
	return c, ok
}

// Order lists stay ids in the order colors were handed out.
func (a Assignment) Order() []stays.StayID {
	out := make([]stays.StayID, len(a.order))
	copy(out, a.order)
	return out
}
