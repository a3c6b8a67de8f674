package schedule

import "math/rand/v2"

// FallbackColor is used for entries created without a color.
const FallbackColor = "#00a9ff"

// DefaultColors is the fixed set of course colors.
var DefaultColors = []string{
	"#ff5f4a",
	"#b52310",
	"#f7b32a",
	"#dba100",
	"#b3c42f",
	"#6bd63a",
	"#3ead0a",
	"#34d17d",
	"#009144",
	"#38d1cc",
	"#03638c",
	"#2a2e82",
	"#491f87",
	"#8f1088",
}

// Shuffle returns a shuffled copy of colors. The input is not modified.
func Shuffle(colors []string, r *rand.Rand) []string {
	out := make([]string, len(colors))
	copy(out, colors)
	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}
	shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Palette hands out colors from a fixed order, one per course. Once every
// color has been used it starts over from the front.
type Palette struct {
	order []string
	used  int
}

func NewPalette(order []string) *Palette {
	return &Palette{order: order}
}

// Next returns the next color, or FallbackColor for an empty palette.
func (p *Palette) Next() string {
	if len(p.order) == 0 {
		return FallbackColor
	}
	c := p.order[p.used%len(p.order)]
	p.used++
	return c
}

// Reset makes the next draw return the front color again.
func (p *Palette) Reset() {
	p.used = 0
}

// Remaining returns the colors not yet drawn in the current cycle.
func (p *Palette) Remaining() []string {
	if len(p.order) == 0 {
		return nil
	}
	start := p.used % len(p.order)
	if p.used > 0 && start == 0 {
		return nil
	}
	out := make([]string, len(p.order)-start)
	copy(out, p.order[start:])
	return out
}

// Order returns the full palette order.
func (p *Palette) Order() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Used returns how many colors have been drawn since the last reset.
func (p *Palette) Used() int {
	return p.used
}
