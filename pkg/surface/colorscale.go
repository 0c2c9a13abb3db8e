package surface

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type colorStop struct {
	at float64
	c  colorful.Color
}

func rgb255(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

var scales = map[string][]colorStop{
	"electric": {
		{0, rgb255(0, 0, 0)},
		{0.15, rgb255(30, 0, 100)},
		{0.4, rgb255(120, 0, 100)},
		{0.6, rgb255(160, 90, 0)},
		{0.8, rgb255(230, 200, 0)},
		{1, rgb255(255, 250, 220)},
	},
	"greys": {
		{0, rgb255(0, 0, 0)},
		{1, rgb255(255, 255, 255)},
	},
}

// ScaleColor maps v in [cmin, cmax] onto the named colour scale and returns
// a hex colour. Unknown scales fall back to Electric; values outside the
// range are clamped and non-finite values map to the low end.
func ScaleColor(scale string, v, cmin, cmax float64) string {
	stops, ok := scales[strings.ToLower(scale)]
	if !ok {
		stops = scales["electric"]
	}
	t := 0.0
	if span := cmax - cmin; span > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		t = math.Min(1, math.Max(0, (v-cmin)/span))
	}
	for i := 1; i < len(stops); i++ {
		lo, hi := stops[i-1], stops[i]
		if t <= hi.at {
			f := (t - lo.at) / (hi.at - lo.at)
			return lo.c.BlendRgb(hi.c, f).Clamped().Hex()
		}
	}
	return stops[len(stops)-1].c.Hex()
}

// PointColor returns the colour of point i of t.
func (t Trace) PointColor(i int) string {
	if i >= 0 && i < len(t.ColorValues) {
		return ScaleColor(t.ColorScale, t.ColorValues[i], t.CMin, t.CMax)
	}
	if t.Color != "" {
		return t.Color
	}
	return ColorForeground
}

// ParseHex converts a hex colour to 8-bit channels. Malformed input yields
// white.
func ParseHex(s string) (r, g, b uint8) {
	c, err := colorful.Hex(s)
	if err != nil {
		return 0xff, 0xff, 0xff
	}
	return c.RGB255()
}
