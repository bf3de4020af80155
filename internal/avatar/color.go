// AngelaMos | 2026
// color.go

package avatar

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

const (
	minContrastRatio = 4.5
	searchPrecision  = 0.1
)

// ColorOptions bounds the HSL slice a color is sampled from.
// Hue is in degrees, saturation and lightness in percent.
type ColorOptions struct {
	HueMin   float64
	HueMax   float64
	SatMin   float64
	SatMax   float64
	LightMin float64
	LightMax float64
}

func DefaultColorOptions() ColorOptions {
	return ColorOptions{
		HueMin:   0,
		HueMax:   360,
		SatMin:   40,
		SatMax:   100,
		LightMin: 0,
		LightMax: 70,
	}
}

func DarkColorOptions() ColorOptions {
	opts := DefaultColorOptions()
	opts.LightMax = 40
	return opts
}

// Rand is the subset of *rand.Rand the generators draw from.
// A nil Rand uses the process-wide source.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 {
	//nolint:gosec // G404: colors are cosmetic
	return rand.Float64()
}

func orGlobal(rng Rand) Rand {
	if rng == nil {
		return globalRand{}
	}
	return rng
}

// HSLToHex converts h ∈ [0,360), s,l ∈ [0,100] to "#rrggbb".
// Hues outside the range are wrapped.
func HSLToHex(h, s, l float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s /= 100
	l /= 100

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return fmt.Sprintf("#%02x%02x%02x",
		toChannel(r+m),
		toChannel(g+m),
		toChannel(b+m),
	)
}

func toChannel(v float64) uint8 {
	n := math.Round(v * 255)
	if math.IsNaN(n) || n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// QuickLumaContrastOK approximates a WCAG 4.5:1 contrast check against
// white text using BT.601 luma.
func QuickLumaContrastOK(hex string) bool {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return false
	}

	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return (255+0.05)/(y+0.05) >= minContrastRatio
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}

	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

func sample(rng Rand, opts ColorOptions) (h, s, l float64) {
	rng = orGlobal(rng)
	h = opts.HueMin + rng.Float64()*(opts.HueMax-opts.HueMin)
	s = opts.SatMin + rng.Float64()*(opts.SatMax-opts.SatMin)
	l = opts.LightMin + rng.Float64()*(opts.LightMax-opts.LightMin)
	return h, s, l
}

func GenerateRandomDarkColor(rng Rand, opts ColorOptions) string {
	return randomColor(rng, opts)
}

func randomColor(rng Rand, opts ColorOptions) string {
	return HSLToHex(sample(rng, opts))
}

// GenerateColor samples a color from opts and darkens it until white text
// on top of it passes QuickLumaContrastOK.
func GenerateColor(rng Rand, opts ColorOptions) string {
	h, s, l := sample(rng, opts)

	color := HSLToHex(h, s, l)
	if QuickLumaContrastOK(color) {
		return color
	}

	low, high := opts.LightMin, l
	for high-low > searchPrecision {
		mid := (low + high) / 2
		if QuickLumaContrastOK(HSLToHex(h, s, mid)) {
			low = mid
		} else {
			high = mid
		}
	}

	color = HSLToHex(h, s, low)
	if !QuickLumaContrastOK(color) {
		// LightMin itself was too light; black always passes.
		color = HSLToHex(h, s, 0)
	}

	return color
}
