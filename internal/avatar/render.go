// AngelaMos | 2026
// render.go

package avatar

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math/rand/v2"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	Size        = 256
	ContentType = "image/svg+xml"

	gradientLightMin = 70
	gradientLightMax = 90
	gradientStream   = 0x61766174
)

type Variant string

const (
	VariantLetter   Variant = "letter"
	VariantGradient Variant = "gradient"
)

var ErrUnknownVariant = errors.New("unknown avatar variant")

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantLetter:
		return VariantLetter, nil
	case VariantGradient:
		return VariantGradient, nil
	default:
		return "", fmt.Errorf("parse variant %q: %w", s, ErrUnknownVariant)
	}
}

func Render(seed string, v Variant) ([]byte, error) {
	switch v {
	case VariantLetter:
		return GenerateAvatarImage(seed), nil
	case VariantGradient:
		return GenerateGradientAvatarImage(seed), nil
	default:
		return nil, fmt.Errorf("render %q: %w", v, ErrUnknownVariant)
	}
}

// GenerateAvatarImage draws the first character of seed in white on a
// random background that passes the contrast check.
func GenerateAvatarImage(seed string) []byte {
	return letterAvatar(seed, GenerateColor(nil, DefaultColorOptions()))
}

func letterAvatar(seed, bgColor string) []byte {
	var buf bytes.Buffer
	buf.Grow(512)

	fmt.Fprintf(&buf,
		`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`,
		Size, Size,
	)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`, bgColor)
	fmt.Fprintf(&buf,
		`<text x="50%%" y="50%%" dy=".1em" font-family="Arial, sans-serif" `+
			`font-size="%d" fill="#FFFFFF" text-anchor="middle" `+
			`alignment-baseline="middle">`,
		Size/2,
	)
	//nolint:errcheck // bytes.Buffer writes do not fail
	_ = xml.EscapeText(&buf, []byte(firstChar(seed)))
	buf.WriteString(`</text></svg>`)

	return buf.Bytes()
}

func firstChar(seed string) string {
	if seed == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(seed)
	return string(r)
}

// GenerateGradientAvatarImage draws a two-color diagonal gradient whose
// colors depend only on seed.
func GenerateGradientAvatarImage(seed string) []byte {
	hash := seedHash(seed)
	baseHue := hueFromHash(hash)

	//nolint:gosec // G404: deterministic cosmetic sampling
	rng := rand.New(rand.NewPCG(uint64(hash), gradientStream))

	// No text is drawn, so the colors stay light instead of being
	// darkened for contrast.
	from := randomColor(rng, gradientOptions(baseHue, 0))
	to := randomColor(rng, gradientOptions(baseHue, 30))

	return gradientAvatar(from, to)
}

func gradientOptions(baseHue, offset float64) ColorOptions {
	opts := DefaultColorOptions()
	opts.HueMin = baseHue + offset
	opts.HueMax = baseHue + offset + 20
	opts.LightMin = gradientLightMin
	opts.LightMax = gradientLightMax
	return opts
}

func gradientAvatar(from, to string) []byte {
	var buf bytes.Buffer
	buf.Grow(640)

	fmt.Fprintf(&buf,
		`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`,
		Size, Size,
	)
	buf.WriteString(`<defs><linearGradient id="gradient" x1="0%" y1="0%" x2="100%" y2="100%">`)
	fmt.Fprintf(&buf, `<stop offset="0%%" stop-color="%s"/>`, from)
	fmt.Fprintf(&buf, `<stop offset="100%%" stop-color="%s"/>`, to)
	buf.WriteString(`</linearGradient></defs>`)
	fmt.Fprintf(&buf,
		`<rect width="100%%" height="100%%" rx="%g" fill="url(#gradient)"/>`,
		Size*0.2,
	)
	buf.WriteString(`</svg>`)

	return buf.Bytes()
}

// SeedHue maps seed to a base hue in [0,360).
func SeedHue(seed string) int {
	return int(hueFromHash(seedHash(seed)))
}

// seedHash is hash = c + (hash<<5) - hash over UTF-16 code units. Only the
// shifted operand is truncated to 32 bits; the running sum is not.
func seedHash(seed string) int64 {
	var hash int64
	for _, c := range utf16.Encode([]rune(seed)) {
		shifted := int32(uint32(hash)) << 5 //nolint:gosec // G115: 32-bit truncation is part of the hash
		hash = int64(c) + int64(shifted) - hash
	}
	return hash
}

func hueFromHash(hash int64) float64 {
	if hash < 0 {
		hash = -hash
	}
	return float64(hash % 360)
}
