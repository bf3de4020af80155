// AngelaMos | 2026
// color_test.go

package avatar_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/templates/saas-backend/internal/avatar"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func TestHSLToHex(t *testing.T) {
	tests := []struct {
		name    string
		h, s, l float64
		want    string
	}{
		{"red", 0, 100, 50, "#ff0000"},
		{"green", 120, 100, 50, "#00ff00"},
		{"blue", 240, 100, 50, "#0000ff"},
		{"white", 0, 0, 100, "#ffffff"},
		{"black", 0, 0, 0, "#000000"},
		{"steel blue", 210, 50, 50, "#4080bf"},
		{"full turn wraps", 360, 100, 50, "#ff0000"},
		{"negative hue wraps", -120, 100, 50, "#0000ff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, avatar.HSLToHex(tt.h, tt.s, tt.l))
		})
	}
}

func TestQuickLumaContrastOK(t *testing.T) {
	tests := []struct {
		hex  string
		want bool
	}{
		{"#000000", true},
		{"#0000ff", true},
		{"#ffffff", false},
		{"#ff0000", false},
		{"#00ff00", false},
		{"#fff", false},
		{"red", false},
		{"#gggggg", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			assert.Equal(t, tt.want, avatar.QuickLumaContrastOK(tt.hex))
		})
	}
}

func TestGenerateColor_DarkensUntilReadable(t *testing.T) {
	sampled := avatar.HSLToHex(180, 70, 35)
	assert.False(t, avatar.QuickLumaContrastOK(sampled))

	got := avatar.GenerateColor(fixedRand(0.5), avatar.DefaultColorOptions())

	assert.True(t, avatar.QuickLumaContrastOK(got))
	assert.NotEqual(t, sampled, got)
}

func TestGenerateColor_KeepsReadableSample(t *testing.T) {
	got := avatar.GenerateColor(fixedRand(0), avatar.DarkColorOptions())
	assert.Equal(t, "#000000", got)
}

func TestGenerateColor_FallsBackToBlack(t *testing.T) {
	opts := avatar.DefaultColorOptions()
	opts.LightMin = 90
	opts.LightMax = 100

	assert.Equal(t, "#000000", avatar.GenerateColor(fixedRand(0.5), opts))
}

func TestGenerateColor_AlwaysReadable(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 500 {
		color := avatar.GenerateColor(rng, avatar.DefaultColorOptions())
		assert.Regexp(t, `^#[0-9a-f]{6}$`, color)
		assert.True(t, avatar.QuickLumaContrastOK(color), color)
	}
}

func TestGenerateColor_NilRand(t *testing.T) {
	color := avatar.GenerateColor(nil, avatar.DefaultColorOptions())
	assert.True(t, avatar.QuickLumaContrastOK(color))
}

func TestGenerateRandomDarkColor(t *testing.T) {
	assert.Equal(t, "#000000", avatar.GenerateRandomDarkColor(fixedRand(0), avatar.DarkColorOptions()))
	assert.Regexp(t, `^#[0-9a-f]{6}$`, avatar.GenerateRandomDarkColor(nil, avatar.DarkColorOptions()))
}
