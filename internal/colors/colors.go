// Package colors blends the editor palette. Interpolation happens in HCL
// space so gradients between album colors stay perceptually even.
package colors

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const fallbackHex = "#FFFFFF"

// Parse reads a #RRGGBB color. Malformed input yields white.
func Parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallbackHex)
	}
	return c
}

// Gradient returns steps colors from start to end. Very different endpoints
// get eased so the middle of the ramp does not jump.
func Gradient(start, end string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	from, to := Parse(start), Parse(end)
	ease := from.DistanceCIEDE2000(to) > 0.3

	out := make([]string, steps)
	for i := range out {
		t := float64(i) / float64(steps-1)
		if ease {
			t = smoothStep(smoothStep(t))
		}
		out[i] = from.BlendHcl(to, t).Clamped().Hex()
	}
	return out
}

// Roughness is the largest perceptual step between neighbours of a gradient
// from start to end. Lower is smoother.
func Roughness(start, end string, steps int) float64 {
	ramp := Gradient(start, end, steps)

	worst := 0.0
	for i := 1; i < len(ramp); i++ {
		if d := Parse(ramp[i-1]).DistanceCIEDE2000(Parse(ramp[i])); d > worst {
			worst = d
		}
	}
	return worst * 100
}

// Lightness is the perceived lightness of hex on a 0..100 scale.
func Lightness(hex string) float64 {
	_, _, l := Parse(hex).Hcl()
	return l * 100
}

func Blend(a, b string, t float64) string {
	return Parse(a).BlendHcl(Parse(b), clamp01(t)).Clamped().Hex()
}

// Glow brightens hex by intensity (0..1).
func Glow(hex string, intensity float64) string {
	h, c, l := Parse(hex).Hcl()
	l += clamp01(intensity) * 0.25
	return colorful.Hcl(h, c, clamp01(l)).Clamped().Hex()
}

// Dim scales the lightness of hex by factor.
func Dim(hex string, factor float64) string {
	h, c, l := Parse(hex).Hcl()
	return colorful.Hcl(h, c, clamp01(l*factor)).Clamped().Hex()
}

// RenderGradientText colors each rune of text along gradient.
func RenderGradientText(text string, gradient []string, bold bool) string {
	if text == "" {
		return ""
	}
	if len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		idx := 0
		if len(runes) > 1 {
			idx = i * (len(gradient) - 1) / (len(runes) - 1)
		}

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[idx])).Bold(bold)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

func smoothStep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
