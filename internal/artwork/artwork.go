// Package artwork turns cover art into the editor's color palette and a small
// half-block thumbnail.
package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"karolbroda.com/lyricsync/internal/colors"
)

const (
	gradientSteps = 20
	fetchTimeout  = 5 * time.Second
	dimColor      = "#6272A4"
)

var ErrNoArtwork = errors.New("no artwork")

type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       dimColor,
		Gradient:  colors.Gradient("#8BA4E8", "#E8A4C8", gradientSteps),
	}
}

// Decode reads an embedded cover image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrNoArtwork
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

// Fetch loads the image an MPRIS artUrl points at, file:// or http(s).
func Fetch(ctx context.Context, artURL string) (image.Image, error) {
	if artURL == "" {
		return nil, ErrNoArtwork
	}

	if path, ok := strings.CutPrefix(artURL, "file://"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		return Decode(data)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type swatch struct {
	r, g, b    uint32
	saturation float64
	brightness float64
}

func (s swatch) same(o swatch) bool {
	return s.r == o.r && s.g == o.g && s.b == o.b
}

func (s swatch) hex() string {
	return boost(s.r, s.g, s.b, s.brightness)
}

func newSwatch(item prominentcolor.ColorItem) swatch {
	r, g, b := float64(item.Color.R)/255, float64(item.Color.G)/255, float64(item.Color.B)/255
	hi := math.Max(math.Max(r, g), b)
	lo := math.Min(math.Min(r, g), b)

	sat := 0.0
	if hi > 0 {
		sat = (hi - lo) / hi
	}
	return swatch{r: item.Color.R, g: item.Color.G, b: item.Color.B, saturation: sat, brightness: hi}
}

// ExtractPalette picks three distinct, reasonably saturated colors from img
// and the smoothest gradient between them. A nil or flat image gives the
// default palette.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	swatches := make([]swatch, len(items))
	for i, item := range items {
		swatches[i] = newSwatch(item)
	}

	var primary swatch
	best := -1.0
	for _, s := range swatches {
		score := s.saturation * (1 - math.Abs(s.brightness-0.6))
		if score > best && s.brightness > 0.3 && s.saturation > 0.2 {
			best, primary = score, s
		}
	}

	secondary := pick(swatches, 0.15, 0.3, primary)
	accent := pick(swatches, 0.1, 0.25, primary, secondary)

	// brightest first, darkest second
	picked := []swatch{primary, secondary, accent}
	for i := range picked {
		for j := i + 1; j < len(picked); j++ {
			if picked[i].brightness < picked[j].brightness {
				picked[i], picked[j] = picked[j], picked[i]
			}
		}
	}

	p := &Palette{
		Primary:   picked[0].hex(),
		Accent:    picked[1].hex(),
		Secondary: picked[2].hex(),
		Dim:       dimColor,
	}
	start, end := smoothestPair(p.Primary, p.Secondary, p.Accent)
	p.Gradient = colors.Gradient(start, end, gradientSteps)
	return p
}

func pick(swatches []swatch, minSat, minBright float64, exclude ...swatch) swatch {
	for _, s := range swatches {
		taken := false
		for _, e := range exclude {
			if s.same(e) {
				taken = true
				break
			}
		}
		if !taken && s.saturation > minSat && s.brightness > minBright {
			return s
		}
	}
	return swatch{}
}

// smoothestPair returns the ordered pair of colors with the least rough
// gradient. Near ties go to the pair that starts lighter.
func smoothestPair(a, b, c string) (string, string) {
	pairs := [][2]string{{a, b}, {a, c}, {b, a}, {b, c}, {c, a}, {c, b}}
	rough := make([]float64, len(pairs))
	for i, p := range pairs {
		rough[i] = colors.Roughness(p[0], p[1], gradientSteps)
	}

	best := 0
	for i := 1; i < len(pairs); i++ {
		if rough[i] < rough[best] {
			best = i
		}
	}
	for i := range pairs {
		if i != best && rough[i]-rough[best] < 5 && colors.Lightness(pairs[i][0]) > colors.Lightness(pairs[best][0]) {
			best = i
		}
	}
	return pairs[best][0], pairs[best][1]
}

// boost lifts dark colors and tames very bright ones so text stays readable.
func boost(r, g, b uint32, brightness float64) string {
	fr, fg, fb := float64(r), float64(g), float64(b)

	if brightness > 0 && brightness < 0.4 {
		f := math.Min(0.4/brightness, 2.5)
		fr, fg, fb = fr*f, fg*f, fb*f
	}
	if brightness > 0.85 {
		avg := (fr + fg + fb) / 3
		fr = avg + (fr-avg)*0.7
		fg = avg + (fg-avg)*0.7
		fb = avg + (fb-avg)*0.7
	}

	return fmt.Sprintf("#%02X%02X%02X", channel(fr), channel(fg), channel(fb))
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, v)))
}

// RenderHalfBlockArt draws img in width x height cells, two pixels per cell.
func RenderHalfBlockArt(img image.Image, width, height int) []string {
	if img == nil || width < 4 || height < 2 {
		return nil
	}

	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, height)
	for y := 0; y < height; y++ {
		var line strings.Builder
		for x := 0; x < bounds.Dx(); x++ {
			top := resized.At(bounds.Min.X+x, bounds.Min.Y+y*2)
			bottom := top
			if y*2+1 < bounds.Dy() {
				bottom = resized.At(bounds.Min.X+x, bounds.Min.Y+y*2+1)
			}

			tr, tg, tb, ta := top.RGBA()
			br, bg, bb, ba := bottom.RGBA()
			if ta>>8 < 128 && ba>>8 < 128 {
				line.WriteByte(' ')
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", tr>>8, tg>>8, tb>>8))).
				Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", br>>8, bg>>8, bb>>8)))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}
	return lines
}
