package artwork

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func stripes() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	fills := []color.RGBA{
		{R: 220, G: 40, B: 60, A: 255},
		{R: 40, G: 180, B: 90, A: 255},
		{R: 50, G: 80, B: 230, A: 255},
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, fills[x/10])
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img, err := Decode(encode(t, stripes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 30 {
		t.Errorf("width = %d, want 30", img.Bounds().Dx())
	}

	if _, err := Decode(nil); !errors.Is(err, ErrNoArtwork) {
		t.Errorf("Decode(nil) err = %v, want ErrNoArtwork", err)
	}
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode(garbage) succeeded")
	}
}

func TestFetchFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, encode(t, stripes()), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Fetch(context.Background(), "file://"+path); err != nil {
		t.Errorf("Fetch: %v", err)
	}
	if _, err := Fetch(context.Background(), ""); !errors.Is(err, ErrNoArtwork) {
		t.Errorf("Fetch(\"\") err = %v", err)
	}
}

func TestExtractPalette(t *testing.T) {
	if p := ExtractPalette(nil); p.Primary != DefaultPalette().Primary {
		t.Errorf("nil image palette = %+v", p)
	}

	p := ExtractPalette(stripes())
	if p.Primary == "" || p.Secondary == "" || p.Accent == "" {
		t.Errorf("palette has empty colors: %+v", p)
	}
	if len(p.Gradient) != gradientSteps {
		t.Errorf("gradient len = %d, want %d", len(p.Gradient), gradientSteps)
	}
}

func TestBoost(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b    uint32
		brightness float64
		want       string
	}{
		{"mid tones untouched", 100, 150, 120, 0.6, "#649678"},
		{"dark lifted", 40, 20, 10, 0.2, "#502814"},
		{"black stays black", 0, 0, 0, 0, "#000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boost(tt.r, tt.g, tt.b, tt.brightness); got != tt.want {
				t.Errorf("boost() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRenderHalfBlockArt(t *testing.T) {
	lines := RenderHalfBlockArt(stripes(), 8, 4)
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(lines))
	}
	if RenderHalfBlockArt(nil, 8, 4) != nil {
		t.Error("nil image rendered")
	}
	if RenderHalfBlockArt(stripes(), 2, 4) != nil {
		t.Error("too narrow art rendered")
	}
}
