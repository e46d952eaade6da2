// Package terminal detects optional terminal features and restores the
// terminal after the editor exits.
package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

const kittyEnv = "LYRICSYNC_KITTY_GRAPHICS"

type Capabilities struct {
	KittyGraphics bool
	TermProgram   string
}

// DetectCapabilities reads the environment. Kitty graphics are opt-in.
func DetectCapabilities() *Capabilities {
	return detect(os.Getenv)
}

func detect(getenv func(string) string) *Capabilities {
	caps := &Capabilities{TermProgram: getenv("TERM_PROGRAM")}

	switch strings.ToLower(getenv(kittyEnv)) {
	case "1", "true", "yes", "on":
		caps.KittyGraphics = true
		if caps.TermProgram == "" {
			caps.TermProgram = "kitty"
		}
	}
	return caps
}

// resetSequence shows the cursor, clears attributes, leaves the alternate
// screen and turns off every mouse reporting mode the editor enables.
const resetSequence = "\033[?25h\033[0m\033[?1049l\033[?1000l\033[?1002l\033[?1003l\033[?1006l"

func Reset() {
	ResetTo(os.Stdout)
	os.Stdout.Sync()
}

func ResetTo(w io.Writer) {
	io.WriteString(w, resetSequence)
}

// EncodeImageForKitty renders img for a cols x rows cell box using the kitty
// graphics protocol, keeping its aspect ratio.
func EncodeImageForKitty(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}

	w, h := float64(cols*10), float64(rows*20)
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())
	if aspect > w/h {
		h = w / aspect
	} else {
		w = h * aspect
	}

	resized := resize.Resize(uint(max(w, 10)), uint(max(h, 10)), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	const chunkSize = 4096
	var out strings.Builder
	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		more := 1
		if end == len(encoded) {
			more = 0
		}

		if i == 0 {
			fmt.Fprintf(&out, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, encoded[i:end])
		} else {
			fmt.Fprintf(&out, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
		}
	}
	return out.String()
}
