package sandbox

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"layersmith/internal/psd"
)

const (
	maxTextSize = 2048
	maxOffset   = 1 << 20
)

// layerSpec is one layer as serialized by the prelude, bottom to top.
type layerSpec struct {
	Name     string  `json:"name"`
	Text     bool    `json:"text"`
	Contents string  `json:"contents"`
	Size     float64 `json:"size"`
	Color    string  `json:"color"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error
)

// faceCache holds Go Regular faces by pixel size. Faces are not safe for
// concurrent use, so each engine owns its cache.
type faceCache map[int]font.Face

func (c faceCache) face(size int) (font.Face, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse font: %w", fontErr)
	}
	if face, ok := c[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(fontData, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %dpx: %w", size, err)
	}
	c[size] = face
	return face, nil
}

// compose renders every layer onto the base image and encodes the result.
// The bottom non-text layer carries the opened image; other non-text layers
// are empty.
func compose(base *image.NRGBA, specs []layerSpec, faces faceCache) ([]byte, error) {
	canvas := base.Bounds()
	composite := image.NewNRGBA(canvas)
	draw.Copy(composite, image.Point{}, base, canvas, draw.Src, nil)

	if len(specs) == 0 {
		specs = []layerSpec{{Name: "Background"}}
	}
	layers := make([]psd.Layer, 0, len(specs))
	for i, spec := range specs {
		if !spec.Text {
			img := image.NewNRGBA(image.Rectangle{})
			if i == 0 {
				img = base
			}
			layers = append(layers, psd.Layer{Name: spec.Name, Image: img})
			continue
		}
		img, err := rasterize(spec, canvas, faces)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", spec.Name, err)
		}
		draw.Draw(composite, img.Bounds(), img, img.Bounds().Min, draw.Over)
		layers = append(layers, psd.Layer{Name: spec.Name, Image: img})
	}

	var buf bytes.Buffer
	if err := psd.Encode(&buf, canvas.Dx(), canvas.Dy(), layers, composite); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rasterize draws a text layer with its baseline origin at (X, Y), cropped to
// the drawn glyphs within the canvas.
func rasterize(spec layerSpec, canvas image.Rectangle, faces faceCache) (*image.NRGBA, error) {
	if math.IsNaN(spec.Size) || spec.Size < 1 || spec.Size > maxTextSize {
		return nil, fmt.Errorf("invalid text size %v", spec.Size)
	}
	if !finite(spec.X) || !finite(spec.Y) || math.Abs(spec.X) > maxOffset || math.Abs(spec.Y) > maxOffset {
		return nil, fmt.Errorf("invalid text position [%v, %v]", spec.X, spec.Y)
	}
	col, err := parseHexColor(spec.Color)
	if err != nil {
		return nil, err
	}
	face, err := faces.face(int(math.Round(spec.Size)))
	if err != nil {
		return nil, err
	}

	d := &font.Drawer{
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(int(spec.X)), Y: fixed.I(int(spec.Y))},
	}
	bounds, _ := d.BoundString(spec.Contents)
	rect := image.Rect(
		bounds.Min.X.Floor(), bounds.Min.Y.Floor(),
		bounds.Max.X.Ceil(), bounds.Max.Y.Ceil(),
	).Intersect(canvas)

	dst := image.NewNRGBA(rect)
	if rect.Empty() {
		return dst, nil
	}
	d.Dst = dst
	d.DrawString(spec.Contents)
	return dst, nil
}

func parseHexColor(value string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", value)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
