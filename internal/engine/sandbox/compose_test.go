package sandbox

import (
	"image"
	"image/color"
	"testing"
)

func TestRasterizeCropsToGlyphs(t *testing.T) {
	canvas := image.Rect(0, 0, 400, 200)
	img, err := rasterize(layerSpec{Name: "Title", Text: true, Contents: "Hi", Size: 32, Color: "FF0000", X: 20, Y: 60}, canvas, faceCache{})
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	b := img.Bounds()
	if b.Empty() || !b.In(canvas) {
		t.Fatalf("unexpected bounds %v", b)
	}
	if b.Min.X < 15 || b.Max.Y > 70 {
		t.Fatalf("glyph bounds %v not near the baseline origin", b)
	}

	var strongest color.NRGBA
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if c := img.NRGBAAt(x, y); c.A > strongest.A {
				strongest = c
			}
		}
	}
	if strongest.A < 200 {
		t.Fatalf("no solid text pixels drawn, strongest %v", strongest)
	}
	if strongest.R < 240 || strongest.G > 15 || strongest.B > 15 {
		t.Fatalf("unexpected text color %v", strongest)
	}
}

func TestRasterizeRejectsInvalidInput(t *testing.T) {
	canvas := image.Rect(0, 0, 10, 10)
	for _, spec := range []layerSpec{
		{Contents: "x", Size: 0, Color: "FFFFFF"},
		{Contents: "x", Size: 12, Color: "white"},
		{Contents: "x", Size: 12, Color: "FFFFFF", X: 1e12},
	} {
		if _, err := rasterize(spec, canvas, faceCache{}); err == nil {
			t.Errorf("expected error for %+v", spec)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	got, err := parseHexColor("#D9d9D9")
	if err != nil {
		t.Fatalf("parseHexColor: %v", err)
	}
	if got != (color.NRGBA{R: 0xD9, G: 0xD9, B: 0xD9, A: 0xFF}) {
		t.Fatalf("unexpected color %v", got)
	}
}
