package psd_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"layersmith/internal/psd"
)

func solid(rect image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(rect)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodeRoundTripsLayerNames(t *testing.T) {
	base := solid(image.Rect(0, 0, 40, 20), color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	text := solid(image.Rect(5, 5, 30, 12), color.NRGBA{R: 255, G: 255, B: 255, A: 128})

	var buf bytes.Buffer
	layers := []psd.Layer{
		{Name: "Background Image", Image: base},
		{Name: "Titel über", Image: text},
	}
	if err := psd.Encode(&buf, 40, 20, layers, base); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	data := buf.Bytes()
	if string(data[:4]) != "8BPS" {
		t.Fatalf("unexpected signature %q", data[:4])
	}
	if mode := binary.BigEndian.Uint16(data[24:26]); mode != 3 {
		t.Fatalf("expected RGB color mode, got %d", mode)
	}

	info, err := psd.Inspect(data)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Width != 40 || info.Height != 20 || info.Channels != 3 {
		t.Fatalf("unexpected info %+v", info)
	}
	if len(info.Layers) != 2 || info.Layers[0] != "Background Image" || info.Layers[1] != "Titel über" {
		t.Fatalf("unexpected layers %q", info.Layers)
	}
}

func TestEncodeCompositePlanes(t *testing.T) {
	base := solid(image.Rect(0, 0, 2, 2), color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	if err := psd.Encode(&buf, 2, 2, nil, base); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()
	// Planar R, G, B after the compression marker.
	want := []byte{0, 0, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	if got := data[len(data)-len(want):]; !bytes.Equal(got, want) {
		t.Fatalf("unexpected composite tail % x", got)
	}
	info, err := psd.Inspect(data)
	if err != nil || len(info.Layers) != 0 {
		t.Fatalf("expected flat document, got %+v, %v", info, err)
	}
}

func TestEncodeClipsLayersToCanvas(t *testing.T) {
	base := solid(image.Rect(0, 0, 10, 10), color.NRGBA{A: 255})
	overflow := solid(image.Rect(-5, 8, 50, 40), color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := psd.Encode(&buf, 10, 10, []psd.Layer{{Name: "base", Image: base}, {Name: "edge", Image: overflow}}, base); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := psd.Inspect(buf.Bytes()); err != nil {
		t.Fatalf("Inspect: %v", err)
	}
}

func TestEncodeRejectsInvalidCanvas(t *testing.T) {
	if err := psd.Encode(&bytes.Buffer{}, 0, 10, nil, nil); err == nil {
		t.Fatal("expected error for empty canvas")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := psd.Inspect([]byte("GIF89a")); !errors.Is(err, psd.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if _, err := psd.Inspect([]byte("8BPS\x00\x01")); !errors.Is(err, psd.ErrFormat) {
		t.Fatalf("expected ErrFormat for truncated header, got %v", err)
	}
}
