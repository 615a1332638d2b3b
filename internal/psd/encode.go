package psd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"unicode/utf16"
)

const (
	signature     = "8BPS"
	resourceSig   = "8BIM"
	version       = 1
	depth         = 8
	colorModeRGB  = 3
	compressRaw   = 0
	maxDimension  = 30000
	maxPascalName = 255
)

// channel ids in the order they are written for every layer.
var layerChannels = []int16{-1, 0, 1, 2}

// Layer is one raster layer. Bounds of Image place it on the canvas; pixels
// outside the canvas are clipped.
type Layer struct {
	Name  string
	Image image.Image
}

// Encode writes a document of the given size with layers ordered bottom to
// top and composite as the flattened image.
func Encode(w io.Writer, width, height int, layers []Layer, composite image.Image) error {
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return fmt.Errorf("psd: invalid canvas %dx%d", width, height)
	}
	if len(layers) > 0x7fff {
		return errors.New("psd: too many layers")
	}
	canvas := image.Rect(0, 0, width, height)

	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.writeString(signature)
	e.writeU16(version)
	e.write(make([]byte, 6))
	e.writeU16(3)
	e.writeU32(uint32(height))
	e.writeU32(uint32(width))
	e.writeU16(depth)
	e.writeU16(colorModeRGB)

	// Color mode data and image resources are empty.
	e.writeU32(0)
	e.writeU32(0)

	info := layerInfo(layers, canvas)
	section := new(bytes.Buffer)
	se := &encoder{w: section}
	se.writeU32(uint32(len(info)))
	se.write(info)
	se.writeU32(0) // global layer mask info
	e.writeU32(uint32(section.Len()))
	e.write(section.Bytes())

	e.writeU16(compressRaw)
	flat := toNRGBA(composite, canvas)
	for c := 0; c < 3; c++ {
		e.write(plane(flat, canvas, c))
	}

	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// layerInfo builds the layer info block: count, records, then channel data.
func layerInfo(layers []Layer, canvas image.Rectangle) []byte {
	if len(layers) == 0 {
		return nil
	}
	records := new(bytes.Buffer)
	data := new(bytes.Buffer)
	re := &encoder{w: records}
	de := &encoder{w: data}

	re.writeU16(uint16(len(layers)))
	for _, layer := range layers {
		rect := canvas
		if layer.Image != nil {
			rect = layer.Image.Bounds().Intersect(canvas)
		}
		px := toNRGBA(layer.Image, rect)
		area := rect.Dx() * rect.Dy()

		re.writeU32(uint32(int32(rect.Min.Y)))
		re.writeU32(uint32(int32(rect.Min.X)))
		re.writeU32(uint32(int32(rect.Max.Y)))
		re.writeU32(uint32(int32(rect.Max.X)))
		re.writeU16(uint16(len(layerChannels)))
		for _, id := range layerChannels {
			re.writeU16(uint16(id))
			re.writeU32(uint32(2 + area))
		}
		re.writeString(resourceSig)
		re.writeString("norm")
		re.write([]byte{255, 0, 0, 0}) // opacity, clipping, flags, filler

		extra := extraData(layer.Name)
		re.writeU32(uint32(len(extra)))
		re.write(extra)

		for _, id := range layerChannels {
			de.writeU16(compressRaw)
			de.write(plane(px, rect, channelIndex(id)))
		}
	}

	out := append(records.Bytes(), data.Bytes()...)
	if len(out)%2 != 0 {
		out = append(out, 0)
	}
	return out
}

// extraData holds the empty mask and blending ranges, the Pascal name and a
// Unicode name block so non-ASCII names survive.
func extraData(name string) []byte {
	buf := new(bytes.Buffer)
	e := &encoder{w: buf}
	e.writeU32(0)
	e.writeU32(0)

	pascal := asciiName(name)
	e.write([]byte{byte(len(pascal))})
	e.writeString(pascal)
	e.write(make([]byte, (4-(1+len(pascal))%4)%4))

	units := utf16.Encode([]rune(name))
	block := new(bytes.Buffer)
	be := &encoder{w: block}
	be.writeU32(uint32(len(units)))
	for _, u := range units {
		be.writeU16(u)
	}
	for block.Len()%4 != 0 {
		block.WriteByte(0)
	}
	e.writeString(resourceSig)
	e.writeString("luni")
	e.writeU32(uint32(block.Len()))
	e.write(block.Bytes())
	return buf.Bytes()
}

func asciiName(name string) string {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		if len(out) == maxPascalName {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// channelIndex maps a channel id to its byte offset in an NRGBA pixel.
func channelIndex(id int16) int {
	if id < 0 {
		return 3
	}
	return int(id)
}

func plane(img *image.NRGBA, rect image.Rectangle, offset int) []byte {
	out := make([]byte, 0, rect.Dx()*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := img.Pix[img.PixOffset(rect.Min.X, y):]
		for x := 0; x < rect.Dx(); x++ {
			out = append(out, row[x*4+offset])
		}
	}
	return out
}

func toNRGBA(src image.Image, rect image.Rectangle) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && rect.In(n.Bounds()) {
		return n
	}
	dst := image.NewNRGBA(rect)
	if src == nil {
		return dst
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, y, color.NRGBAModel.Convert(src.At(x, y)))
		}
	}
	return dst
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeString(s string) { e.write([]byte(s)) }

func (e *encoder) writeU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.write(b[:])
}

func (e *encoder) writeU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.write(b[:])
}
