package psd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

// ErrFormat is returned for data that is not a document this package can
// read.
var ErrFormat = errors.New("psd: invalid format")

// Info summarizes a document.
type Info struct {
	Width    int
	Height   int
	Channels int
	// Layers lists layer names bottom to top.
	Layers []string
}

// Inspect reads the header and layer names of a document.
func Inspect(data []byte) (Info, error) {
	r := &reader{r: bytes.NewReader(data)}

	if sig := string(r.bytes(4)); sig != signature {
		return Info{}, fmt.Errorf("%w: signature %q", ErrFormat, sig)
	}
	if v := r.u16(); v != version {
		return Info{}, fmt.Errorf("%w: version %d", ErrFormat, v)
	}
	r.skip(6)
	info := Info{Channels: int(r.u16())}
	info.Height = int(r.u32())
	info.Width = int(r.u32())
	if d := r.u16(); r.err == nil && d != depth {
		return Info{}, fmt.Errorf("%w: depth %d", ErrFormat, d)
	}
	r.skip(2)
	r.skip(int64(r.u32())) // color mode data
	r.skip(int64(r.u32())) // image resources

	sectionLen := r.u32()
	if r.err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrFormat, r.err)
	}
	if sectionLen == 0 {
		return info, nil
	}
	if infoLen := r.u32(); infoLen == 0 {
		return info, r.err
	}

	count := int(int16(r.u16()))
	if count < 0 {
		count = -count
	}
	for i := 0; i < count && r.err == nil; i++ {
		r.skip(16)
		channels := int(r.u16())
		r.skip(int64(channels) * 6)
		if sig := string(r.bytes(4)); r.err == nil && sig != resourceSig {
			return Info{}, fmt.Errorf("%w: layer %d blend signature %q", ErrFormat, i, sig)
		}
		r.skip(8)
		extra := r.bytes(int(r.u32()))
		info.Layers = append(info.Layers, layerName(extra))
	}
	if r.err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrFormat, r.err)
	}
	return info, nil
}

// layerName prefers the Unicode name block over the Pascal name.
func layerName(extra []byte) string {
	r := &reader{r: bytes.NewReader(extra)}
	r.skip(int64(r.u32()))
	r.skip(int64(r.u32()))
	n := int(r.u8())
	name := string(r.bytes(n))
	r.skip(int64((4 - (1+n)%4) % 4))

	for r.err == nil {
		sig := string(r.bytes(4))
		key := string(r.bytes(4))
		block := r.bytes(int(r.u32()))
		if r.err != nil || sig != resourceSig {
			break
		}
		if key != "luni" || len(block) < 4 {
			continue
		}
		units := int(binary.BigEndian.Uint32(block))
		if 4+units*2 > len(block) {
			break
		}
		u16 := make([]uint16, units)
		for i := range u16 {
			u16[i] = binary.BigEndian.Uint16(block[4+i*2:])
		}
		return string(utf16.Decode(u16))
	}
	return name
}

type reader struct {
	r   *bytes.Reader
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.r.Len() {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	buf := make([]byte, n)
	_, r.err = io.ReadFull(r.r, buf)
	return buf
}

func (r *reader) skip(n int64) {
	if r.err != nil {
		return
	}
	if n < 0 || n > int64(r.r.Len()) {
		r.err = io.ErrUnexpectedEOF
		return
	}
	_, r.err = r.r.Seek(n, io.SeekCurrent)
}

func (r *reader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
