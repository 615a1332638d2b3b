package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/dop251/goja"
	xdraw "golang.org/x/image/draw"

	"layersmith/internal/engine"
	"layersmith/internal/imageio"
)

// host implements the __host object the prelude calls into. It holds the
// pixels of the open document between calls.
type host struct {
	vm        *goja.Runtime
	origin    string
	maxPixels int
	emit      func(engine.Message)

	base  *image.NRGBA
	faces faceCache
}

func newHost(vm *goja.Runtime, origin string, maxPixels int, emit func(engine.Message)) *host {
	return &host{vm: vm, origin: origin, maxPixels: maxPixels, emit: emit, faces: faceCache{}}
}

func (h *host) install(source string) error {
	obj := h.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"open":      h.open,
		"post":      h.post,
		"exportPSD": h.exportPSD,
	} {
		if err := obj.Set(name, fn); err != nil {
			return err
		}
	}
	if err := h.vm.Set("__host", obj); err != nil {
		return err
	}
	if _, err := h.vm.RunScript("prelude.js", source); err != nil {
		return fmt.Errorf("run prelude: %w", err)
	}
	return nil
}

// reset drops the open document after a program finishes.
func (h *host) reset() {
	h.base = nil
	_, _ = h.vm.RunString("app.activeDocument = null;")
}

func (h *host) throw(err error) {
	panic(h.vm.NewGoError(err))
}

func (h *host) open(call goja.FunctionCall) goja.Value {
	data, _, err := imageio.DecodeDataURL(call.Argument(0).String())
	if err != nil {
		h.throw(err)
	}
	info, err := imageio.Inspect(data)
	if err != nil {
		h.throw(err)
	}
	if info.Width*info.Height > h.maxPixels {
		h.throw(fmt.Errorf("image %dx%d exceeds %d pixels", info.Width, info.Height, h.maxPixels))
	}
	img, _, err := imageio.Decode(data)
	if err != nil {
		h.throw(err)
	}

	bounds := img.Bounds()
	base := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(base, base.Bounds(), img, bounds.Min, xdraw.Src)
	h.base = base

	size := h.vm.NewObject()
	_ = size.Set("width", base.Bounds().Dx())
	_ = size.Set("height", base.Bounds().Dy())
	return size
}

func (h *host) post(call goja.FunctionCall) goja.Value {
	h.emit(engine.TextMessage(h.origin, call.Argument(0).String()))
	return goja.Undefined()
}

func (h *host) exportPSD(call goja.FunctionCall) goja.Value {
	if h.base == nil {
		h.throw(errors.New("no document is open"))
	}
	var specs []layerSpec
	if err := json.Unmarshal([]byte(call.Argument(0).String()), &specs); err != nil {
		h.throw(fmt.Errorf("decode layers: %w", err))
	}
	data, err := compose(h.base, specs, h.faces)
	if err != nil {
		h.throw(err)
	}
	h.emit(engine.BinaryMessage(h.origin, data))
	return goja.Undefined()
}
