package sandbox

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
)

//go:embed prelude.js
var prelude string

// DefaultOrigin names sandbox engines on the message bus.
const DefaultOrigin = "engine://sandbox"

const (
	programQueue     = 16
	messageBuffer    = 64
	defaultMaxPixels = 64 << 20
)

var (
	ErrClosed    = errors.New("sandbox: engine closed")
	ErrQueueFull = errors.New("sandbox: program queue full")
)

// Options configures sandbox engines.
type Options struct {
	Origin string
	Logger *slog.Logger
	// SuppressReadySignal stops the engine from posting its ready message,
	// leaving readiness to the load grace period.
	SuppressReadySignal bool
	// MaxPixels caps the size of opened images.
	MaxPixels int
}

// Surface embeds sandbox engines.
type Surface struct {
	opts Options
}

// NewSurface returns a surface using opts.
func NewSurface(opts Options) *Surface {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = defaultMaxPixels
	}
	opts.Logger = logging.NewComponentLogger(opts.Logger, "sandbox")
	return &Surface{opts: opts}
}

// Embed starts a new engine. It keeps running until ctx is done or the
// endpoint is closed.
func (s *Surface) Embed(ctx context.Context) (engine.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	ep := &endpoint{
		opts:     s.opts,
		ctx:      ctx,
		cancel:   cancel,
		programs: make(chan string, programQueue),
		messages: make(chan engine.Message, messageBuffer),
		loaded:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go ep.run()
	return ep, nil
}

type endpoint struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	programs chan string
	messages chan engine.Message
	loaded   chan struct{}
	done     chan struct{}

	closeOnce sync.Once
}

func (e *endpoint) Origin() string { return e.opts.Origin }

func (e *endpoint) Messages() <-chan engine.Message { return e.messages }

func (e *endpoint) Loaded() <-chan struct{} { return e.loaded }

// Post queues program for execution.
func (e *endpoint) Post(program string) error {
	if e.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case e.programs <- program:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the engine, interrupting any running program, and waits for
// its goroutine to exit.
func (e *endpoint) Close() error {
	e.closeOnce.Do(e.cancel)
	<-e.done
	return nil
}

func (e *endpoint) run() {
	defer close(e.done)
	defer close(e.messages)

	vm := goja.New()
	h := newHost(vm, e.opts.Origin, e.opts.MaxPixels, e.emit)
	if err := h.install(prelude); err != nil {
		logging.ErrorWithContext(e.opts.Logger, "sandbox boot failed", "sandbox_boot_failed", logging.Error(err))
		return
	}
	close(e.loaded)
	e.opts.Logger.Debug("sandbox loaded")
	e.signalReady()

	for {
		select {
		case <-e.ctx.Done():
			return
		case program := <-e.programs:
			e.execute(vm, program)
			h.reset()
			e.signalReady()
		}
	}
}

// execute runs one program. The run is interrupted when the engine closes.
func (e *endpoint) execute(vm *goja.Runtime, program string) {
	finished := make(chan struct{})
	defer close(finished)
	defer vm.ClearInterrupt()

	go func() {
		select {
		case <-e.ctx.Done():
			vm.Interrupt(ErrClosed)
		case <-finished:
		}
	}()

	if _, err := vm.RunString(program); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			e.opts.Logger.Debug("program interrupted")
			return
		}
		e.emit(engine.TextMessage(e.opts.Origin, fmt.Sprintf("uncaught: %v", err)))
	}
}

func (e *endpoint) signalReady() {
	if !e.opts.SuppressReadySignal {
		e.emit(engine.TextMessage(e.opts.Origin, engine.ReadySignal))
	}
}

func (e *endpoint) emit(msg engine.Message) {
	select {
	case e.messages <- msg:
	case <-e.ctx.Done():
	}
}
