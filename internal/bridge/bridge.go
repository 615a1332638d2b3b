package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
	"layersmith/internal/script"
)

// Request is one render: an image as a data URL plus the text layers to
// place on it.
type Request struct {
	ImageData string
	Title     string
	Subtitle  string
}

// Bridge serializes renders onto a single embedded engine.
type Bridge struct {
	logger    *slog.Logger
	timeouts  timeouts
	life      *lifecycle
	slot      *slot
	collector *collector
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a bridge over surface. The engine is not embedded until the
// first render or Warm call.
func New(surface engine.Surface, opts ...Option) *Bridge {
	return newBridge(surface, defaultTimeouts(), opts...)
}

func newBridge(surface engine.Surface, t timeouts, opts ...Option) *Bridge {
	b := &Bridge{logger: logging.NewNop(), timeouts: t}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "bridge")
	b.collector = newCollector("", b.logger)
	b.slot = newSlot(t, b.collector.abort, b.logger)
	b.life = newLifecycle(surface, t.readinessGrace, b.collector, b.logger)
	return b
}

// Render runs one request through the engine and returns the exported
// document bytes. ctx bounds the wait for readiness and admission; once the
// program is dispatched the render runs until it completes, fails or times
// out.
func (b *Bridge) Render(ctx context.Context, req Request) ([]byte, error) {
	r := newRequest(logging.WithContext(ctx, b.logger))

	ep, err := b.life.ensureReady(ctx)
	if err != nil {
		r.fail(err)
		return nil, err
	}

	t, err := b.slot.admit(ctx)
	if err != nil {
		r.fail(err)
		return nil, err
	}
	defer b.slot.release(t)

	program := script.Build(req.ImageData, req.Title, req.Subtitle)

	var pending *pendingResult
	err = b.slot.whileHolding(t, func() error {
		pending = b.collector.install()
		if err := ep.Post(program); err != nil {
			b.collector.abandon(pending)
			return fmt.Errorf("%w: post program: %v", ErrEngineUnavailable, err)
		}
		b.slot.armProcessingLocked(t)
		return nil
	})
	if err != nil {
		r.fail(err)
		return nil, err
	}
	if err := r.advance(stateDispatched); err != nil {
		return nil, err
	}
	if err := r.advance(stateAwaitingResult); err != nil {
		return nil, err
	}

	data, err := b.collector.await(pending, b.timeouts.resultWait)
	if err != nil {
		r.fail(err)
		return nil, err
	}
	r.complete(len(data))
	return data, nil
}

// Warm embeds the engine if needed and waits for readiness.
func (b *Bridge) Warm(ctx context.Context) error {
	_, err := b.life.ensureReady(ctx)
	return err
}

// State reports the engine lifecycle state.
func (b *Bridge) State() engine.State {
	return b.life.currentState()
}

// ReadyVia reports which source declared the engine ready, or "" before
// readiness.
func (b *Bridge) ReadyVia() string {
	return b.life.readyVia()
}

// Busy reports whether a render currently holds the engine.
func (b *Bridge) Busy() bool {
	return b.slot.stats().Busy
}

func (b *Bridge) Stats() Stats {
	return b.slot.stats()
}

// Close aborts any in-flight render, rejects queued and later renders with
// ErrClosed and releases the engine.
func (b *Bridge) Close() error {
	b.slot.shutdown()
	return b.life.close()
}
