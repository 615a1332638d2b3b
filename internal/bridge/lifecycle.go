package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
)

// Readiness sources reported by ReadyVia.
const (
	ReadyViaSignal = "signal"
	ReadyViaGrace  = "grace"
)

// readySource is one way the engine can be declared ready. fired is closed
// when the source resolves.
type readySource struct {
	name  string
	fired <-chan struct{}
}

// firstOf resolves with the name of the first source to fire. Sources that
// fire later are ignored.
func firstOf(ctx context.Context, sources ...readySource) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	won := make(chan string, len(sources))
	for _, src := range sources {
		go func(src readySource) {
			select {
			case <-src.fired:
				won <- src.name
			case <-ctx.Done():
			}
		}(src)
	}

	select {
	case name := <-won:
		return name, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// graceSource fires d after loaded closes. It never fires if loaded never
// closes.
func graceSource(ctx context.Context, loaded <-chan struct{}, d time.Duration) <-chan struct{} {
	fired := make(chan struct{})
	go func() {
		select {
		case <-loaded:
		case <-ctx.Done():
			return
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(fired)
		case <-ctx.Done():
		}
	}()
	return fired
}

// lifecycle owns the one engine endpoint. The endpoint is embedded on first
// use and never recreated.
type lifecycle struct {
	surface   engine.Surface
	grace     time.Duration
	collector *collector
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bootOnce sync.Once
	endpoint engine.Endpoint
	bootErr  error

	state      atomic.Int32
	via        atomic.Value
	ready      chan struct{}
	signalled  chan struct{}
	signalOnce sync.Once
}

func newLifecycle(surface engine.Surface, grace time.Duration, c *collector, logger *slog.Logger) *lifecycle {
	ctx, cancel := context.WithCancel(context.Background())
	return &lifecycle{
		surface:   surface,
		grace:     grace,
		collector: c,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		ready:     make(chan struct{}),
		signalled: make(chan struct{}),
	}
}

// ensureReady boots the engine on first use and waits until it is ready.
// The wait is bounded only by ctx; an engine that never signals and never
// loads keeps callers waiting.
func (l *lifecycle) ensureReady(ctx context.Context) (engine.Endpoint, error) {
	l.bootOnce.Do(l.boot)
	if l.bootErr != nil {
		return nil, l.bootErr
	}
	select {
	case <-l.ready:
		return l.endpoint, nil
	default:
	}
	select {
	case <-l.ready:
		return l.endpoint, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *lifecycle) boot() {
	l.state.Store(int32(engine.StateLoading))
	l.logger.Info("embedding engine", logging.String(logging.FieldEventType, "engine_embed"))

	ep, err := l.surface.Embed(l.ctx)
	if err != nil {
		l.state.Store(int32(engine.StateUnloaded))
		l.bootErr = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		logging.ErrorWithContext(l.logger, "engine embed failed", "engine_embed_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'layersmith engine check' to diagnose"),
		)
		return
	}
	l.collector.origin = ep.Origin()
	l.endpoint = ep

	go l.route(ep)
	go l.awaitReadiness(ep)
}

// route is the single reader of the endpoint's bus.
func (l *lifecycle) route(ep engine.Endpoint) {
	origin := ep.Origin()
	for msg := range ep.Messages() {
		if msg.Origin == origin && !msg.Binary && msg.Text == engine.ReadySignal {
			l.signalOnce.Do(func() { close(l.signalled) })
		}
		l.collector.offer(msg)
	}
	l.logger.Debug("engine message bus closed")
}

func (l *lifecycle) awaitReadiness(ep engine.Endpoint) {
	stall := time.AfterFunc(l.grace, func() {
		if l.currentState() == engine.StateReady {
			return
		}
		loaded := false
		select {
		case <-ep.Loaded():
			loaded = true
		default:
		}
		logging.WarnWithContext(l.logger, "engine not ready after grace period", "engine_stalled",
			logging.Duration("grace", l.grace),
			logging.Bool("loaded", loaded),
			logging.String(logging.FieldErrorHint, "the engine has neither signalled nor finished loading"),
			logging.String(logging.FieldImpact, "renders wait until the engine becomes ready"),
		)
	})
	defer stall.Stop()

	via, err := firstOf(l.ctx,
		readySource{name: ReadyViaSignal, fired: l.signalled},
		readySource{name: ReadyViaGrace, fired: graceSource(l.ctx, ep.Loaded(), l.grace)},
	)
	if err != nil {
		return
	}
	l.via.Store(via)
	l.state.Store(int32(engine.StateReady))
	close(l.ready)
	l.logger.Info("engine ready",
		logging.String(logging.FieldEventType, "engine_ready"),
		logging.String("via", via),
	)
}

func (l *lifecycle) currentState() engine.State {
	return engine.State(l.state.Load())
}

func (l *lifecycle) readyVia() string {
	v, _ := l.via.Load().(string)
	return v
}

// close stops readiness tracking and releases the endpoint. Later calls to
// ensureReady fail with ErrClosed.
func (l *lifecycle) close() error {
	l.bootOnce.Do(func() { l.bootErr = ErrClosed })
	l.cancel()
	if l.endpoint == nil {
		return nil
	}
	return l.endpoint.Close()
}
