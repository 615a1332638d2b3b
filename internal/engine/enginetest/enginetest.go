// Package enginetest provides a scripted engine endpoint for tests.
//
// The fake records every posted program, tracks how many programs are in
// flight (posted but not yet answered with a terminal message), and lets a
// test inject arbitrary bus traffic including messages from foreign origins.
package enginetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"layersmith/internal/engine"
)

// DefaultOrigin is the origin used by NewEndpoint when none is given.
const DefaultOrigin = "engine://fake"

// ErrorMarker mirrors the prefix the bridge treats as a failure terminal.
const ErrorMarker = "ERROR:"

// Endpoint is an in-memory engine.Endpoint.
type Endpoint struct {
	origin   string
	messages chan engine.Message
	loaded   chan struct{}

	loadOnce  sync.Once
	closeOnce sync.Once
	closed    chan struct{}

	mu          sync.Mutex
	posted      []string
	inFlight    int
	maxInFlight int
	postErr     error

	// OnPost, when set, runs synchronously after each Post with the program
	// that was posted. Replies must be sent from another goroutine or via
	// the non-blocking Emit helpers.
	OnPost func(program string)
}

// NewEndpoint returns a fake endpoint with the given origin.
func NewEndpoint(origin string) *Endpoint {
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Endpoint{
		origin:   origin,
		messages: make(chan engine.Message, 64),
		loaded:   make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

func (e *Endpoint) Origin() string { return e.origin }

func (e *Endpoint) Post(program string) error {
	e.mu.Lock()
	if e.postErr != nil {
		err := e.postErr
		e.mu.Unlock()
		return err
	}
	e.posted = append(e.posted, program)
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	hook := e.OnPost
	e.mu.Unlock()

	if hook != nil {
		hook(program)
	}
	return nil
}

func (e *Endpoint) Messages() <-chan engine.Message { return e.messages }

func (e *Endpoint) Loaded() <-chan struct{} { return e.loaded }

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })
	return nil
}

// FailPosts makes every later Post return err.
func (e *Endpoint) FailPosts(err error) {
	e.mu.Lock()
	e.postErr = err
	e.mu.Unlock()
}

// MarkLoaded closes the Loaded channel.
func (e *Endpoint) MarkLoaded() {
	e.loadOnce.Do(func() { close(e.loaded) })
}

// Emit delivers msg on the bus. Terminal messages from the engine origin
// decrement the in-flight count.
func (e *Endpoint) Emit(msg engine.Message) {
	if msg.Origin == e.origin && (msg.Binary || strings.HasPrefix(msg.Text, ErrorMarker)) {
		e.mu.Lock()
		if e.inFlight > 0 {
			e.inFlight--
		}
		e.mu.Unlock()
	}
	select {
	case e.messages <- msg:
	case <-e.closed:
	}
}

// EmitText delivers a text message from the engine origin.
func (e *Endpoint) EmitText(text string) { e.Emit(engine.TextMessage(e.origin, text)) }

// EmitBinary delivers a binary message from the engine origin.
func (e *Endpoint) EmitBinary(data []byte) { e.Emit(engine.BinaryMessage(e.origin, data)) }

// EmitForeign delivers a text message from some other origin.
func (e *Endpoint) EmitForeign(origin, text string) { e.Emit(engine.TextMessage(origin, text)) }

// Posted returns a copy of every program posted so far.
func (e *Endpoint) Posted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.posted...)
}

// InFlight reports programs posted without a terminal reply yet.
func (e *Endpoint) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// MaxInFlight reports the highest InFlight value observed at any Post.
func (e *Endpoint) MaxInFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxInFlight
}

// Surface hands out a single fake endpoint and counts Embed calls.
type Surface struct {
	Endpoint *Endpoint
	// Err, when set, is returned from Embed instead of the endpoint.
	Err error

	mu     sync.Mutex
	embeds int
}

// NewSurface returns a surface wrapping a fresh endpoint.
func NewSurface() *Surface {
	return &Surface{Endpoint: NewEndpoint("")}
}

func (s *Surface) Embed(ctx context.Context) (engine.Endpoint, error) {
	s.mu.Lock()
	s.embeds++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Endpoint == nil {
		return nil, errors.New("enginetest: surface has no endpoint")
	}
	return s.Endpoint, nil
}

// Embeds reports how many times Embed was called.
func (s *Surface) Embeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embeds
}
