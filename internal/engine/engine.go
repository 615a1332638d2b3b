package engine

import (
	"context"
	"fmt"
)

// ReadySignal is the text message an engine posts once it can accept
// programs. Engines may repeat it after every program; receivers that are
// already ready treat repeats as chatter.
const ReadySignal = "done"

// Message is one inbound message observed on the host message bus.
type Message struct {
	// Origin identifies the sender. Only messages whose origin matches the
	// endpoint's Origin come from the engine.
	Origin string
	// Binary reports whether Data carries the payload; otherwise Text does.
	Binary bool
	Text   string
	Data   []byte
}

// TextMessage builds a text message from origin.
func TextMessage(origin, text string) Message {
	return Message{Origin: origin, Text: text}
}

// BinaryMessage builds a binary message from origin.
func BinaryMessage(origin string, data []byte) Message {
	return Message{Origin: origin, Binary: true, Data: data}
}

func (m Message) String() string {
	if m.Binary {
		return fmt.Sprintf("binary(%d bytes) from %s", len(m.Data), m.Origin)
	}
	return fmt.Sprintf("text(%q) from %s", m.Text, m.Origin)
}

// Endpoint is the communication handle of one embedded engine instance.
type Endpoint interface {
	// Origin names the engine on the message bus.
	Origin() string
	// Post hands a program to the engine without waiting for any reply. It
	// must not block on the engine: callers hold the render slot while
	// posting.
	Post(program string) error
	// Messages delivers every message seen on the bus, including messages
	// from other origins. It is closed when the endpoint shuts down.
	Messages() <-chan Message
	// Loaded is closed when the embedding surface reports that the engine
	// has been loaded. It may never close.
	Loaded() <-chan struct{}
	// Close releases the engine.
	Close() error
}

// Surface instantiates engines in an isolated execution context.
type Surface interface {
	Embed(ctx context.Context) (Endpoint, error)
}

// State is the lifecycle of the single engine channel.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
