package bridge

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
	"layersmith/internal/script"
)

type outcome struct {
	data []byte
	err  error
}

// pendingResult is the single outstanding render awaiting a terminal
// message. It is settled at most once.
type pendingResult struct {
	done chan outcome
}

// collector classifies inbound bus traffic and settles the pending result.
type collector struct {
	origin string
	logger *slog.Logger

	mu      sync.Mutex
	pending *pendingResult
}

func newCollector(origin string, logger *slog.Logger) *collector {
	return &collector{origin: origin, logger: logger}
}

// install registers a new pending result. The slot guarantees no other
// result is outstanding; a leftover one is aborted rather than shadowed.
func (c *collector) install() *pendingResult {
	p := &pendingResult{done: make(chan outcome, 1)}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.logger.Error("pending result replaced while outstanding",
			logging.String(logging.FieldEventType, "collector_overlap"))
		c.settleLocked(outcome{err: ErrBridgeReset})
	}
	c.pending = p
	return p
}

// offer classifies one bus message.
func (c *collector) offer(msg engine.Message) {
	if msg.Origin != c.origin {
		c.logger.Debug("ignoring foreign message", logging.String("origin", msg.Origin))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case msg.Binary:
		if c.pending == nil {
			c.logger.Debug("unclaimed engine result dropped", logging.Int("bytes", len(msg.Data)))
			return
		}
		c.settleLocked(outcome{data: msg.Data})
	case strings.HasPrefix(msg.Text, script.ErrorMarker):
		report := parseScriptError(strings.TrimPrefix(msg.Text, script.ErrorMarker))
		if c.pending == nil {
			c.logger.Debug("unclaimed engine failure dropped", logging.String("stage", report.Stage))
			return
		}
		c.settleLocked(outcome{err: report})
	default:
		c.logger.Debug("engine diagnostic", logging.String("text", msg.Text))
	}
}

// await blocks until p is settled or timeout elapses. On timeout the pending
// result is torn down so a late reply is treated as unclaimed.
func (c *collector) await(p *pendingResult, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case o := <-p.done:
		return o.data, o.err
	case <-timer.C:
		c.mu.Lock()
		if c.pending == p {
			c.pending = nil
			c.mu.Unlock()
			return nil, ErrResultTimeout
		}
		c.mu.Unlock()
		o := <-p.done
		return o.data, o.err
	}
}

// abort fails the outstanding result, if any, with cause.
func (c *collector) abort(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.settleLocked(outcome{err: cause})
	}
}

// abandon drops p without settling it; used when dispatch failed.
func (c *collector) abandon(p *pendingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == p {
		c.pending = nil
	}
}

func (c *collector) outstanding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *collector) settleLocked(o outcome) {
	p := c.pending
	c.pending = nil
	p.done <- o
}
