package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"layersmith/internal/logging"
)

// ticket identifies one admission to the slot. Tickets are never reused, so
// a ticket issued before a reset can be recognized as stale.
type ticket uint64

type wakeReason int

const (
	wakeHandoff wakeReason = iota
	wakeReset
)

type wakeMsg struct {
	reason wakeReason
	ticket ticket
}

type waiter struct {
	wake chan wakeMsg
}

// Stats is a snapshot of the single-flight slot.
type Stats struct {
	Busy   bool
	Queued int
	// Resets counts full resets since the bridge was created.
	Resets int
	// LastDrained is the number of waiters the most recent reset woke,
	// including the waiter whose queue timeout triggered it.
	LastDrained int
}

// slot admits one render at a time. Waiters queue in FIFO order and are
// handed the slot directly on release.
type slot struct {
	queueWait         time.Duration
	processingCeiling time.Duration
	// onReset runs under the slot lock during a full reset with the error
	// the in-flight render should fail with.
	onReset func(cause error)
	logger  *slog.Logger

	mu          sync.Mutex
	busy        bool
	holder      ticket
	seq         uint64
	queue       []*waiter
	processing  *time.Timer
	resets      int
	lastDrained int
	closed      bool
}

func newSlot(t timeouts, onReset func(error), logger *slog.Logger) *slot {
	return &slot{
		queueWait:         t.queueWait,
		processingCeiling: t.processingCeiling,
		onReset:           onReset,
		logger:            logger,
	}
}

// admit blocks until the caller holds the slot, the queue wait expires, or
// ctx is done. Waiters drained by a reset try again with a fresh queue wait.
func (s *slot) admit(ctx context.Context) (ticket, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return 0, ErrClosed
		}
		if !s.busy {
			t := s.grantLocked()
			s.mu.Unlock()
			return t, nil
		}
		w := &waiter{wake: make(chan wakeMsg, 1)}
		s.queue = append(s.queue, w)
		position := len(s.queue)
		s.mu.Unlock()

		s.logger.Debug("render queued", logging.Int("position", position))

		t, retry, err := s.wait(ctx, w)
		if retry {
			continue
		}
		return t, err
	}
}

func (s *slot) wait(ctx context.Context, w *waiter) (ticket, bool, error) {
	timer := time.NewTimer(s.queueWait)
	defer timer.Stop()

	select {
	case msg := <-w.wake:
		return s.woken(msg)
	case <-timer.C:
		s.mu.Lock()
		if !s.withdrawLocked(w) {
			// Woken between the timer firing and taking the lock.
			s.mu.Unlock()
			return s.woken(<-w.wake)
		}
		drained := s.resetLocked(ErrBridgeReset) + 1
		s.lastDrained = drained
		s.mu.Unlock()
		logging.WarnWithContext(s.logger, "render queue wait exceeded; bridge reset", "queue_reset",
			logging.Duration("queue_wait", s.queueWait),
			logging.Int("drained", drained),
			logging.String(logging.FieldErrorHint, "the engine may be stuck; retry the render"),
			logging.String(logging.FieldImpact, "in-flight render aborted and queued renders re-admitted"),
		)
		return 0, false, ErrQueueTimeout
	case <-ctx.Done():
		s.mu.Lock()
		if s.withdrawLocked(w) {
			s.mu.Unlock()
			return 0, false, ctx.Err()
		}
		s.mu.Unlock()
		if msg := <-w.wake; msg.reason == wakeHandoff {
			s.release(msg.ticket)
		}
		return 0, false, ctx.Err()
	}
}

func (s *slot) woken(msg wakeMsg) (ticket, bool, error) {
	if msg.reason == wakeHandoff {
		return msg.ticket, false, nil
	}
	return 0, true, nil
}

// release frees the slot or hands it to the oldest waiter. Releasing a stale
// ticket does nothing.
func (s *slot) release(t ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.holdsLocked(t) {
		return
	}
	s.stopProcessingLocked()
	if len(s.queue) == 0 {
		s.busy = false
		s.holder = 0
		return
	}
	next := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	next.wake <- wakeMsg{reason: wakeHandoff, ticket: s.grantLocked()}
}

// whileHolding runs fn under the slot lock if t still holds the slot, so a
// concurrent reset cannot interleave with dispatch.
func (s *slot) whileHolding(t ticket, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.holdsLocked(t) {
		return ErrBridgeReset
	}
	return fn()
}

// armProcessingLocked starts the processing ceiling for holder t. Must be
// called with the lock held, normally from whileHolding.
func (s *slot) armProcessingLocked(t ticket) {
	s.stopProcessingLocked()
	s.processing = time.AfterFunc(s.processingCeiling, func() { s.expireProcessing(t) })
}

func (s *slot) expireProcessing(t ticket) {
	s.mu.Lock()
	if !s.holdsLocked(t) {
		s.mu.Unlock()
		return
	}
	drained := s.resetLocked(ErrProcessingTimeout)
	s.lastDrained = drained
	s.mu.Unlock()
	logging.WarnWithContext(s.logger, "render processing ceiling exceeded; bridge reset", "processing_reset",
		logging.Duration("processing_ceiling", s.processingCeiling),
		logging.Int("drained", drained),
		logging.String(logging.FieldErrorHint, "the engine did not answer; check engine health"),
		logging.String(logging.FieldImpact, "render failed and queued renders re-admitted"),
	)
}

// shutdown resets the slot and refuses later admissions.
func (s *slot) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.lastDrained = s.resetLocked(ErrClosed)
}

func (s *slot) stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Busy:        s.busy,
		Queued:      len(s.queue),
		Resets:      s.resets,
		LastDrained: s.lastDrained,
	}
}

func (s *slot) grantLocked() ticket {
	s.seq++
	s.busy = true
	s.holder = ticket(s.seq)
	return s.holder
}

func (s *slot) holdsLocked(t ticket) bool {
	return s.busy && t != 0 && s.holder == t
}

func (s *slot) withdrawLocked(w *waiter) bool {
	for i, q := range s.queue {
		if q == w {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// resetLocked clears the slot, wakes every waiter to re-attempt admission and
// aborts the in-flight render with cause. It returns the number of waiters
// woken.
func (s *slot) resetLocked(cause error) int {
	drained := len(s.queue)
	for _, w := range s.queue {
		w.wake <- wakeMsg{reason: wakeReset}
	}
	s.queue = nil
	s.busy = false
	s.holder = 0
	s.stopProcessingLocked()
	s.resets++
	if s.onReset != nil {
		s.onReset(cause)
	}
	return drained
}

func (s *slot) stopProcessingLocked() {
	if s.processing != nil {
		s.processing.Stop()
		s.processing = nil
	}
}
