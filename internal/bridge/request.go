package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"layersmith/internal/logging"
	"layersmith/internal/services"
)

// requestState is the lifecycle of one render request.
type requestState int

const (
	stateQueued requestState = iota
	stateDispatched
	stateAwaitingResult
	stateCompleted
	stateFailed
	stateTimedOut
)

func (s requestState) String() string {
	switch s {
	case stateQueued:
		return "queued"
	case stateDispatched:
		return "dispatched"
	case stateAwaitingResult:
		return "awaiting_result"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	case stateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("request_state(%d)", int(s))
	}
}

func (s requestState) terminal() bool {
	return s == stateCompleted || s == stateFailed || s == stateTimedOut
}

// requestTransitions lists the legal moves out of each non-terminal state.
var requestTransitions = map[requestState][]requestState{
	stateQueued:         {stateDispatched, stateFailed, stateTimedOut},
	stateDispatched:     {stateAwaitingResult, stateFailed},
	stateAwaitingResult: {stateCompleted, stateFailed, stateTimedOut},
}

func canTransition(from, to requestState) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// request tracks one Render call through its states.
type request struct {
	state   requestState
	started time.Time
	logger  *slog.Logger
}

func newRequest(logger *slog.Logger) *request {
	return &request{state: stateQueued, started: time.Now(), logger: logger}
}

func (r *request) advance(to requestState) error {
	if !canTransition(r.state, to) {
		err := fmt.Errorf("invalid render transition %s -> %s", r.state, to)
		logging.ErrorWithContext(r.logger, "render state machine violated", "render_state_invalid",
			logging.String("from", r.state.String()),
			logging.String("to", to.String()),
		)
		return err
	}
	r.logger.Debug("render state", logging.String("from", r.state.String()), logging.String("to", to.String()))
	r.state = to
	return nil
}

// fail moves the request to the terminal state matching err and logs it.
func (r *request) fail(err error) {
	to := stateFailed
	if errors.Is(err, services.ErrTimeout) {
		to = stateTimedOut
	}
	if r.state.terminal() || r.advance(to) != nil {
		return
	}
	r.logger.Warn("render failed",
		logging.String(logging.FieldEventType, "render_failed"),
		logging.String("state", to.String()),
		logging.String("failure_class", services.FailureClass(err)),
		logging.Duration("elapsed", time.Since(r.started)),
		logging.Error(err),
	)
}

func (r *request) complete(size int) {
	if r.advance(stateCompleted) != nil {
		return
	}
	r.logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_completed"),
		logging.Int("bytes", size),
		logging.Duration("elapsed", time.Since(r.started)),
	)
}
