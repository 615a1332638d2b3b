package bridge

import "time"

// timeouts are the layered deadlines of the bridge. Each layer's expiry has
// a larger blast radius than the one before it.
type timeouts struct {
	// readinessGrace is how long after the surface reports loaded the engine
	// is assumed ready without its explicit signal.
	readinessGrace time.Duration
	// queueWait bounds how long a caller waits to be admitted.
	queueWait time.Duration
	// resultWait bounds how long an admitted render waits for a terminal
	// message.
	resultWait time.Duration
	// processingCeiling bounds an admitted render end to end; it only fires
	// if the collector was never torn down.
	processingCeiling time.Duration
}

func defaultTimeouts() timeouts {
	return timeouts{
		readinessGrace:    3 * time.Second,
		queueWait:         30 * time.Second,
		resultWait:        60 * time.Second,
		processingCeiling: 90 * time.Second,
	}
}
