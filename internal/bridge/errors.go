package bridge

import (
	"fmt"
	"strings"

	"layersmith/internal/services"
)

var (
	// ErrQueueTimeout is returned to a caller that waited too long to be
	// admitted. The wait triggered a full reset; the caller may retry.
	ErrQueueTimeout = fmt.Errorf("%w: render queue wait exceeded", services.ErrTimeout)
	// ErrProcessingTimeout is returned when an admitted render outlived the
	// processing ceiling and the bridge was force-reset.
	ErrProcessingTimeout = fmt.Errorf("%w: render processing ceiling exceeded", services.ErrTimeout)
	// ErrResultTimeout is returned when the engine sent no terminal message
	// before the result deadline.
	ErrResultTimeout = fmt.Errorf("%w: no engine result before deadline", services.ErrTimeout)
	// ErrBridgeReset is returned to an in-flight render torn down by a reset
	// triggered from another caller's queue timeout.
	ErrBridgeReset = fmt.Errorf("%w: render aborted by bridge reset", services.ErrTransient)
	// ErrEngineScript matches every *EngineScriptError.
	ErrEngineScript = fmt.Errorf("%w: engine reported a script failure", services.ErrExternalTool)
	// ErrEngineUnavailable is returned when the engine could not be embedded
	// or a program could not be handed to it.
	ErrEngineUnavailable = fmt.Errorf("%w: engine unavailable", services.ErrExternalTool)
	// ErrClosed is returned after Close.
	ErrClosed = fmt.Errorf("%w: bridge closed", services.ErrConfiguration)
)

// EngineScriptError is an explicit failure report from the engine, tagged
// with the program stage that failed (open, title, subtitle, export).
type EngineScriptError struct {
	Stage  string
	Detail string
}

func (e *EngineScriptError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("engine script failed: %s", e.Detail)
	}
	return fmt.Sprintf("engine script failed at %s: %s", e.Stage, e.Detail)
}

func (e *EngineScriptError) Unwrap() error { return ErrEngineScript }

// parseScriptError splits the text after the error marker into stage and
// detail. Reports without a recognizable stage keep the whole text as detail.
func parseScriptError(report string) *EngineScriptError {
	stage, detail, ok := strings.Cut(report, ":")
	if !ok || !isStageName(stage) {
		return &EngineScriptError{Detail: strings.TrimSpace(report)}
	}
	return &EngineScriptError{Stage: stage, Detail: strings.TrimSpace(detail)}
}

func isStageName(s string) bool {
	if s == "" || len(s) > 32 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}
