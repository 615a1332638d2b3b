package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"layersmith/internal/engine"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEngineCommand verifies that the process engine binary resolves.
func CheckEngineCommand(command []string) Result {
	const name = "Engine command"
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command[0])
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command[0])}
	}
	if err := unix.Access(resolved, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", resolved, err)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// Warmer boots an engine and reports how it became ready.
type Warmer interface {
	Warm(ctx context.Context) error
	State() engine.State
	ReadyVia() string
}

// CheckEngine boots the engine and waits up to timeout for readiness.
func CheckEngine(ctx context.Context, w Warmer, timeout time.Duration) Result {
	const name = "Engine"

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := w.Warm(checkCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: fmt.Sprintf("not ready after %s (state %s)", timeout, w.State())}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	elapsed := time.Since(start).Round(time.Millisecond)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("ready via %s in %s", w.ReadyVia(), elapsed)}
}
