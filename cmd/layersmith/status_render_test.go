package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"layersmith/internal/bridge"
	"layersmith/internal/imageio"
	"layersmith/internal/preflight"
	"layersmith/internal/renderer"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Engine", statusError, "not ready", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Engine:", "[ERROR] not ready")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Engine", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Output directory", Passed: true, Detail: "/tmp/out (read/write ok)"},
		{Name: "Engine command", Detail: `binary "engine" not found`},
	}, false)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] /tmp/out") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] binary") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestFailureLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "queue timeout", err: bridge.ErrQueueTimeout, want: "Timeout"},
		{name: "not found", err: &imageio.FetchError{URL: "http://x", StatusCode: 404}, want: "Not Found"},
		{name: "script stage", err: fmt.Errorf("render: %w", &bridge.EngineScriptError{Stage: "title", Detail: "boom"}), want: "Title Failed"},
		{name: "unclassified", err: errors.New("boom"), want: "Transient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureLabel(tt.err); got != tt.want {
				t.Fatalf("failureLabel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBatchTable(t *testing.T) {
	table := renderBatchTable([]renderer.BatchResult{
		{Job: renderer.Job{SourceURL: "http://img/a.png"}, Result: renderer.Result{Path: "/out/a.psd", Elapsed: 1500 * time.Millisecond}},
		{Job: renderer.Job{SourceURL: "http://img/b.png"}, Err: bridge.ErrProcessingTimeout},
	})
	for _, want := range []string{"Source", "/out/a.psd", "Saved", "1.5s", "Timeout"} {
		if !strings.Contains(table, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, table)
		}
	}
}
