package bridge

import (
	"errors"
	"testing"
	"time"

	"layersmith/internal/engine"
	"layersmith/internal/logging"
)

const testOrigin = "engine://test"

func TestCollectorClassifiesMessages(t *testing.T) {
	c := newCollector(testOrigin, logging.NewNop())
	p := c.install()

	c.offer(engine.BinaryMessage("https://elsewhere", []byte("foreign")))
	c.offer(engine.TextMessage(testOrigin, "rendering layer 1"))
	c.offer(engine.TextMessage(testOrigin, engine.ReadySignal))
	if !c.outstanding() {
		t.Fatal("non-terminal messages must not settle the pending result")
	}

	c.offer(engine.BinaryMessage(testOrigin, []byte("psd")))
	got, err := c.await(p, time.Second)
	if err != nil || string(got) != "psd" {
		t.Fatalf("unexpected outcome %q, %v", got, err)
	}
}

func TestCollectorErrorMessageFails(t *testing.T) {
	c := newCollector(testOrigin, logging.NewNop())
	p := c.install()
	c.offer(engine.TextMessage(testOrigin, "ERROR:export:disk full"))

	_, err := c.await(p, time.Second)
	var scriptErr *EngineScriptError
	if !errors.As(err, &scriptErr) || scriptErr.Stage != "export" || scriptErr.Detail != "disk full" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCollectorTimeoutTearsDown(t *testing.T) {
	c := newCollector(testOrigin, logging.NewNop())
	p := c.install()

	if _, err := c.await(p, 20*time.Millisecond); !errors.Is(err, ErrResultTimeout) {
		t.Fatalf("expected ErrResultTimeout, got %v", err)
	}
	if c.outstanding() {
		t.Fatal("expected pending result to be cleared")
	}
	// A late reply finds nothing to settle.
	c.offer(engine.BinaryMessage(testOrigin, []byte("late")))
	if c.outstanding() {
		t.Fatal("late reply must not create a pending result")
	}
}

func TestCollectorAbort(t *testing.T) {
	c := newCollector(testOrigin, logging.NewNop())
	p := c.install()
	c.abort(ErrProcessingTimeout)
	if _, err := c.await(p, time.Second); !errors.Is(err, ErrProcessingTimeout) {
		t.Fatalf("expected abort cause, got %v", err)
	}
	c.abort(ErrBridgeReset)
}

func TestParseScriptError(t *testing.T) {
	tests := []struct {
		report     string
		wantStage  string
		wantDetail string
	}{
		{"open:cannot decode image", "open", "cannot decode image"},
		{"subtitle: font missing ", "subtitle", "font missing"},
		{"export:a:b", "export", "a:b"},
		{"boom", "", "boom"},
		{"Not A Stage:oops", "", "Not A Stage:oops"},
	}
	for _, tt := range tests {
		got := parseScriptError(tt.report)
		if got.Stage != tt.wantStage || got.Detail != tt.wantDetail {
			t.Errorf("parseScriptError(%q) = %+v", tt.report, got)
		}
	}
}
