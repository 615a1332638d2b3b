package script_test

import (
	"strings"
	"testing"

	"github.com/dop251/goja"

	"layersmith/internal/script"
)

const sampleImage = "data:image/png;base64,iVBORw0KGgo="

// stubHost records what a program does without rendering anything.
const stubHost = `
var LayerKind = { NORMAL: 1, TEXT: 2 };
function SolidColor() { this.rgb = { hexValue: "000000" }; }
var calls = { echoes: [], layers: [], exported: null };
var app = {
	activeDocument: null,
	open: function (url) {
		this.activeDocument = {
			width: 1000,
			height: 500,
			layers: [{ name: "Layer 0" }],
			artLayers: {
				add: function () {
					var layer = { name: "", kind: LayerKind.NORMAL, textItem: {} };
					calls.layers.push(layer);
					return layer;
				}
			},
			saveToOE: function (format) { calls.exported = format; }
		};
	},
	echoToOE: function (msg) { calls.echoes.push(msg); }
};
`

func runProgram(t *testing.T, prelude, program string) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	if _, err := vm.RunString(prelude); err != nil {
		t.Fatalf("prelude: %v", err)
	}
	compiled, err := goja.Compile("render.js", program, false)
	if err != nil {
		t.Fatalf("program does not compile: %v\n%s", err, program)
	}
	if _, err := vm.RunProgram(compiled); err != nil {
		t.Fatalf("program failed: %v", err)
	}
	return vm
}

func TestBuildTitleOnlyOmitsSubtitleStep(t *testing.T) {
	program := script.Build(sampleImage, "CORSAIR ONE", "")

	if !strings.Contains(program, `"ERROR:title:"`) {
		t.Fatalf("expected title step in program:\n%s", program)
	}
	if strings.Contains(program, "subtitleLayer") || strings.Contains(program, `"ERROR:subtitle:"`) {
		t.Fatalf("expected subtitle step to be omitted:\n%s", program)
	}

	vm := runProgram(t, stubHost, program)
	if got := vm.Get("calls").ToObject(vm).Get("layers").ToObject(vm).Get("length").ToInteger(); got != 1 {
		t.Fatalf("expected one text layer, got %d", got)
	}
	if got := vm.Get("calls").ToObject(vm).Get("exported").String(); got != script.ExportFormat {
		t.Fatalf("expected export as %q, got %q", script.ExportFormat, got)
	}
}

func TestBuildWhitespaceOnlyFieldsAreSkipped(t *testing.T) {
	program := script.Build(sampleImage, "  \n ", " (Logo) ")
	if strings.Contains(program, "artLayers.add") {
		t.Fatalf("expected no text layers:\n%s", program)
	}
}

func TestBuildEscapesAndStripsSubtitle(t *testing.T) {
	program := script.Build(sampleImage, "Title", "He said \"hi\" (Logo)\nline2")

	if strings.Contains(program, "(Logo)") {
		t.Fatalf("expected (Logo) to be stripped:\n%s", program)
	}
	for _, line := range strings.Split(program, "\n") {
		if !strings.Contains(line, "subtitleLayer.textItem.contents") {
			continue
		}
		if !strings.Contains(line, `"He said \"hi\" line2"`) {
			t.Fatalf("unexpected subtitle literal: %s", line)
		}
	}

	vm := runProgram(t, stubHost, program)
	layers := vm.Get("calls").ToObject(vm).Get("layers").ToObject(vm)
	subtitle := layers.Get("1").ToObject(vm).Get("textItem").ToObject(vm).Get("contents").String()
	if subtitle != `He said "hi" line2` {
		t.Fatalf("unexpected subtitle contents %q", subtitle)
	}
}

func TestBuildSurvivesHostileText(t *testing.T) {
	hostile := "a\\\"; app.echoToOE(\"pwned\"); // 'x'\r\n"
	program := script.Build(sampleImage, hostile, hostile)

	vm := runProgram(t, stubHost, program)
	echoes := vm.Get("calls").ToObject(vm).Get("echoes").ToObject(vm)
	if n := echoes.Get("length").ToInteger(); n != 0 {
		t.Fatalf("expected no echoes from injected text, got %d", n)
	}
	title := vm.Get("calls").ToObject(vm).Get("layers").ToObject(vm).Get("0").ToObject(vm).Get("textItem").ToObject(vm).Get("contents").String()
	if title != script.CleanLabel(hostile) {
		t.Fatalf("title contents %q, want %q", title, script.CleanLabel(hostile))
	}
}

func TestBuildReportsFailingStage(t *testing.T) {
	failingHost := stubHost + `
app.activeDocument = null;
var realOpen = app.open;
app.open = function (url) {
	realOpen.call(app, url);
	this.activeDocument.artLayers.add = function () { throw new Error("no text support"); };
};
`
	program := script.Build(sampleImage, "Title", "Sub")
	vm := runProgram(t, failingHost, program)

	calls := vm.Get("calls").ToObject(vm)
	echoes := calls.Get("echoes").ToObject(vm)
	if n := echoes.Get("length").ToInteger(); n != 1 {
		t.Fatalf("expected exactly one error report, got %d", n)
	}
	if got := echoes.Get("0").String(); got != "ERROR:title:no text support" {
		t.Fatalf("unexpected error report %q", got)
	}
	if !goja.IsNull(calls.Get("exported")) {
		t.Fatal("expected export to be skipped after a failed step")
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := script.Build(sampleImage, "One", "Two")
	b := script.Build(sampleImage, "One", "Two")
	if a != b {
		t.Fatal("expected identical programs for identical input")
	}
	if !strings.Contains(a, script.Quote(script.BaseLayerName)) {
		t.Fatal("expected base layer rename")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"a\r\nb", "a b"},
		{"a\n\nb", "a b"},
		{"cafe\u0301", "caf\u00e9"},
		{"x\u2029y", "x y"},
	}
	for _, tt := range tests {
		if got := script.CleanText(tt.in); got != tt.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanLabelStripsAnnotations(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Brand (Logo) tagline (Logo)", "Brand tagline"},
		{"((Logo)Logo)", ""},
		{"(Lo(Logo)go)", ""},
		{"Brand (Log(Logo)o)", "Brand"},
		{"(Lo\ngo)", "(Lo go)"},
		{"(logo) stays", "(logo) stays"},
	}
	for _, tt := range tests {
		if got := script.CleanLabel(tt.in); got != tt.want {
			t.Fatalf("CleanLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildNeverEmbedsLogoAnnotation(t *testing.T) {
	inputs := []string{"((Logo)Logo)", "(Lo(Logo)go)", "Brand (Log(Logo)o)", "CORSAIR (Logo)"}
	for _, in := range inputs {
		program := script.Build(sampleImage, in, in)
		if strings.Contains(program, "(Logo)") {
			t.Fatalf("Build(%q) embedded (Logo):\n%s", in, program)
		}
	}

	program := script.Build(sampleImage, "CORSAIR (Logo)", "")
	if !strings.Contains(program, `"CORSAIR"`) {
		t.Fatalf("expected stripped title literal:\n%s", program)
	}
}
