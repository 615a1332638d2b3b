package script

import (
	"fmt"
	"strings"
)

// ErrorMarker prefixes every failure report the program sends back. The
// remainder is "<stage>:<detail>".
const ErrorMarker = "ERROR:"

// ExportFormat is the format requested from the engine's export step.
const ExportFormat = "psd"

// Stage names reported in failure messages.
const (
	StageOpen     = "open"
	StageTitle    = "title"
	StageSubtitle = "subtitle"
	StageExport   = "export"
)

// BaseLayerName is assigned to the layer holding the source image.
const BaseLayerName = "Background Image"

// textLayer describes placement of one text layer relative to the document
// size, so layouts hold for any source resolution.
type textLayer struct {
	stage string
	name  string
	// x and y are fractions of the document width and height for the text
	// baseline origin.
	x, y float64
	// size is a fraction of the document height.
	size  float64
	color string
}

var (
	titleLayout = textLayer{
		stage: StageTitle,
		name:  "Title",
		x:     0.06,
		y:     0.16,
		size:  0.08,
		color: "FFFFFF",
	}
	subtitleLayout = textLayer{
		stage: StageSubtitle,
		name:  "Subtitle",
		x:     0.06,
		y:     0.26,
		size:  0.045,
		color: "D9D9D9",
	}
)

// Build returns the engine program for one render request. imageData is the
// self-describing encoded image (a data URL); title and subtitle are raw
// field values and are cleaned and escaped here.
func Build(imageData, title, subtitle string) string {
	title = CleanLabel(title)
	subtitle = CleanLabel(subtitle)

	var b strings.Builder
	b.WriteString("(function () {\n")
	b.WriteString("\tvar doc;\n")

	step(&b, StageOpen,
		fmt.Sprintf("app.open(%s, null, false);", Quote(imageData)),
		"doc = app.activeDocument;",
		fmt.Sprintf("doc.layers[doc.layers.length - 1].name = %s;", Quote(BaseLayerName)),
	)
	if title != "" {
		textStep(&b, titleLayout, title)
	}
	if subtitle != "" {
		textStep(&b, subtitleLayout, subtitle)
	}
	step(&b, StageExport,
		fmt.Sprintf("doc.saveToOE(%s);", Quote(ExportFormat)),
	)

	b.WriteString("})();\n")
	return b.String()
}

func textStep(b *strings.Builder, layout textLayer, text string) {
	v := layout.stage + "Layer"
	c := layout.stage + "Color"
	step(b, layout.stage,
		fmt.Sprintf("var %s = doc.artLayers.add();", v),
		fmt.Sprintf("%s.name = %s;", v, Quote(layout.name)),
		fmt.Sprintf("%s.kind = LayerKind.TEXT;", v),
		fmt.Sprintf("var %s = new SolidColor();", c),
		fmt.Sprintf("%s.rgb.hexValue = %s;", c, Quote(layout.color)),
		fmt.Sprintf("%s.textItem.contents = %s;", v, Quote(text)),
		fmt.Sprintf("%s.textItem.size = Math.max(1, Math.round(doc.height * %g));", v, layout.size),
		fmt.Sprintf("%s.textItem.color = %s;", v, c),
		fmt.Sprintf("%s.textItem.position = [Math.round(doc.width * %g), Math.round(doc.height * %g)];", v, layout.x, layout.y),
	)
}

// step wraps statements in their own try/catch. A failure reports the stage
// and returns from the program so later steps never run.
func step(b *strings.Builder, stage string, statements ...string) {
	b.WriteString("\ttry {\n")
	for _, s := range statements {
		b.WriteString("\t\t")
		b.WriteString(s)
		b.WriteByte('\n')
	}
	b.WriteString("\t} catch (e) {\n")
	fmt.Fprintf(b, "\t\tapp.echoToOE(%s + (e && e.message ? e.message : String(e)));\n", Quote(ErrorMarker+stage+":"))
	b.WriteString("\t\treturn;\n")
	b.WriteString("\t}\n")
}
