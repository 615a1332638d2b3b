// Package script synthesizes the program the document engine runs for one
// render request.
//
// Build is pure and deterministic. The generated program opens the encoded
// source image as a document, names its base layer, adds a text layer for the
// title and one for the subtitle when those are non-empty, and exports the
// layered document back over the engine channel. Every step carries its own
// error boundary that reports ErrorMarker followed by the failing stage and
// stops the program, so a failure is always answered with exactly one
// terminal message.
package script
