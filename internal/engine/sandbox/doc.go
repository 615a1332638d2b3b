// Package sandbox runs the document engine in-process on an isolated goja
// runtime.
//
// Each embedded engine owns one runtime on its own goroutine, so programs
// never share state with the host or with other engines. Programs see a
// small document model (app, documents, art layers, text items) and talk
// back only through the message bus: text through app.echoToOE and the
// exported document as a binary message. The engine posts the ready signal
// after boot and again after every program.
package sandbox
