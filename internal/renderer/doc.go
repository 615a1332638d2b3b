// Package renderer is the inbound render interface: it turns a job (source
// image URL, text fields, output name) into a delivered layered document.
//
// Each job is fetched and validated before the engine is touched, rendered
// through the shared bridge, packaged and saved. Jobs issued together are
// started concurrently and serialized by the bridge.
package renderer
