// Package psd writes and inspects layered Photoshop documents.
//
// Only the subset the sandbox engine exports is supported: 8-bit RGB,
// uncompressed channel data, one raster layer per document layer with its
// own transparency, and a flattened composite.
package psd
