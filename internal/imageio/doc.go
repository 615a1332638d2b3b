// Package imageio moves images in and out of the render pipeline.
//
// Source images are fetched over authenticated HTTP, validated by decoding
// their header, and encoded as self-describing data URLs the engine can
// open. Engine output is packaged as a named artifact and delivered to disk
// atomically under a file lock.
package imageio
