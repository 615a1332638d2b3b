// Package services defines shared utilities consumed by the render pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and pipeline stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (timeout, external tool, not found, transient) consistently across the
//     fetcher, the bridge, and the CLI.
//
// Use these helpers when adding new pipeline steps so operational behaviour
// (error classification, observability) stays uniform.
package services
