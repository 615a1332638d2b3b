// Package preflight checks that the environment can run renders: output
// directories are writable, the configured engine binary resolves, and the
// engine boots to readiness.
package preflight
