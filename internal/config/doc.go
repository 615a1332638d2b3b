// Package config loads, normalizes, and validates layersmith configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAYERSMITH_AUTH_TOKEN. The Config type centralizes the knobs the CLI needs
// to locate the output directory, pick a rendering engine, and authenticate
// source image downloads.
//
// Bridge timeouts are deliberately absent: they are fixed by the bridge and
// never exposed to callers.
package config
