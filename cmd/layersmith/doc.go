// Command layersmith renders source images into layered documents through an
// embedded document engine.
//
// Commands:
//   - render: fetch one image, add title and subtitle layers, save the document
//   - batch: render every job in a TOML manifest, one engine request at a time
//   - engine check: run preflight checks and boot the configured engine
//   - config init|validate: manage the configuration file
package main
