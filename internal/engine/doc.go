// Package engine defines the channel contract between layersmith and an
// embedded document engine.
//
// An engine is opaque: it accepts programs through a fire-and-forget Post and
// answers, if at all, with text or binary messages on a shared message bus
// that may also carry chatter from other origins. There is no synchronous
// call/return and no busy query. Everything above this contract (readiness
// tracking, mutual exclusion, deadlines) lives in the bridge package.
//
// Implementations live in the sandbox (in-process script runtime) and process
// (external engine over stdio) subpackages; enginetest provides a scripted
// fake for tests.
package engine
