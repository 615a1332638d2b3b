// Package bridge drives an embedded document engine as if it offered a
// request/response API.
//
// The engine only understands fire-and-forget programs and answers on a bus
// shared with unrelated chatter. It runs one program at a time and corrupts
// its document state when programs overlap. The Bridge therefore owns the
// single engine endpoint and layers on top of it:
//
//   - a lifecycle that boots the engine lazily and declares it ready on the
//     first of its explicit ready signal or a grace period after load,
//   - a single-flight slot that admits one render at a time in FIFO order,
//     with a queue timeout and a processing ceiling that both trigger a full
//     reset of the bridge,
//   - a collector holding the one pending result, classifying inbound
//     messages and enforcing the result deadline.
//
// Deadlines are layered: readiness grace (3s) < queue wait (30s) < result
// wait (60s) < processing ceiling (90s). They are fixed and not configurable.
package bridge
