// Package protocol owns the wire contract shared by the multicast discovery
// socket and the TCP command socket.
//
// Ownership boundary:
// - envelope type set and constants
// - JSON encode/decode with partial-frame detection
// - the timeout-bounded receive loop with echo suppression
package protocol
