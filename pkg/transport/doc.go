// Package transport owns the TCP socket beneath a game session.
//
// A Transport is created per connection attempt and discarded on
// disconnect. It exposes blocking ReadLine and WriteLine primitives over a
// newline-delimited byte stream; framing above the line level belongs to
// package protocol.
//
// Close may be called any number of times and from any goroutine. Closing
// unblocks a pending ReadLine, which is how a session cancels its receive
// loop.
package transport
