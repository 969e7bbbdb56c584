// Package connector defines the exchange connector capability consumed by the
// capture engine.
//
// A Connector speaks to one venue. The capture path never sees venue-specific
// payloads or error types: implementations decode into the types here and
// normalize failures with Classify into one of two kinds, transient or fatal.
//
// Venue quirks that are operational history rather than logic live in the
// static policy table (see PolicyFor and Disabled).
package connector
