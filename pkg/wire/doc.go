// Package wire defines the CBOR messages of a streaming session.
//
// A session runs on one bidirectional stream. The sender opens it with an
// Offer, the receiver replies with an Answer, and on acceptance the sender
// sends MediaChunk messages followed by an EndOfStream. Each message is
// wrapped in an envelope {1: type, 2: payload} and carried in one
// length-prefixed frame.
package wire
