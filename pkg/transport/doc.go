// Package transport carries session messages between senders and receivers
// over QUIC.
//
// The transport layer handles:
//   - QUIC connections secured with TLS 1.3
//   - Length-prefixed message framing on each stream
//   - Keep-alive and idle timeouts
//   - DSCP marking of outgoing packets
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│   QUIC stream (TLS 1.3)        │
//	├────────────────────────────────┤
//	│         UDP, IPv4 or IPv6      │
//	└────────────────────────────────┘
//
// # TLS Requirements
//
// The receiver presents a leaf certificate whose DNS name is its receiver
// id, issued by a developer root the sender trusts. The ALPN protocol is
// "osp". Session tickets are disabled.
//
// # Keep-Alive
//
// Liveness uses QUIC keep-alive packets: by default one every 10 seconds,
// with the connection dropped after 30 seconds of silence.
package transport
