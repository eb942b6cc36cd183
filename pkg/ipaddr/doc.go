// Package ipaddr provides the IPv4/IPv6 address and endpoint values used by
// every layer of the stack: socket binding, QUIC addressing, discovery and
// the command line front ends.
//
// # Values
//
// Address holds either 4 bytes (IPv4) or 16 bytes (IPv6) plus an optional
// scope id for IPv6 link-local addresses. Endpoint pairs an Address with a
// port. Both are immutable, comparable values and can be used as map keys.
//
// # Text Format
//
//	192.168.0.1
//	fe80:0000:0000:0000:0000:0000:0000:0001%eth0
//	192.168.0.1:8010
//	[abcd:0000:0000:0000:0000:0000:0000:0001]:8010
//
// IPv6 output is never compressed. Input may use a single "::" zero run and,
// for link-local addresses, a "%" suffix naming an interface or a numeric
// scope id. Host names are never resolved.
//
// # Interface Names
//
// Scope suffixes are translated through an InterfaceResolver. Parser lets
// callers inject one; the package-level functions use DefaultResolver, which
// asks the operating system.
package ipaddr
