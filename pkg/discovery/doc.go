// Package discovery finds and advertises streaming receivers with mDNS/DNS-SD.
//
// Receivers register a _googlecast._tcp service in the local. domain. The
// instance name is the receiver's friendly name. TXT records carry:
//
//	id  unique receiver id (required)
//	fn  friendly name (required)
//	md  model name (required)
//	ve  TXT format version, currently "02"
//	ca  capability bit mask, decimal (optional)
//
// Browsing aggregates the answers for one instance across interfaces and
// address families into a single ReceiverInfo.
package discovery
