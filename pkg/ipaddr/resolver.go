package ipaddr

import (
	"net"
	"sync"
)

// InterfaceResolver translates between network interface names and the
// numeric indexes used as IPv6 scope ids.
type InterfaceResolver interface {
	// IndexByName returns the index of the named interface.
	IndexByName(name string) (uint32, bool)

	// NameByIndex returns the name of the interface with the given index.
	NameByIndex(index uint32) (string, bool)
}

// DefaultResolver is used by the package-level parse functions and by
// Address.String.
var DefaultResolver InterfaceResolver = NewSystemResolver()

// SystemResolver asks the operating system. Lookups are serialized because
// the underlying platform calls are not reentrant everywhere.
type SystemResolver struct {
	mu sync.Mutex
}

// NewSystemResolver creates a resolver backed by the host's interfaces.
func NewSystemResolver() *SystemResolver {
	return &SystemResolver{}
}

// IndexByName looks up an interface by name.
func (r *SystemResolver) IndexByName(name string) (uint32, bool) {
	if name == "" {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	iface, err := net.InterfaceByName(name)
	if err != nil || iface.Index <= 0 {
		return 0, false
	}
	return uint32(iface.Index), true
}

// NameByIndex looks up an interface by index.
func (r *SystemResolver) NameByIndex(index uint32) (string, bool) {
	if index == 0 {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	iface, err := net.InterfaceByIndex(int(index))
	if err != nil || iface.Name == "" {
		return "", false
	}
	return iface.Name, true
}

// StaticResolver is a fixed name->index table. It is deterministic and
// independent of the host, which makes it the resolver of choice in tests.
type StaticResolver map[string]uint32

// IndexByName returns the index registered for name.
func (s StaticResolver) IndexByName(name string) (uint32, bool) {
	idx, ok := s[name]
	if !ok || idx == 0 {
		return 0, false
	}
	return idx, true
}

// NameByIndex returns the name registered for index. If several names map
// to the same index the lexically smallest wins.
func (s StaticResolver) NameByIndex(index uint32) (string, bool) {
	found := ""
	for name, idx := range s {
		if idx == index && index != 0 && (found == "" || name < found) {
			found = name
		}
	}
	return found, found != ""
}

// Compile-time interface satisfaction checks.
var (
	_ InterfaceResolver = (*SystemResolver)(nil)
	_ InterfaceResolver = StaticResolver(nil)
)
