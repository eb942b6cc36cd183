package discovery

import (
	"fmt"
	"sort"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
)

// ReceiverInfo describes one advertised receiver.
type ReceiverInfo struct {
	// Instance is the DNS-SD instance name.
	Instance string

	ID           string
	FriendlyName string
	Model        string
	Version      string
	Capabilities uint64

	// Host is the advertised host name.
	Host string

	Port uint16

	// Addresses are sorted IPv4 first. Link-local IPv6 addresses carry the
	// scope of the interface they were seen on.
	Addresses []ipaddr.Address
}

// Endpoints pairs every address with the service port.
func (r ReceiverInfo) Endpoints() []ipaddr.Endpoint {
	eps := make([]ipaddr.Endpoint, len(r.Addresses))
	for i, a := range r.Addresses {
		eps[i] = ipaddr.Endpoint{Address: a, Port: r.Port}
	}
	return eps
}

// PreferredEndpoint picks the endpoint to connect to: the first IPv4
// address, else the first usable IPv6 one. Link-local IPv6 addresses without
// a scope are unusable.
func (r ReceiverInfo) PreferredEndpoint() (ipaddr.Endpoint, error) {
	for _, a := range r.Addresses {
		if a.Is6() && a.IsLinkLocal() && a.ScopeID() == 0 {
			continue
		}
		return ipaddr.Endpoint{Address: a, Port: r.Port}, nil
	}
	return ipaddr.Endpoint{}, fmt.Errorf("%s: %w", r.Instance, ErrNoAddresses)
}

// String renders a one-line description for menus.
func (r ReceiverInfo) String() string {
	ep, err := r.PreferredEndpoint()
	if err != nil {
		return fmt.Sprintf("%s (%s)", r.FriendlyName, r.Model)
	}
	return fmt.Sprintf("%s (%s) at %s", r.FriendlyName, r.Model, ep)
}

// mergeAddresses adds the addresses in add that are not already present and
// re-sorts.
func mergeAddresses(existing, add []ipaddr.Address) []ipaddr.Address {
	for _, a := range add {
		if !containsAddress(existing, a) {
			existing = append(existing, a)
		}
	}
	sortAddresses(existing)
	return existing
}

// removeAddresses returns addresses without any in drop.
func removeAddresses(addresses, drop []ipaddr.Address) []ipaddr.Address {
	result := make([]ipaddr.Address, 0, len(addresses))
	for _, a := range addresses {
		if !containsAddress(drop, a) {
			result = append(result, a)
		}
	}
	return result
}

func containsAddress(list []ipaddr.Address, a ipaddr.Address) bool {
	for _, b := range list {
		if a == b {
			return true
		}
	}
	return false
}

func sortAddresses(addrs []ipaddr.Address) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
}
