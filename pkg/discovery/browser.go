package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/sockaddr"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is how long Collect waits.
	// Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// EventType says what happened to a receiver.
type EventType int

const (
	EventAdded EventType = iota
	EventUpdated
	EventRemoved
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "ADDED"
	case EventUpdated:
		return "UPDATED"
	case EventRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Event reports a change to the set of visible receivers.
type Event struct {
	Type     EventType
	Receiver ReceiverInfo
}

// ServiceEntry is a raw DNS-SD answer, decoupled from the mDNS library.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	AddrIPv4 []net.IP
	AddrIPv6 []net.IP
}

func entryFromZeroconf(e *zeroconf.ServiceEntry) ServiceEntry {
	return ServiceEntry{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     uint16(e.Port),
		Text:     e.Text,
		AddrIPv4: e.AddrIPv4,
		AddrIPv6: e.AddrIPv6,
	}
}

// ToReceiverInfo decodes the entry. scope is applied to link-local IPv6
// addresses; zero leaves them unscoped.
func (e ServiceEntry) ToReceiverInfo(scope uint32) (ReceiverInfo, error) {
	info := ReceiverInfo{
		Instance: e.Instance,
		Host:     e.Host,
		Port:     e.Port,
	}
	if err := DecodeReceiverTXT(StringsToTXTRecords(e.Text), &info); err != nil {
		return ReceiverInfo{}, err
	}
	info.Addresses = e.addresses(scope)
	return info, nil
}

func (e ServiceEntry) addresses(scope uint32) []ipaddr.Address {
	conv := sockaddr.Default()
	addrs := make([]ipaddr.Address, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	for _, ip := range append(append([]net.IP(nil), e.AddrIPv4...), e.AddrIPv6...) {
		a, err := conv.FromIP(ip, "")
		if err != nil {
			continue
		}
		if scope != 0 && a.IsLinkLocal() {
			if scoped, err := a.WithScope(scope); err == nil {
				a = scoped
			}
		}
		if !containsAddress(addrs, a) {
			addrs = append(addrs, a)
		}
	}
	sortAddresses(addrs)
	return addrs
}

// aggregator merges answers for the same instance.
type aggregator struct {
	scope     uint32
	receivers map[string]*ReceiverInfo
}

func newAggregator(scope uint32) *aggregator {
	return &aggregator{scope: scope, receivers: make(map[string]*ReceiverInfo)}
}

// add folds an answer in and reports the resulting event, if any.
func (a *aggregator) add(e ServiceEntry) (Event, bool) {
	info, err := e.ToReceiverInfo(a.scope)
	if err != nil {
		return Event{}, false
	}

	existing, found := a.receivers[info.Instance]
	if !found {
		a.receivers[info.Instance] = &info
		return Event{Type: EventAdded, Receiver: info}, true
	}

	before := len(existing.Addresses)
	existing.Addresses = mergeAddresses(existing.Addresses, info.Addresses)
	changed := len(existing.Addresses) != before || existing.Port != info.Port ||
		existing.FriendlyName != info.FriendlyName || existing.Model != info.Model
	existing.Port = info.Port
	existing.FriendlyName = info.FriendlyName
	existing.Model = info.Model
	existing.Capabilities = info.Capabilities
	if !changed {
		return Event{}, false
	}
	return Event{Type: EventUpdated, Receiver: cloneInfo(existing)}, true
}

// remove drops the entry's addresses, removing the receiver once none are
// left.
func (a *aggregator) remove(e ServiceEntry) (Event, bool) {
	existing, found := a.receivers[e.Instance]
	if !found {
		return Event{}, false
	}
	existing.Addresses = removeAddresses(existing.Addresses, e.addresses(a.scope))
	if len(existing.Addresses) > 0 {
		return Event{Type: EventUpdated, Receiver: cloneInfo(existing)}, true
	}
	delete(a.receivers, e.Instance)
	return Event{Type: EventRemoved, Receiver: *existing}, true
}

// list returns the current receivers sorted by friendly name, then instance.
func (a *aggregator) list() []ReceiverInfo {
	out := make([]ReceiverInfo, 0, len(a.receivers))
	for _, r := range a.receivers {
		out = append(out, cloneInfo(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FriendlyName != out[j].FriendlyName {
			return out[i].FriendlyName < out[j].FriendlyName
		}
		return out[i].Instance < out[j].Instance
	})
	return out
}

func cloneInfo(r *ReceiverInfo) ReceiverInfo {
	c := *r
	c.Addresses = append([]ipaddr.Address(nil), r.Addresses...)
	return c
}

// Browser finds receivers.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a new browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse streams receiver events until ctx is done, then closes the channel.
func (b *Browser) Browse(ctx context.Context) (<-chan Event, error) {
	opts, scope, err := b.browserOptions()
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		agg := newAggregator(scope)
		for {
			var (
				ev Event
				ok bool
			)
			select {
			case entry, open := <-entries:
				if !open {
					return
				}
				ev, ok = agg.add(entryFromZeroconf(entry))
			case entry, open := <-removed:
				if !open {
					removed = nil
					continue
				}
				ev, ok = agg.remove(entryFromZeroconf(entry))
			case <-ctx.Done():
				return
			}
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Collect browses for the configured timeout, or until ctx is done, and
// returns the receivers still visible at the end.
func (b *Browser) Collect(ctx context.Context) ([]ReceiverInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	events, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	agg := newAggregator(0)
	for ev := range events {
		info := ev.Receiver
		switch ev.Type {
		case EventRemoved:
			delete(agg.receivers, info.Instance)
		default:
			agg.receivers[info.Instance] = &info
		}
	}
	return agg.list(), nil
}

// browserOptions returns zeroconf client options and the scope id for
// link-local answers.
func (b *Browser) browserOptions() ([]zeroconf.ClientOption, uint32, error) {
	if b.config.Interface == "" {
		return nil, 0, nil
	}
	iface, err := net.InterfaceByName(b.config.Interface)
	if err != nil {
		return nil, 0, fmt.Errorf("browse: %w", err)
	}
	return []zeroconf.ClientOption{zeroconf.SelectIfaces([]net.Interface{*iface})}, uint32(iface.Index), nil
}
