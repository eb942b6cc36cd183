package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Interface restricts advertising to one interface. Empty means all.
	Interface string

	// TTL overrides the record TTL. Zero uses the library default.
	TTL time.Duration
}

// Publisher advertises one receiver.
type Publisher struct {
	config PublisherConfig

	mu       sync.Mutex
	server   *zeroconf.Server
	instance string
}

// NewPublisher creates a publisher. Nothing is advertised until Publish.
func NewPublisher(config PublisherConfig) *Publisher {
	return &Publisher{config: config}
}

// Publish starts advertising info, replacing any earlier advertisement.
func (p *Publisher) Publish(info *ReceiverInfo) error {
	if info.Port == 0 {
		return errors.New("publish: port is required")
	}
	instance := info.Instance
	if instance == "" {
		instance = InstanceName(info.FriendlyName)
	}
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}

	var ifaces []net.Interface
	if p.config.Interface != "" {
		iface, err := net.InterfaceByName(p.config.Interface)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		ifaces = []net.Interface{*iface}
	}

	var opts []zeroconf.ServerOption
	if p.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(p.config.TTL.Seconds())))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		p.server.Shutdown()
		p.server = nil
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeReceiverTXT(info)),
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register receiver service: %w", err)
	}

	p.server = server
	p.instance = instance
	return nil
}

// Instance returns the published instance name, or "" when not publishing.
func (p *Publisher) Instance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instance
}

// Stop withdraws the advertisement.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		p.server.Shutdown()
		p.server = nil
		p.instance = ""
	}
}
