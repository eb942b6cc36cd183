package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// TLS constants.
const (
	// ALPNProtocol is the application protocol negotiated on every
	// connection.
	ALPNProtocol = "osp"

	// DefaultPort is the port receivers listen on unless told otherwise.
	DefaultPort = 8010
)

// TLSConfig holds the credentials for one side of a connection.
type TLSConfig struct {
	// Certificate is presented to the peer. Required for servers.
	Certificate tls.Certificate

	// RootCAs verifies the server. Clients only.
	RootCAs *x509.CertPool

	// ServerName is the expected name in the server certificate. When
	// empty, only the chain to RootCAs is checked.
	ServerName string

	// InsecureSkipVerify disables certificate verification. Tests and
	// senders without a developer certificate only.
	InsecureSkipVerify bool
}

// NewServerTLSConfig creates a TLS configuration for a receiver.
func NewServerTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, errors.New("TLSConfig is required")
	}
	if len(cfg.Certificate.Certificate) == 0 {
		return nil, errors.New("server certificate is required")
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cfg.Certificate},
		NextProtos:   []string{ALPNProtocol},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		SessionTicketsDisabled: true,
	}, nil
}

// NewClientTLSConfig creates a TLS configuration for a sender.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, errors.New("TLSConfig is required")
	}
	if cfg.RootCAs == nil && !cfg.InsecureSkipVerify {
		return nil, errors.New("root CAs are required unless verification is skipped")
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,
		RootCAs:    cfg.RootCAs,
		ServerName: cfg.ServerName,
		NextProtos: []string{ALPNProtocol},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		SessionTicketsDisabled: true,
		InsecureSkipVerify:     cfg.InsecureSkipVerify,
	}
	if len(cfg.Certificate.Certificate) > 0 {
		tlsConfig.Certificates = []tls.Certificate{cfg.Certificate}
	}

	// Without an expected name, still require a chain to RootCAs.
	if cfg.RootCAs != nil && cfg.ServerName == "" && !cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyPeerCertificate = verifyChain(cfg.RootCAs)
	}
	return tlsConfig, nil
}

// verifyChain checks the peer's chain against roots, ignoring its name.
func verifyChain(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("peer presented no certificate")
		}
		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			c, err := x509.ParseCertificate(raw)
			if err != nil {
				return fmt.Errorf("parse peer certificate: %w", err)
			}
			certs = append(certs, c)
		}

		intermediates := x509.NewCertPool()
		for _, c := range certs[1:] {
			intermediates.AddCert(c)
		}
		_, err := certs[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})
		return err
	}
}

// VerifyTLS13 checks that a connection negotiated TLS 1.3.
func VerifyTLS13(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS version %x is not TLS 1.3 (0x0304)", state.Version)
	}
	return nil
}

// VerifyALPN checks the negotiated application protocol.
func VerifyALPN(state tls.ConnectionState) error {
	if state.NegotiatedProtocol != ALPNProtocol {
		return fmt.Errorf("ALPN protocol %q is not %q", state.NegotiatedProtocol, ALPNProtocol)
	}
	return nil
}

// VerifyConnection runs VerifyTLS13 and VerifyALPN.
func VerifyConnection(state tls.ConnectionState) error {
	if err := VerifyTLS13(state); err != nil {
		return err
	}
	return VerifyALPN(state)
}
