// Package cert creates and loads the TLS credentials used by the
// receiver and trusted by the sender.
//
// A developer root certificate (a self-signed CA) is generated once with
// GenerateDeveloperCredentialsToFile. At start-up the receiver loads the
// root and its key and issues itself a short-lived leaf certificate.
package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"time"
)

// Default file names written by GenerateDeveloperCredentialsToFile.
const (
	RootCertFile = "generated_root_cast_receiver.crt"
	RootKeyFile  = "generated_root_cast_receiver.key"
)

// Validity periods.
const (
	RootValidity = 365 * 24 * time.Hour
	LeafValidity = 4 * 24 * time.Hour
)

// ErrKeyMismatch is returned when a certificate does not belong to a key.
var ErrKeyMismatch = errors.New("certificate does not match private key")

// Credentials are what a receiver serves TLS with.
type Credentials struct {
	Root    *x509.Certificate
	RootKey *ecdsa.PrivateKey
	TLS     tls.Certificate
}

// GenerateRoot creates a self-signed CA certificate and its P-256 key.
func GenerateRoot(commonName string, validity time.Duration) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Open Screen"},
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}
	return cert, key, nil
}

// IssueLeaf creates a server certificate for commonName signed by root.
func IssueLeaf(root *x509.Certificate, rootKey *ecdsa.PrivateKey, commonName string, validity time.Duration) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := newSerial()
	if err != nil {
		return tls.Certificate{}, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: commonName,
		},
		DNSNames:              []string{commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, root, &key.PublicKey, rootKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der, root.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// GenerateDeveloperCredentialsToFile writes a fresh root certificate and key
// into dir and returns their paths.
func GenerateDeveloperCredentialsToFile(dir string) (certPath, keyPath string, err error) {
	root, key, err := GenerateRoot("Cast Root CA", RootValidity)
	if err != nil {
		return "", "", err
	}

	certPath = filepath.Join(dir, RootCertFile)
	keyPath = filepath.Join(dir, RootKeyFile)
	if err := WriteKeyFile(keyPath, key); err != nil {
		return "", "", fmt.Errorf("write key: %w", err)
	}
	if err := WriteCertFile(certPath, root); err != nil {
		return "", "", fmt.Errorf("write certificate: %w", err)
	}
	return certPath, keyPath, nil
}

// Load reads the root certificate and key and issues a leaf for receiverID.
func Load(receiverID, keyPath, certPath string) (Credentials, error) {
	key, err := ReadKeyFile(keyPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read private key: %w", err)
	}
	root, err := ReadCertFile(certPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read certificate: %w", err)
	}
	return FromRoot(receiverID, root, key)
}

// FromRoot issues a leaf for receiverID from an in-memory root.
func FromRoot(receiverID string, root *x509.Certificate, key *ecdsa.PrivateKey) (Credentials, error) {
	pub, ok := root.PublicKey.(*ecdsa.PublicKey)
	if !ok || !pub.Equal(&key.PublicKey) {
		return Credentials{}, ErrKeyMismatch
	}

	leaf, err := IssueLeaf(root, key, receiverID, LeafValidity)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Root: root, RootKey: key, TLS: leaf}, nil
}

// Ephemeral generates a throwaway root and leaf, for a receiver started
// without developer credentials.
func Ephemeral(receiverID string) (Credentials, error) {
	root, key, err := GenerateRoot("Cast Ephemeral Root", LeafValidity)
	if err != nil {
		return Credentials{}, err
	}
	return FromRoot(receiverID, root, key)
}

// RootPool returns a pool trusting the root certificate at path.
func RootPool(path string) (*x509.CertPool, error) {
	root, err := ReadCertFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(root)
	return pool, nil
}

func newSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	return serial, nil
}
