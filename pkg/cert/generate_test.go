package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGenerateRoot(t *testing.T) {
	root, key, err := GenerateRoot("Test Root", time.Hour)
	if err != nil {
		t.Fatalf("GenerateRoot failed: %v", err)
	}
	if !root.IsCA {
		t.Error("root should be a CA")
	}
	if root.Subject.CommonName != "Test Root" {
		t.Errorf("CommonName = %q", root.Subject.CommonName)
	}
	if key.Curve.Params().Name != "P-256" {
		t.Errorf("curve = %s, want P-256", key.Curve.Params().Name)
	}
	if err := root.CheckSignatureFrom(root); err != nil {
		t.Errorf("root is not self-signed: %v", err)
	}
}

func TestIssueLeafVerifiesAgainstRoot(t *testing.T) {
	root, key, err := GenerateRoot("Test Root", time.Hour)
	if err != nil {
		t.Fatalf("GenerateRoot failed: %v", err)
	}

	leaf, err := IssueLeaf(root, key, "receiver-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueLeaf failed: %v", err)
	}
	if leaf.Leaf == nil || len(leaf.Certificate) != 2 {
		t.Fatalf("unexpected chain: %d certs", len(leaf.Certificate))
	}

	pool := x509.NewCertPool()
	pool.AddCert(root)
	_, err = leaf.Leaf.Verify(x509.VerifyOptions{
		DNSName:   "receiver-1",
		Roots:     pool,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		t.Errorf("leaf does not verify: %v", err)
	}
}

func TestGenerateDeveloperCredentialsToFile(t *testing.T) {
	dir := t.TempDir()

	certPath, keyPath, err := GenerateDeveloperCredentialsToFile(dir)
	if err != nil {
		t.Fatalf("GenerateDeveloperCredentialsToFile failed: %v", err)
	}
	if certPath != filepath.Join(dir, RootCertFile) || keyPath != filepath.Join(dir, RootKeyFile) {
		t.Errorf("paths = %q, %q", certPath, keyPath)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key permissions = %o, want 600", perm)
	}

	creds, err := Load("Standalone Receiver on lo", keyPath, certPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if creds.TLS.Leaf.Subject.CommonName != "Standalone Receiver on lo" {
		t.Errorf("leaf CommonName = %q", creds.TLS.Leaf.Subject.CommonName)
	}

	pool, err := RootPool(certPath)
	if err != nil {
		t.Fatalf("RootPool failed: %v", err)
	}
	if _, err := creds.TLS.Leaf.Verify(x509.VerifyOptions{Roots: pool}); err != nil {
		t.Errorf("leaf does not verify against pool: %v", err)
	}
}

func TestFromRootKeyMismatch(t *testing.T) {
	root, _, err := GenerateRoot("Test Root", time.Hour)
	if err != nil {
		t.Fatalf("GenerateRoot failed: %v", err)
	}
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if _, err := FromRoot("r", root, other); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("FromRoot error = %v, want ErrKeyMismatch", err)
	}
}

func TestEphemeral(t *testing.T) {
	creds, err := Ephemeral("receiver")
	if err != nil {
		t.Fatalf("Ephemeral failed: %v", err)
	}
	if creds.Root == nil || creds.RootKey == nil || creds.TLS.PrivateKey == nil {
		t.Error("incomplete credentials")
	}
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load("r", filepath.Join(dir, "nope.key"), filepath.Join(dir, "nope.crt")); err == nil {
		t.Error("expected error")
	}
}
