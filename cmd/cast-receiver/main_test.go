package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscreen/openscreen-go/internal/cmdutil"
	"github.com/openscreen/openscreen-go/pkg/cert"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs([]string{"eth0"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "eth0", opts.iface)
	assert.Equal(t, "Cast Standalone Receiver", opts.friendlyName)
	assert.Equal(t, "cast_standalone_receiver", opts.modelName)
	assert.Equal(t, uint(transport.DefaultPort), opts.port)
	assert.False(t, opts.disableDiscovery)
	assert.False(t, opts.trace.Enabled())
	assert.Equal(t, wire.SupportedCodecs, opts.codecs)
	assert.Nil(t, opts.endpoint)
}

func TestParseArgsFlags(t *testing.T) {
	opts, err := parseArgs([]string{
		"-friendly-name", "Living Room",
		"-p", "root.key",
		"-d", "root.crt",
		"-disable-discovery",
		"-disable-dscp",
		"-port", "9000",
		"-tracing",
		"-verbose",
		"wlan0",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "wlan0", opts.iface)
	assert.Equal(t, "Living Room", opts.friendlyName)
	assert.Equal(t, "root.key", opts.privateKey)
	assert.Equal(t, "root.crt", opts.developerCert)
	assert.True(t, opts.disableDiscovery)
	assert.True(t, opts.disableDSCP)
	assert.Equal(t, uint(9000), opts.port)
	assert.True(t, opts.trace.Text)
	assert.True(t, opts.verbose)
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no interface", nil},
		{"two interfaces", []string{"eth0", "eth1"}},
		{"unknown flag", []string{"-bogus", "eth0"}},
		{"port out of range", []string{"-port", "70000", "eth0"}},
		{"bitrate too low", []string{"-max-bitrate", "1000", "eth0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args, io.Discard)
			assert.ErrorIs(t, err, cmdutil.ErrUsage)
		})
	}
}

func TestParseArgsGenerateNeedsNoInterface(t *testing.T) {
	opts, err := parseArgs([]string{"-g", "-credentials-dir", "/tmp/creds"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.generateCreds)
	assert.Equal(t, "/tmp/creds", opts.credentialsDir)
}

func TestParseFileConfig(t *testing.T) {
	fc, err := parseFileConfig([]byte(`
interface: eth0
endpoint: "192.168.1.20:8011"
friendly_name: Kitchen
model_name: test_model
disable_discovery: true
max_bitrate: 2000000
codecs: [vp9, av1]
keepalive:
  period: 2s
  idle_timeout: 6s
trace:
  categories: quic,sender
  file: /tmp/receiver.otrace
`))
	require.NoError(t, err)

	assert.Equal(t, "eth0", fc.Interface)
	require.NotNil(t, fc.Endpoint)
	assert.Equal(t, ipaddr.Endpoint{Address: ipaddr.New4(192, 168, 1, 20), Port: 8011}, *fc.Endpoint)
	assert.Equal(t, "Kitchen", fc.FriendlyName)
	require.NotNil(t, fc.DisableDiscovery)
	assert.True(t, *fc.DisableDiscovery)
	assert.Nil(t, fc.DisableDSCP)
	assert.Equal(t, 2000000, fc.MaxBitrate)
	assert.Equal(t, []wire.VideoCodec{wire.CodecVP9, wire.CodecAV1}, fc.Codecs)
	assert.Equal(t, 2*time.Second, fc.KeepAlive.Period)
	assert.Equal(t, 6*time.Second, fc.KeepAlive.IdleTimeout)
	assert.Equal(t, "quic,sender", fc.Trace.Categories)
}

func TestParseFileConfigErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "colour: blue\n",
		"bad endpoint": "endpoint: \"192.168.1.20\"\n",
		"bad codec":    "codecs: [h264]\n",
		"bad duration": "keepalive:\n  period: soon\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseFileConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseFileConfigEmpty(t *testing.T) {
	fc, err := parseFileConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, fc.Endpoint)
}

func TestConfigFileMergesUnderFlags(t *testing.T) {
	path := writeFile(t, "receiver.yaml", `
interface: eth0
friendly_name: From File
model_name: file_model
disable_dscp: true
endpoint: "[::1]:9100"
`)

	opts, err := parseArgs([]string{"-config", path, "-friendly-name", "From Flag", "-port", "9200"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "eth0", opts.iface, "interface comes from the file")
	assert.Equal(t, "From Flag", opts.friendlyName, "flag wins")
	assert.Equal(t, "file_model", opts.modelName)
	assert.True(t, opts.disableDSCP)
	require.NotNil(t, opts.endpoint)
	assert.Equal(t, ipaddr.V6Loopback, opts.endpoint.Address)
	assert.Equal(t, uint16(9200), opts.endpoint.Port, "explicit -port overrides the file endpoint port")

	opts, err = parseArgs([]string{"-config", path, "lo"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "lo", opts.iface, "positional interface wins")
	assert.Equal(t, uint16(9100), opts.endpoint.Port)
}

func TestConfigFileMissing(t *testing.T) {
	_, err := parseArgs([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml"), "eth0"}, io.Discard)
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const id = "Standalone Receiver on eth0"

	t.Run("ephemeral", func(t *testing.T) {
		creds, err := loadCredentials(&options{}, id, logger)
		require.NoError(t, err)
		require.NotNil(t, creds.TLS.Leaf)
		assert.Equal(t, id, creds.TLS.Leaf.Subject.CommonName)
	})

	t.Run("developer root", func(t *testing.T) {
		certPath, keyPath, err := cert.GenerateDeveloperCredentialsToFile(t.TempDir())
		require.NoError(t, err)

		creds, err := loadCredentials(&options{privateKey: keyPath, developerCert: certPath}, id, logger)
		require.NoError(t, err)
		require.NoError(t, creds.TLS.Leaf.CheckSignatureFrom(creds.Root))
	})

	t.Run("half configured", func(t *testing.T) {
		_, err := loadCredentials(&options{privateKey: "root.key"}, id, logger)
		assert.ErrorIs(t, err, cmdutil.ErrUsage)
	})
}

func TestRunGenerateCredentials(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-generate-credentials", "-credentials-dir", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.FileExists(t, filepath.Join(dir, cert.RootCertFile))
	assert.FileExists(t, filepath.Join(dir, cert.RootKeyFile))
	assert.Contains(t, stdout.String(), cert.RootCertFile)
}

func TestRunUsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no interface name provided")
}

func TestRunUnknownInterface(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"no-such-interface0"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "cannot bind")
}

func TestRunServesUntilCancelled(t *testing.T) {
	path := writeFile(t, "receiver.yaml", "endpoint: \"127.0.0.1:0\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"-config", path, "-disable-discovery", "-disable-dscp", "lo"}, &stdout, &stderr)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
