package service

import (
	"bytes"
	"context"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscreen/openscreen-go/pkg/cert"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// sessionRecorder collects finished receiver sessions.
type sessionRecorder struct {
	mu       sync.Mutex
	sessions []SessionStats
	done     chan struct{}
}

func newSessionRecorder() *sessionRecorder {
	return &sessionRecorder{done: make(chan struct{}, 16)}
}

func (r *sessionRecorder) record(s SessionStats) {
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *sessionRecorder) wait(t *testing.T) SessionStats {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not finish the session")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[len(r.sessions)-1]
}

// startReceiver runs a receiver on an ephemeral loopback port and returns
// the TLS settings a sender needs to trust it.
func startReceiver(t *testing.T, modify func(*ReceiverConfig)) (*ReceiverService, *transport.TLSConfig, *sessionRecorder) {
	t.Helper()

	id := ReceiverID("lo")
	creds, err := cert.Ephemeral(id)
	require.NoError(t, err)

	rec := newSessionRecorder()
	config := DefaultReceiverConfig()
	config.Endpoint = ipaddr.Endpoint{Address: ipaddr.V4Loopback}
	config.Interface = "lo"
	config.Credentials = creds
	config.EnableDiscovery = false
	config.DSCP = transport.DSCPDefault
	config.OnSession = rec.record
	if modify != nil {
		modify(&config)
	}

	svc, err := NewReceiverService(config)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Stop() })

	pool := x509.NewCertPool()
	pool.AddCert(creds.Root)
	return svc, &transport.TLSConfig{RootCAs: pool, ServerName: id}, rec
}

func testSenderConfig(tlsConf *transport.TLSConfig) SenderConfig {
	config := DefaultSenderConfig()
	config.TLSConfig = tlsConf
	config.Looping = false
	config.Pace = false
	config.ChunkSize = 4
	config.DSCP = transport.DSCPDefault
	return config
}

func TestSessionEndToEnd(t *testing.T) {
	receiver, tlsConf, rec := startReceiver(t, nil)

	sender, err := NewSender(testSenderConfig(tlsConf))
	require.NoError(t, err)

	media := []byte("0123456789abcdefghij!")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := sender.Run(ctx, receiver.Endpoint(), bytes.NewReader(media), "clip.webm")
	require.NoError(t, err)

	assert.NotZero(t, stats.SessionID)
	assert.Equal(t, uint64(len(media)), stats.Bytes)
	assert.Equal(t, uint64(6), stats.Chunks)
	assert.Equal(t, stats.Bytes, stats.AckedBytes)
	assert.Zero(t, stats.Loops)

	got := rec.wait(t)
	assert.Equal(t, stats.SessionID, got.SessionID)
	assert.Equal(t, "clip.webm", got.FileName)
	assert.Equal(t, wire.CodecVP8, got.Codec)
	assert.Equal(t, uint64(len(media)), got.Bytes)
	assert.Equal(t, uint64(1), receiver.SessionCount())
	assert.Equal(t, uint64(len(media)), receiver.BytesReceived())
}

func TestSessionLoopsUpToMax(t *testing.T) {
	receiver, tlsConf, rec := startReceiver(t, nil)

	config := testSenderConfig(tlsConf)
	config.Looping = true
	config.MaxLoops = 2
	sender, err := NewSender(config)
	require.NoError(t, err)

	media := []byte("abcdefgh")
	stats, err := sender.Run(context.Background(), receiver.Endpoint(), bytes.NewReader(media), "loop.webm")
	require.NoError(t, err)

	assert.Equal(t, uint32(2), stats.Loops)
	assert.Equal(t, uint64(3*len(media)), stats.Bytes)
	assert.Equal(t, uint32(2), rec.wait(t).Loops)
}

func TestSessionStopsCleanlyOnCancel(t *testing.T) {
	receiver, tlsConf, rec := startReceiver(t, nil)

	config := testSenderConfig(tlsConf)
	config.Looping = true
	config.Pace = true
	config.MaxBitrate = wire.MinRequiredBitrate
	config.ChunkSize = 1024
	sender, err := NewSender(config)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	stats, err := sender.Run(ctx, receiver.Endpoint(), bytes.NewReader(bytes.Repeat([]byte{7}, 4096)), "long.webm")
	require.NoError(t, err)
	assert.NotZero(t, stats.Bytes)
	assert.Equal(t, stats.Bytes, stats.AckedBytes)
	assert.Equal(t, stats.Bytes, rec.wait(t).Bytes)
}

func TestOfferRejected(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ReceiverConfig)
		sender func(*SenderConfig)
	}{
		{
			name:   "unsupported codec",
			modify: func(c *ReceiverConfig) { c.SupportedCodecs = []wire.VideoCodec{wire.CodecVP8} },
			sender: func(c *SenderConfig) { c.Codec = wire.CodecAV1 },
		},
		{
			name:   "bitrate too high",
			modify: func(c *ReceiverConfig) { c.MaxBitrate = wire.MinRequiredBitrate },
			sender: func(c *SenderConfig) { c.MaxBitrate = wire.DefaultMaxBitrate },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver, tlsConf, _ := startReceiver(t, tt.modify)

			config := testSenderConfig(tlsConf)
			tt.sender(&config)
			sender, err := NewSender(config)
			require.NoError(t, err)

			_, err = sender.Run(context.Background(), receiver.Endpoint(), bytes.NewReader([]byte("x")), "x")
			assert.ErrorIs(t, err, ErrRejected)
			assert.Zero(t, receiver.SessionCount())
		})
	}
}

func TestSenderWrongReceiverName(t *testing.T) {
	receiver, tlsConf, _ := startReceiver(t, nil)

	wrong := *tlsConf
	wrong.ServerName = ReceiverID("eth9")
	sender, err := NewSender(testSenderConfig(&wrong))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = sender.Run(ctx, receiver.Endpoint(), bytes.NewReader([]byte("x")), "x")
	assert.Error(t, err)
}

func TestSenderCancelWhileAwaitingAnswer(t *testing.T) {
	id := ReceiverID("lo")
	creds, err := cert.Ephemeral(id)
	require.NoError(t, err)

	offered := make(chan struct{}, 1)
	server, err := transport.NewServer(transport.ServerConfig{
		ListenConfig: transport.ListenConfig{TLSConfig: &transport.TLSConfig{Certificate: creds.TLS}},
		Endpoint:     ipaddr.Endpoint{Address: ipaddr.V4Loopback},
		OnStream: func(ctx context.Context, stream *transport.Stream) {
			if _, err := stream.ReadMessage(); err == nil {
				offered <- struct{}{}
			}
			<-ctx.Done()
		},
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { server.Stop() })

	pool := x509.NewCertPool()
	pool.AddCert(creds.Root)
	config := testSenderConfig(&transport.TLSConfig{RootCAs: pool, ServerName: id})
	config.AnswerTimeout = 5 * time.Second
	sender, err := NewSender(config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-offered:
		case <-time.After(5 * time.Second):
		}
		cancel()
	}()

	start := time.Now()
	_, err = sender.Run(ctx, server.Endpoint(), bytes.NewReader([]byte("x")), "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestReceiverLifecycle(t *testing.T) {
	creds, err := cert.Ephemeral(ReceiverID("lo"))
	require.NoError(t, err)

	config := DefaultReceiverConfig()
	config.Endpoint = ipaddr.Endpoint{Address: ipaddr.V4Loopback}
	config.Interface = "lo"
	config.Credentials = creds
	config.EnableDiscovery = false
	config.DSCP = transport.DSCPDefault

	svc, err := NewReceiverService(config)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, svc.State())
	assert.ErrorIs(t, svc.Stop(), ErrNotStarted)

	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, StateRunning, svc.State())
	assert.NotZero(t, svc.Endpoint().Port)
	assert.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, svc.Stop())
	assert.Equal(t, StateStopped, svc.State())
}

func TestReceiverIdentity(t *testing.T) {
	creds, err := cert.Ephemeral(ReceiverID("eth0"))
	require.NoError(t, err)

	config := DefaultReceiverConfig()
	config.Interface = "eth0"
	config.Credentials = creds
	svc, err := NewReceiverService(config)
	require.NoError(t, err)

	assert.Equal(t, "Standalone Receiver on eth0", svc.ReceiverID())
	id := svc.UniqueID()
	assert.Len(t, id, 32)
	assert.Equal(t, id, svc.UniqueID(), "unique id must be stable")

	other, err := NewReceiverService(ReceiverConfig{
		Interface:       "eth1",
		Credentials:     creds,
		SupportedCodecs: wire.SupportedCodecs,
	})
	require.NoError(t, err)
	assert.NotEqual(t, id, other.UniqueID())
	assert.Equal(t, DefaultFriendlyName, other.config.FriendlyName)
}

func TestConfigValidation(t *testing.T) {
	creds, err := cert.Ephemeral("x")
	require.NoError(t, err)

	rc := DefaultReceiverConfig()
	assert.ErrorIs(t, rc.Validate(), ErrInvalidConfig, "credentials required")
	rc.Credentials = creds
	assert.ErrorIs(t, rc.Validate(), ErrInvalidConfig, "id or interface required")
	rc.Interface = "lo"
	assert.NoError(t, rc.Validate())
	rc.SupportedCodecs = nil
	assert.ErrorIs(t, rc.Validate(), ErrInvalidConfig)

	sc := DefaultSenderConfig()
	assert.ErrorIs(t, sc.Validate(), ErrInvalidConfig, "TLS required")
	sc.TLSConfig = &transport.TLSConfig{InsecureSkipVerify: true}
	assert.NoError(t, sc.Validate())

	low := sc
	low.MaxBitrate = wire.MinRequiredBitrate - 1
	assert.ErrorIs(t, low.Validate(), ErrInvalidConfig)

	badCodec := sc
	badCodec.Codec = 0
	assert.ErrorIs(t, badCodec.Validate(), ErrInvalidConfig)

	hugeChunk := sc
	hugeChunk.ChunkSize = transport.DefaultMaxMessageSize
	assert.ErrorIs(t, hugeChunk.Validate(), ErrInvalidConfig)
}

func TestServiceStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "STOPPED", StateStopped.String())
	assert.Equal(t, "UNKNOWN", ServiceState(42).String())
}

func TestPacerDelay(t *testing.T) {
	p := newPacer(8000, true)
	p.sent = 500
	assert.Equal(t, 500*time.Millisecond, p.delay())

	off := newPacer(8000, false)
	assert.True(t, off.wait(context.Background(), 1<<20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := newPacer(8, true)
	assert.False(t, slow.wait(ctx, 100), "cancelled context should stop the wait")
}
