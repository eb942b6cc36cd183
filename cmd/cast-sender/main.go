// Command cast-sender streams a media file to a Cast receiver.
//
// Usage:
//
//	cast-sender [flags] <network_interface> <media_file>
//	cast-sender [flags] <addr[:port]> <media_file>
//
// The first form discovers receivers reachable from the interface and lets
// the user choose one from a menu. The second connects directly, e.g. to
// 192.168.1.22, 192.168.1.22:8010 or [::1]:8010.
//
// Flags:
//
//	-android-hack                  Use legacy RTP payload types for old Android TV receivers
//	-codec string                  Video codec: vp8, vp9, av1 (default "vp8")
//	-developer-certificate string  Trust this developer root certificate
//	-receiver-id string            Expected receiver certificate name
//	-max-bitrate int               Maximum bits per second (default 5242880)
//	-max-loops int                 Stop after this many restarts (0 is unlimited)
//	-connect-attempts int          Dial attempts before giving up (default 3)
//	-no-looping                    Play the file once
//	-disable-dscp                  Do not mark packets with DSCP AF41
//	-remoting                      Remote content instead of mirroring
//	-tracing                       Log trace events
//	-trace-file string             Append trace events to a file
//	-trace-categories string       Trace categories (default "all")
//	-verbose                       Enable debug logging
//
// Exit status is 2 when no receiver was chosen and 1 on any other error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openscreen/openscreen-go/internal/cmdutil"
	"github.com/openscreen/openscreen-go/pkg/cert"
	"github.com/openscreen/openscreen-go/pkg/discovery"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/netif"
	"github.com/openscreen/openscreen-go/pkg/service"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// options holds the parsed command line.
type options struct {
	androidHack   bool
	codec         wire.VideoCodec
	developerCert string
	receiverID    string
	maxBitrate    int
	maxLoops      int
	attempts      int
	noLooping     bool
	disableDSCP   bool
	remoting      bool
	verbose       bool
	trace         cmdutil.TraceOptions

	target    string
	mediaFile string
}

func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("cast-sender", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: cast-sender [flags] <network_interface | addr[:port]> <media_file>\n\n")
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.androidHack, "android-hack", false, "Use legacy RTP payload types for old Android TV receivers")
	fs.TextVar(&opts.codec, "codec", wire.CodecVP8, "Video codec: vp8, vp9, av1")
	fs.StringVar(&opts.developerCert, "developer-certificate", "", "Trust this developer root certificate")
	fs.StringVar(&opts.receiverID, "receiver-id", "", "Expected receiver certificate name (checked only with -developer-certificate)")
	fs.IntVar(&opts.maxBitrate, "max-bitrate", wire.DefaultMaxBitrate, "Maximum bits per second")
	fs.IntVar(&opts.maxLoops, "max-loops", 0, "Stop after this many restarts (0 is unlimited)")
	fs.IntVar(&opts.attempts, "connect-attempts", service.DefaultConnectAttempts, "Dial attempts before giving up")
	fs.BoolVar(&opts.noLooping, "no-looping", false, "Play the file once")
	fs.BoolVar(&opts.disableDSCP, "disable-dscp", false, "Do not mark packets with DSCP AF41")
	fs.BoolVar(&opts.remoting, "remoting", false, "Remote content instead of mirroring")
	fs.BoolVar(&opts.trace.Text, "tracing", false, "Log trace events")
	fs.StringVar(&opts.trace.File, "trace-file", "", "Append trace events to a file")
	fs.StringVar(&opts.trace.Categories, "trace-categories", "all", "Trace categories, comma separated, or \"all\"")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	return fs
}

func parseArgs(args []string, output io.Writer) (*options, error) {
	opts := &options{}
	fs := newFlagSet(opts, output)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", cmdutil.ErrUsage, err)
	}

	if opts.maxBitrate < wire.MinRequiredBitrate {
		return nil, fmt.Errorf("%w: max bitrate %d is less than %d", cmdutil.ErrUsage, opts.maxBitrate, wire.MinRequiredBitrate)
	}
	if opts.maxLoops < 0 {
		return nil, fmt.Errorf("%w: negative max loops", cmdutil.ErrUsage)
	}
	if fs.NArg() != 2 {
		return nil, fmt.Errorf("%w: expected a receiver and a media file", cmdutil.ErrUsage)
	}
	opts.target = fs.Arg(0)
	opts.mediaFile = fs.Arg(1)
	return opts, nil
}

// parseAsEndpoint reads s as an endpoint, or as an address on the default
// port. Anything else yields a zero endpoint.
func parseAsEndpoint(s string) ipaddr.Endpoint {
	if ep, err := ipaddr.ParseEndpoint(s); err == nil {
		return ep
	}
	if addr, err := ipaddr.Parse(s); err == nil {
		return ipaddr.Endpoint{Address: addr, Port: transport.DefaultPort}
	}
	return ipaddr.Endpoint{}
}

// resolver turns a command line target into a receiver endpoint.
type resolver struct {
	discover func(ctx context.Context, iface string) ([]discovery.ReceiverInfo, error)
	choose   func([]discovery.ReceiverInfo) (discovery.ReceiverInfo, error)
}

// resolve returns the endpoint target names. A target that is not an
// endpoint must name an interface; receivers found on it are offered to
// choose. errNoReceiver means nothing usable was found or chosen.
func (r resolver) resolve(ctx context.Context, target string) (ipaddr.Endpoint, error) {
	if ep := parseAsEndpoint(target); ep.Port != 0 {
		return ep, nil
	}

	if _, err := netif.ByName(target); err != nil {
		return ipaddr.Endpoint{}, fmt.Errorf("%w: %q is neither an endpoint nor an interface", errNoReceiver, target)
	}

	receivers, err := r.discover(ctx, target)
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	chosen, err := r.choose(receivers)
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	ep, err := chosen.PreferredEndpoint()
	if err != nil {
		return ipaddr.Endpoint{}, fmt.Errorf("%w: %v", errNoReceiver, err)
	}
	return ep, nil
}

func discoverOn(ctx context.Context, iface string) ([]discovery.ReceiverInfo, error) {
	config := discovery.DefaultBrowserConfig()
	config.Interface = iface
	return discovery.NewBrowser(config).Collect(ctx)
}

func chooseInteractively(receivers []discovery.ReceiverInfo) (discovery.ReceiverInfo, error) {
	if len(receivers) == 0 {
		return discovery.ReceiverInfo{}, errNoReceiver
	}
	rl, err := newPrompt()
	if err != nil {
		return discovery.ReceiverInfo{}, err
	}
	defer rl.Close()
	return chooseReceiver(receivers, rl, rl.Stdout())
}

// senderTLS trusts the developer root when given. Without it receivers
// are not verified, since no official trust store is bundled.
func senderTLS(opts *options, logger *slog.Logger) (*transport.TLSConfig, error) {
	if opts.developerCert == "" {
		logger.Warn("no developer certificate given, receiver certificates are not verified")
		return &transport.TLSConfig{InsecureSkipVerify: true}, nil
	}
	pool, err := cert.RootPool(opts.developerCert)
	if err != nil {
		return nil, fmt.Errorf("load developer certificate: %w", err)
	}
	logger.Info("using developer root", "path", opts.developerCert)
	return &transport.TLSConfig{RootCAs: pool, ServerName: opts.receiverID}, nil
}

func senderConfig(opts *options, tlsConfig *transport.TLSConfig, logger *slog.Logger) service.SenderConfig {
	config := service.DefaultSenderConfig()
	config.TLSConfig = tlsConfig
	config.Codec = opts.codec
	config.MaxBitrate = opts.maxBitrate
	config.Remoting = opts.remoting
	config.AndroidRTPHack = opts.androidHack
	config.Looping = !opts.noLooping
	config.MaxLoops = opts.maxLoops
	config.ConnectAttempts = opts.attempts
	config.Logger = logger
	if opts.disableDSCP {
		config.DSCP = transport.DSCPDefault
	}
	return config
}

func run(ctx context.Context, args []string, r resolver, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	logger := cmdutil.NewLogger(stderr, opts.verbose || opts.trace.Text)

	media, err := os.Open(opts.mediaFile)
	if err != nil {
		logger.Error("cannot open media file", "error", err)
		return 1
	}
	defer media.Close()

	tlsConfig, err := senderTLS(opts, logger)
	if err != nil {
		logger.Error("invalid credentials", "error", err)
		return 1
	}

	tracer, closeTrace, err := cmdutil.NewTracer(logger, opts.trace)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer closeTrace()

	remote, err := r.resolve(ctx, opts.target)
	if err != nil {
		if errors.Is(err, errNoReceiver) {
			logger.Error("no cast receiver chosen, or bad command-line argument; cannot continue", "error", err)
			return 2
		}
		logger.Error("discovery failed", "error", err)
		return 1
	}

	config := senderConfig(opts, tlsConfig, logger)
	config.Trace = tracer
	sender, err := service.NewSender(config)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	logger.Info("connecting", "receiver", remote.String(), "codec", opts.codec.String(), "looping", config.Looping)
	stats, err := sender.Run(ctx, remote, media, filepath.Base(opts.mediaFile))
	if err != nil {
		logger.Error("session failed", "receiver", remote.String(), "error", err)
		return 1
	}

	logger.Info("session finished",
		"session", stats.SessionID,
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"acked_bytes", stats.AckedBytes,
		"loops", stats.Loops,
		"duration", stats.Duration)
	return 0
}

func main() {
	ctx, stop := cmdutil.SignalContext()
	code := run(ctx, os.Args[1:], resolver{discover: discoverOn, choose: chooseInteractively}, os.Stderr)
	stop()
	os.Exit(code)
}
