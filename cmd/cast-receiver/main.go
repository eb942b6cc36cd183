// Command cast-receiver is a standalone Cast streaming receiver.
//
// It binds to the address of one network interface, advertises itself
// over mDNS and accepts streaming sessions from cast-sender.
//
// Usage:
//
//	cast-receiver [flags] <interface>
//	cast-receiver -generate-credentials [-credentials-dir dir]
//
// Flags:
//
//	-config string                 YAML configuration file
//	-friendly-name string          Name advertised for discovery
//	-model-name string             Model advertised for discovery
//	-private-key string            Developer root private key (PEM)
//	-developer-certificate string  Developer root certificate (PEM)
//	-generate-credentials          Write a developer root key and certificate, then exit
//	-credentials-dir string        Where -generate-credentials writes (default ".")
//	-disable-discovery             Do not advertise over mDNS
//	-disable-dscp                  Do not mark packets with DSCP AF41
//	-max-bitrate int               Reject offers above this many bits per second
//	-port int                      Listen port (default 8010)
//	-tracing                       Log trace events
//	-trace-file string             Append trace events to a file
//	-trace-categories string       Trace categories (default "all")
//	-verbose                       Enable debug logging
//
// Examples:
//
//	# Create developer credentials once
//	cast-receiver -generate-credentials
//
//	# Serve on eth0 with them
//	cast-receiver -p generated_root_cast_receiver.key \
//	    -d generated_root_cast_receiver.crt eth0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/openscreen/openscreen-go/internal/cmdutil"
	"github.com/openscreen/openscreen-go/pkg/cert"
	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/netif"
	"github.com/openscreen/openscreen-go/pkg/service"
	"github.com/openscreen/openscreen-go/pkg/transport"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// options holds the parsed command line.
type options struct {
	configFile       string
	friendlyName     string
	modelName        string
	privateKey       string
	developerCert    string
	generateCreds    bool
	credentialsDir   string
	disableDiscovery bool
	disableDSCP      bool
	maxBitrate       int
	port             uint
	verbose          bool
	trace            cmdutil.TraceOptions

	// From the config file only.
	endpoint  *ipaddr.Endpoint
	codecs    []wire.VideoCodec
	keepAlive transport.KeepAliveConfig

	iface string
}

func defaultOptions() *options {
	return &options{
		friendlyName:   service.DefaultFriendlyName,
		modelName:      service.DefaultModelName,
		credentialsDir: ".",
		port:           transport.DefaultPort,
		trace:          cmdutil.TraceOptions{Categories: "all"},
		codecs:         append([]wire.VideoCodec(nil), wire.SupportedCodecs...),
		keepAlive:      transport.DefaultKeepAliveConfig(),
	}
}

func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("cast-receiver", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: cast-receiver [flags] <interface>\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.friendlyName, "friendly-name", opts.friendlyName, "Name advertised for discovery")
	fs.StringVar(&opts.modelName, "model-name", opts.modelName, "Model advertised for discovery")
	fs.StringVar(&opts.privateKey, "private-key", "", "Developer root private key (PEM)")
	fs.StringVar(&opts.developerCert, "developer-certificate", "", "Developer root certificate (PEM)")
	fs.BoolVar(&opts.generateCreds, "generate-credentials", false, "Write a developer root key and certificate, then exit")
	fs.StringVar(&opts.credentialsDir, "credentials-dir", opts.credentialsDir, "Where -generate-credentials writes")
	fs.BoolVar(&opts.disableDiscovery, "disable-discovery", false, "Do not advertise over mDNS")
	fs.BoolVar(&opts.disableDSCP, "disable-dscp", false, "Do not mark packets with DSCP AF41")
	fs.IntVar(&opts.maxBitrate, "max-bitrate", 0, "Reject offers above this many bits per second (0 accepts any)")
	fs.UintVar(&opts.port, "port", opts.port, "Listen port")
	fs.BoolVar(&opts.trace.Text, "tracing", false, "Log trace events")
	fs.StringVar(&opts.trace.File, "trace-file", "", "Append trace events to a file")
	fs.StringVar(&opts.trace.Categories, "trace-categories", opts.trace.Categories, "Trace categories, comma separated, or \"all\"")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	// Short forms of the most used flags.
	fs.StringVar(&opts.privateKey, "p", "", "Shorthand for -private-key")
	fs.StringVar(&opts.developerCert, "d", "", "Shorthand for -developer-certificate")
	fs.BoolVar(&opts.generateCreds, "g", false, "Shorthand for -generate-credentials")

	return fs
}

// parseArgs parses the command line and merges the config file, if any.
func parseArgs(args []string, output io.Writer) (*options, error) {
	opts := defaultOptions()
	fs := newFlagSet(opts, output)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", cmdutil.ErrUsage, err)
	}
	if opts.port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", cmdutil.ErrUsage, opts.port)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	explicit["private-key"] = explicit["private-key"] || explicit["p"]
	explicit["developer-certificate"] = explicit["developer-certificate"] || explicit["d"]

	if opts.configFile != "" {
		fc, err := loadFileConfig(opts.configFile)
		if err != nil {
			return nil, err
		}
		fc.apply(opts, explicit)
	}

	if opts.generateCreds {
		return opts, nil
	}

	switch fs.NArg() {
	case 0:
		if opts.iface == "" {
			return nil, fmt.Errorf("%w: no interface name provided", cmdutil.ErrUsage)
		}
	case 1:
		opts.iface = fs.Arg(0)
	default:
		return nil, fmt.Errorf("%w: unexpected arguments %q", cmdutil.ErrUsage, fs.Args()[1:])
	}

	if opts.maxBitrate != 0 && opts.maxBitrate < wire.MinRequiredBitrate {
		return nil, fmt.Errorf("%w: max bitrate %d is less than %d", cmdutil.ErrUsage, opts.maxBitrate, wire.MinRequiredBitrate)
	}
	return opts, nil
}

// loadCredentials loads the developer root and issues a leaf for
// receiverID. Without either path an ephemeral root is generated.
func loadCredentials(opts *options, receiverID string, logger *slog.Logger) (cert.Credentials, error) {
	switch {
	case opts.privateKey != "" && opts.developerCert != "":
		return cert.Load(receiverID, opts.privateKey, opts.developerCert)
	case opts.privateKey == "" && opts.developerCert == "":
		logger.Warn("no developer credentials given, using an ephemeral root; senders cannot verify this receiver")
		return cert.Ephemeral(receiverID)
	default:
		return cert.Credentials{}, fmt.Errorf("%w: -private-key and -developer-certificate must be given together", cmdutil.ErrUsage)
	}
}

// bindEndpoint returns where to listen: the configured endpoint, or the
// interface's address with the configured port.
func bindEndpoint(opts *options) (ipaddr.Endpoint, error) {
	if opts.endpoint != nil {
		return *opts.endpoint, nil
	}
	info, err := netif.ByName(opts.iface)
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	addr, err := info.BindAddress()
	if err != nil {
		return ipaddr.Endpoint{}, err
	}
	return ipaddr.Endpoint{Address: addr, Port: uint16(opts.port)}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	logger := cmdutil.NewLogger(stderr, opts.verbose || opts.trace.Text)

	if opts.generateCreds {
		certPath, keyPath, err := cert.GenerateDeveloperCredentialsToFile(opts.credentialsDir)
		if err != nil {
			logger.Error("failed to generate credentials", "error", err)
			return 1
		}
		fmt.Fprintf(stdout, "Generated developer credentials:\n  private key: %s\n  certificate: %s\n", keyPath, certPath)
		return 0
	}

	receiverID := service.ReceiverID(opts.iface)
	creds, err := loadCredentials(opts, receiverID, logger)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		return 1
	}

	endpoint, err := bindEndpoint(opts)
	if err != nil {
		logger.Error("cannot bind", "interface", opts.iface, "error", err)
		return 1
	}

	tracer, closeTrace, err := cmdutil.NewTracer(logger, opts.trace)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer closeTrace()

	config := service.DefaultReceiverConfig()
	config.Endpoint = endpoint
	config.Interface = opts.iface
	config.ReceiverID = receiverID
	config.Credentials = creds
	config.FriendlyName = opts.friendlyName
	config.ModelName = opts.modelName
	config.EnableDiscovery = !opts.disableDiscovery
	config.SupportedCodecs = opts.codecs
	config.MaxBitrate = opts.maxBitrate
	config.KeepAlive = opts.keepAlive
	config.Logger = logger
	config.Trace = tracer
	config.OnSession = func(stats service.SessionStats) {
		logger.Info("session ended",
			"session", stats.SessionID,
			"codec", stats.Codec.String(),
			"file", stats.FileName,
			"remote", stats.Remote.String(),
			"chunks", stats.Chunks,
			"bytes", stats.Bytes,
			"loops", stats.Loops,
			"duration", stats.Duration)
	}
	if opts.disableDSCP {
		config.DSCP = transport.DSCPDefault
	}

	svc, err := service.NewReceiverService(config)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}
	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start receiver", "error", err)
		return 1
	}

	logger.Info("receiver running, CTRL-C to exit",
		"receiver_id", svc.ReceiverID(),
		"endpoint", svc.Endpoint().String(),
		"discovery", config.EnableDiscovery)

	<-ctx.Done()

	logger.Info("shutting down")
	if err := svc.Stop(); err != nil {
		logger.Warn("error stopping receiver", "error", err)
	}
	logger.Info("bye", "sessions", svc.SessionCount(), "bytes", svc.BytesReceived())
	return 0
}

func main() {
	ctx, stop := cmdutil.SignalContext()
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
