// Command fastpair-sim pairs with a simulated accessory.
//
// It runs the real pairing state machine against the in-memory provider and
// radio, which makes it useful for exploring the protocol, recording
// protocol logs and checking configuration files.
//
// Usage:
//
//	fastpair-sim [flags]
//
// Flags:
//
//	-config string        YAML configuration file (fastpair.Config)
//	-address string       Address reported by discovery (default "5A:11:22:33:44:55")
//	-public string        Accessory public address (default "AA:BB:CC:DD:EE:01")
//	-curve string         Anti-spoofing key curve: x25519, p256, p256-uncompressed (default "p256")
//	-passkey uint         Passkey shown by the accessory; 0 bonds without one (default 0)
//	-history string       JSON pairing history file
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-interactive          Enable interactive command mode
//
// Without -interactive a single Pair is run and the result printed.
//
// Examples:
//
//	# Pair once, recording a protocol log
//	fastpair-sim -protocol-log pair.fplog
//
//	# Interactive shell with passkey confirmation and a history file
//	fastpair-sim -interactive -passkey 123456 -history ~/.fastpair/history.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fastpair-protocol/fastpair-go/internal/sim"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
	fplog "github.com/fastpair-protocol/fastpair-go/pkg/log"
	"github.com/fastpair-protocol/fastpair-go/pkg/persistence"
)

// Options holds the command line settings.
type Options struct {
	ConfigFile  string
	Address     string
	Public      string
	Curve       string
	Passkey     uint
	HistoryFile string
	ProtocolLog string
	LogLevel    string
	Interactive bool
}

var opts Options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&opts.Address, "address", "5A:11:22:33:44:55", "Address reported by discovery")
	flag.StringVar(&opts.Public, "public", "AA:BB:CC:DD:EE:01", "Accessory public address")
	flag.StringVar(&opts.Curve, "curve", "p256", "Anti-spoofing key curve: x25519, p256, p256-uncompressed")
	flag.UintVar(&opts.Passkey, "passkey", 0, "Passkey shown by the accessory; 0 bonds without one")
	flag.StringVar(&opts.HistoryFile, "history", "", "JSON pairing history file")
	flag.StringVar(&opts.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Enable interactive command mode")
}

// Simulator bundles the connection with its simulated peers.
type Simulator struct {
	Conn      *fastpair.Connection
	Callbacks *fastpair.Callbacks
	Provider  *sim.Provider
	Radio     *sim.Radio
	History   *persistence.HistoryStore
	Logger    *slog.Logger

	// Address is the discovery address pairing starts from.
	Address         string
	ProtocolLogPath string

	protocolLog *fplog.FileLogger
	behavior    sim.Behavior
}

func main() {
	flag.Parse()

	// In interactive mode log output goes through readline so it does not
	// corrupt the prompt.
	var shell *Shell
	var logOut io.Writer = os.Stderr
	if opts.Interactive {
		var err error
		shell, err = NewShell()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logOut = shell.Stderr()
	}

	logger, err := newLogger(logOut, opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	s, err := newSimulator(opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if shell != nil {
		if err := shell.Attach(s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		shell.Run(ctx, cancel)
		return
	}

	if err := s.Callbacks.SetPasskeyHandler(autoAccept(logger)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	secret, err := s.Pair(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pairing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Paired: %s\n", secret)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func parseCurve(s string) (keyexchange.KeyFormat, error) {
	switch strings.ToLower(s) {
	case "x25519":
		return keyexchange.FormatX25519, nil
	case "p256", "p256-raw":
		return keyexchange.FormatP256Raw, nil
	case "p256-uncompressed":
		return keyexchange.FormatP256Uncompressed, nil
	default:
		return 0, fmt.Errorf("unknown curve: %s (use: x25519, p256, p256-uncompressed)", s)
	}
}

func newSimulator(o Options, logger *slog.Logger) (*Simulator, error) {
	cfg := fastpair.DefaultConfig()
	if o.ConfigFile != "" {
		loaded, err := fastpair.LoadConfig(o.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg.Address = o.Address
	}

	curve, err := parseCurve(o.Curve)
	if err != nil {
		return nil, err
	}
	if o.Passkey > keyexchange.MaxPasskey {
		return nil, fmt.Errorf("passkey %d has more than six digits", o.Passkey)
	}

	provider, err := sim.NewProvider(o.Public,
		sim.WithAntiSpoofingKey(curve),
		sim.WithPasskey(uint32(o.Passkey)))
	if err != nil {
		return nil, err
	}
	if len(cfg.AntiSpoofingKey) == 0 {
		cfg.AntiSpoofingKey = provider.AntiSpoofingPublicKey()
	}

	radio := sim.NewRadio()
	behavior := sim.Behavior{Passkey: uint32(o.Passkey), Delay: 20 * time.Millisecond}
	radio.SetBehavior(cfg.Address, behavior)
	radio.SetBehavior(provider.Address(), behavior)
	transport := sim.NewTransport()
	transport.Register(cfg.Address, provider)
	transport.Register(provider.Address(), provider)

	s := &Simulator{
		Callbacks: fastpair.NewCallbacks(),
		Provider:  provider,
		Radio:     radio,
		Logger:    logger,
		Address:   cfg.Address,
		behavior:  behavior,
	}

	var loggers []fplog.Logger
	if o.ProtocolLog != "" {
		s.protocolLog, err = fplog.NewFileLogger(o.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		s.ProtocolLogPath = o.ProtocolLog
		loggers = append(loggers, s.protocolLog)
		logger.Info("protocol logging enabled", "path", o.ProtocolLog)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, fplog.NewSlogAdapter(logger))
	}
	// Only set the logger when non-nil to avoid a typed-nil interface.
	if multi := fplog.NewMultiLogger(loggers...); multi.Len() > 0 {
		cfg.ProtocolLogger = multi
	}
	cfg.Logger = logger

	if err := s.Callbacks.SetOnPaired(func(address string) {
		logger.Info("paired", "address", address)
	}); err != nil {
		return nil, err
	}
	if err := s.Callbacks.SetOnAddressResolved(func(address string) {
		logger.Info("address resolved", "address", address)
	}); err != nil {
		return nil, err
	}

	s.Conn, err = fastpair.New(cfg, radio, transport, s.Callbacks)
	if err != nil {
		s.Close()
		return nil, err
	}

	if o.HistoryFile != "" {
		s.History = persistence.NewHistoryStore(o.HistoryFile)
		h, err := s.History.Load()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
		s.Conn.SetHistory(h.Items())
		logger.Info("history loaded", "path", o.HistoryFile, "entries", len(h.Items()))
	}
	return s, nil
}

// Pair runs one pairing and records the result in the history file.
func (s *Simulator) Pair(ctx context.Context, key []byte) (fastpair.SharedSecret, error) {
	secret, err := s.Conn.PairWithKey(ctx, key)
	if err != nil {
		return secret, err
	}
	if s.History != nil {
		if err := s.History.Record(secret, s.Conn.ProviderDeviceName()); err != nil {
			s.Logger.Warn("failed to record history", "error", err)
		} else {
			s.Conn.SetHistory(s.historyItems())
		}
	}
	return secret, nil
}

// Unpair removes the bond and forgets the accessory.
func (s *Simulator) Unpair(ctx context.Context, address string) error {
	if err := s.Conn.Unpair(ctx, address); err != nil {
		return err
	}
	if s.History != nil {
		if n, err := s.History.Forget(address); err != nil {
			s.Logger.Warn("failed to update history", "error", err)
		} else if n > 0 {
			s.Conn.SetHistory(s.historyItems())
		}
	}
	return nil
}

func (s *Simulator) historyItems() []fastpair.HistoryItem {
	h, err := s.History.Load()
	if err != nil {
		s.Logger.Warn("failed to load history", "error", err)
		return nil
	}
	return h.Items()
}

// SetBehavior changes how the simulated radio bonds from the next attempt on.
func (s *Simulator) SetBehavior(b sim.Behavior) {
	if b.Passkey == 0 {
		b.Passkey = s.behavior.Passkey
	}
	b.Delay = s.behavior.Delay
	s.Radio.SetBehavior(s.Address, b)
	s.Radio.SetBehavior(s.Provider.Address(), b)
}

// Close stops the radio and flushes the protocol log.
func (s *Simulator) Close() {
	s.Radio.Close()
	if s.protocolLog != nil {
		if err := s.protocolLog.Close(); err != nil {
			s.Logger.Warn("failed to close protocol log", "error", err)
		}
	}
}

// autoAccept confirms every passkey; used without a terminal.
func autoAccept(logger *slog.Logger) fastpair.PasskeyHandler {
	return fastpair.PasskeyHandlerFunc(func(_ context.Context, passkey uint32) (bool, error) {
		logger.Info("accepting passkey", "passkey", fmt.Sprintf("%06d", passkey))
		return true, nil
	})
}
