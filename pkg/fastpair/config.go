package fastpair

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
	"github.com/fastpair-protocol/fastpair-go/pkg/retry"
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults.
const (
	DefaultResolveAttempts = 3
	DefaultBondTimeout     = 10 * time.Second
	DefaultUnbondTimeout   = 5 * time.Second
	DefaultPasskeyTimeout  = 30 * time.Second
	DefaultCallbackTimeout = 5 * time.Second
	DefaultExchangeTimeout = 10 * time.Second
)

// PasskeyPolicy decides the passkey outcome when no PasskeyHandler is set.
type PasskeyPolicy uint8

const (
	// PasskeyReject rejects every passkey.
	PasskeyReject PasskeyPolicy = iota

	// PasskeyAcceptVerified accepts only when the provider proved over the
	// encrypted channel that it shows the same passkey.
	PasskeyAcceptVerified
)

// String returns the policy name.
func (p PasskeyPolicy) String() string {
	switch p {
	case PasskeyReject:
		return "reject"
	case PasskeyAcceptVerified:
		return "accept-verified"
	default:
		return "unknown"
	}
}

// UnmarshalYAML parses the policy name.
func (p *PasskeyPolicy) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "reject", "":
		*p = PasskeyReject
	case "accept-verified":
		*p = PasskeyAcceptVerified
	default:
		return fmt.Errorf("%w: unknown passkey policy %q", ErrInvalidConfig, node.Value)
	}
	return nil
}

// Fallback selects the strategy used when the key-based pairing service is
// unavailable.
type Fallback uint8

const (
	// FallbackNone fails with KindPlatformCapabilityUnavailable.
	FallbackNone Fallback = iota

	// FallbackLegacy bonds without the pairing service. It can confirm an
	// existing account key but cannot run key agreement.
	FallbackLegacy
)

// String returns the fallback name.
func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// UnmarshalYAML parses the fallback name.
func (f *Fallback) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "none", "":
		*f = FallbackNone
	case "legacy":
		*f = FallbackLegacy
	default:
		return fmt.Errorf("%w: unknown fallback %q", ErrInvalidConfig, node.Value)
	}
	return nil
}

// HexBytes is a byte slice written as hex in config files.
type HexBytes []byte

// UnmarshalYAML decodes a hex string, ignoring colons and spaces.
func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	s := strings.NewReplacer(":", "", " ", "").Replace(node.Value)
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: bad hex value: %v", ErrInvalidConfig, err)
	}
	*h = b
	return nil
}

// String returns the lower-case hex encoding.
func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

// Config configures a Connection.
type Config struct {
	// Address is the accessory's address as reported by discovery.
	Address string `yaml:"address"`

	// ModelID identifies the accessory model. Informational; it is passed
	// to logs only.
	ModelID string `yaml:"model_id"`

	// AntiSpoofingKey is the model's public key. When set, Pair without a
	// known account key runs key agreement with it.
	AntiSpoofingKey HexBytes `yaml:"anti_spoofing_key"`

	// ResolveAttempts bounds address resolution (default 3).
	ResolveAttempts int `yaml:"resolve_attempts"`

	// Backoff paces resolution retries.
	Backoff retry.Config `yaml:"backoff"`

	// BondTimeout bounds each wait for a bond notification.
	BondTimeout time.Duration `yaml:"bond_timeout"`

	// UnbondTimeout bounds bond removal, including cleanup after failures.
	UnbondTimeout time.Duration `yaml:"unbond_timeout"`

	// PasskeyTimeout bounds the PasskeyHandler.
	PasskeyTimeout time.Duration `yaml:"passkey_timeout"`

	// CallbackTimeout bounds notification, preparation and rescue hooks.
	CallbackTimeout time.Duration `yaml:"callback_timeout"`

	// ExchangeTimeout bounds each step on the provider link: dialling, the
	// key-based pairing handshake, passkey verification and writing the
	// account key or device name.
	ExchangeTimeout time.Duration `yaml:"exchange_timeout"`

	// PasskeyPolicy applies when no PasskeyHandler is registered.
	PasskeyPolicy PasskeyPolicy `yaml:"passkey_policy"`

	// Fallback applies when the pairing service is unavailable.
	Fallback Fallback `yaml:"fallback"`

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger `yaml:"-"`

	// ProtocolLogger receives protocol trace events. Nil disables tracing.
	ProtocolLogger plog.Logger `yaml:"-"`

	// OnStateChange observes every session transition.
	OnStateChange StateObserver `yaml:"-"`
}

// DefaultConfig returns a Config with defaults filled in. Address must still
// be set.
func DefaultConfig() Config {
	return Config{
		ResolveAttempts: DefaultResolveAttempts,
		Backoff:         retry.DefaultConfig(),
		BondTimeout:     DefaultBondTimeout,
		UnbondTimeout:   DefaultUnbondTimeout,
		PasskeyTimeout:  DefaultPasskeyTimeout,
		CallbackTimeout: DefaultCallbackTimeout,
		ExchangeTimeout: DefaultExchangeTimeout,
		PasskeyPolicy:   PasskeyReject,
		Fallback:        FallbackNone,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := keyexchange.ParseAddress(c.Address); err != nil {
		return fmt.Errorf("%w: address: %v", ErrInvalidConfig, err)
	}
	if c.ResolveAttempts < 1 {
		return fmt.Errorf("%w: resolve_attempts must be at least 1", ErrInvalidConfig)
	}
	for name, d := range map[string]time.Duration{
		"bond_timeout":     c.BondTimeout,
		"unbond_timeout":   c.UnbondTimeout,
		"passkey_timeout":  c.PasskeyTimeout,
		"callback_timeout": c.CallbackTimeout,
		"exchange_timeout": c.ExchangeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if len(c.AntiSpoofingKey) > 0 {
		if _, err := keyexchange.FormatForPublicKey(c.AntiSpoofingKey); err != nil {
			return fmt.Errorf("%w: anti_spoofing_key: %v", ErrInvalidConfig, err)
		}
	}
	if c.PasskeyPolicy > PasskeyAcceptVerified {
		return fmt.Errorf("%w: unknown passkey policy %d", ErrInvalidConfig, c.PasskeyPolicy)
	}
	if c.Fallback > FallbackLegacy {
		return fmt.Errorf("%w: unknown fallback %d", ErrInvalidConfig, c.Fallback)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}
