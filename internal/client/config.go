package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/mapdlctl/internal/launcher"
)

const (
	DefaultMaxMessageLength = 256 * 1024 * 1024

	EnvMaxMessageLength = "MAPDL_MAX_MESSAGE_LENGTH"
)

var (
	ErrInvalidIP               = errors.New("client: invalid ip address")
	ErrInvalidPort             = errors.New("client: invalid port")
	ErrInvalidSecurityMode     = errors.New("client: invalid security mode")
	ErrTLSRequired             = errors.New("client: tls required")
	ErrMTLSRequired            = errors.New("client: mtls required")
	ErrTLSCertFileRequired     = errors.New("client: tls cert file required")
	ErrTLSKeyFileRequired      = errors.New("client: tls key file required")
	ErrTLSCAFileRequired       = errors.New("client: tls ca file required")
	ErrTLSInsecureSkipNotAllow = errors.New("client: insecure skip verify not allowed")
)

// SecurityMode selects how strictly transport settings are enforced.
type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// BackoffConfig defines retry backoff between connection attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay is the pause after failed connection attempt n (1-based). Jitter
// spreads it over [d/2, 3d/2).
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 || n < 1 {
		return 0
	}
	d := b.InitialDelay
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * max(b.Multiplier, 1))
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			break
		}
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if !b.Jitter || rng == nil {
		return d
	}
	return time.Duration(float64(d) * (0.5 + rng.Float64()))
}

type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// Config describes one solver session.
type Config struct {
	IP               string
	Port             int
	MaxMessageLength int

	ConnectAttempts int
	ConnectTimeout  time.Duration
	Backoff         BackoffConfig

	SecurityMode SecurityMode
	TLS          TLSConfig

	// Local marks a session whose working directory is reachable from this
	// host. Remote sessions get a heartbeat.
	Local             bool
	RunLocation       string
	Jobname           string
	PIDs              []int
	RemoveTempFiles   bool
	HealthCheck       bool
	HeartbeatInterval time.Duration
	SetNoAbort        bool

	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// LogAPDL receives every command sent through Run.
	LogAPDL io.Writer

	// Dialer overrides the network dialer. Used for in-process transports.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

func DefaultConfig() Config {
	return Config{
		IP:                launcher.DefaultIP,
		Port:              launcher.DefaultPort,
		MaxMessageLength:  DefaultMaxMessageLength,
		ConnectAttempts:   5,
		ConnectTimeout:    15 * time.Second,
		SecurityMode:      SecurityModeDevelopment,
		Jobname:           "file",
		HeartbeatInterval: 30 * time.Second,
		SetNoAbort:        true,
		BreakerFailures:   5,
		BreakerTimeout:    10 * time.Second,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     3 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.IP) == "" {
		c.IP = d.IP
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = d.MaxMessageLength
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = d.ConnectAttempts
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = d.Backoff
	}
	if strings.TrimSpace(c.Jobname) == "" {
		c.Jobname = d.Jobname
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = d.BreakerFailures
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = d.BreakerTimeout
	}
	return c
}

// ApplyEnv resolves unset address fields and the message size from the
// MAPDL_* variables. Explicit values win over the environment.
func (c Config) ApplyEnv() (Config, error) {
	ip, err := launcher.ResolveIP(c.IP)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidIP, err)
	}
	port, err := launcher.ResolvePort(c.Port)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidPort, err)
	}
	c.IP, c.Port = ip, port
	if v := strings.TrimSpace(os.Getenv(EnvMaxMessageLength)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("client: invalid %s=%q", EnvMaxMessageLength, v)
		}
		c.MaxMessageLength = n
	}
	return c, nil
}

func (c Config) Target() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	if net.ParseIP(strings.TrimSpace(c.IP)) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidIP, c.IP)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return c.ValidateClientTransport()
}

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

func (c Config) ValidateClientTransport() error {
	mode := NormalizeSecurityMode(c.SecurityMode)
	switch mode {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, c.SecurityMode)
	}

	if mode == SecurityModeProduction {
		if !c.TLS.Enabled {
			return ErrTLSRequired
		}
		if !c.TLS.Mutual {
			return ErrMTLSRequired
		}
		if c.TLS.InsecureSkipVerify {
			return ErrTLSInsecureSkipNotAllow
		}
	}
	if c.TLS.Mutual && !c.TLS.Enabled {
		return ErrTLSRequired
	}
	if c.TLS.Enabled && strings.TrimSpace(c.TLS.CAFile) == "" && !c.TLS.InsecureSkipVerify {
		return ErrTLSCAFileRequired
	}
	if c.TLS.Mutual {
		if strings.TrimSpace(c.TLS.CertFile) == "" {
			return ErrTLSCertFileRequired
		}
		if strings.TrimSpace(c.TLS.KeyFile) == "" {
			return ErrTLSKeyFileRequired
		}
	}
	return nil
}
