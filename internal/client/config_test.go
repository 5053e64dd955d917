package client

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
	"github.com/danmuck/mapdlctl/internal/testutil/tlstest"
)

func TestBackoffDelayGrowsToCap(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     3 * time.Second,
	}
	want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := cfg.Delay(i+1, nil); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
	if got := (BackoffConfig{}).Delay(3, nil); got != 0 {
		t.Fatalf("expected zero delay without initial delay, got %v", got)
	}
}

func TestBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig().Backoff
	rng := rand.New(rand.NewSource(7))
	got := cfg.Delay(1, rng)
	if got < 125*time.Millisecond || got > 375*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	testlog.Start(t)
	cfg := Config{Port: 50060, BreakerFailures: 2}.WithDefaults()
	if cfg.IP != launcher.DefaultIP || cfg.Port != 50060 || cfg.BreakerFailures != 2 {
		t.Fatalf("unexpected defaults: ip=%s port=%d failures=%d", cfg.IP, cfg.Port, cfg.BreakerFailures)
	}
	if cfg.MaxMessageLength != DefaultMaxMessageLength || cfg.Jobname != "file" {
		t.Fatalf("expected message length and jobname defaults, got %d %q", cfg.MaxMessageLength, cfg.Jobname)
	}
	if cfg.Target() != "127.0.0.1:50060" {
		t.Fatalf("unexpected target %q", cfg.Target())
	}
}

func TestApplyEnvResolvesUnsetAddress(t *testing.T) {
	testlog.Start(t)
	t.Setenv(launcher.EnvIP, "10.0.0.7")
	t.Setenv(launcher.EnvPort, "50070")
	t.Setenv(EnvMaxMessageLength, "1024")

	cfg, err := Config{}.ApplyEnv()
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.IP != "10.0.0.7" || cfg.Port != 50070 || cfg.MaxMessageLength != 1024 {
		t.Fatalf("unexpected env config: %+v", cfg)
	}

	cfg, err = Config{IP: "192.168.1.2", Port: 50099}.ApplyEnv()
	if err != nil || cfg.IP != "192.168.1.2" || cfg.Port != 50099 {
		t.Fatalf("explicit values should win: %+v %v", cfg, err)
	}

	t.Setenv(launcher.EnvPort, "banana")
	if _, err := (Config{}).ApplyEnv(); !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
}

func TestValidateRejectsBadAddress(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Port = 70000
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidPort) {
		t.Fatalf("expected ErrInvalidPort, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.SecurityMode = "paranoid"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidSecurityMode) {
		t.Fatalf("expected ErrInvalidSecurityMode, got %v", err)
	}
}

func TestValidateClientTransportProductionRequiresTLSMTLS(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.SecurityMode = SecurityModeProduction
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}

	cfg.TLS.Enabled = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrMTLSRequired) {
		t.Fatalf("expected ErrMTLSRequired, got %v", err)
	}

	cfg.TLS.Mutual = true
	cfg.TLS.InsecureSkipVerify = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSInsecureSkipNotAllow) {
		t.Fatalf("expected ErrTLSInsecureSkipNotAllow, got %v", err)
	}
}

func TestValidateClientTransportMutualRequiresCertKeyCA(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.TLS.Enabled = true
	cfg.TLS.Mutual = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSCAFileRequired) {
		t.Fatalf("expected ErrTLSCAFileRequired, got %v", err)
	}

	cfg.TLS.CAFile = "/tmp/ca.pem"
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}

	cfg.TLS.CertFile = "/tmp/client.pem"
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}

	cfg.TLS.KeyFile = "/tmp/client.key"
	if err := cfg.ValidateClientTransport(); err != nil {
		t.Fatalf("expected valid transport config, got %v", err)
	}
}

func TestClientTLSConfigLoadsAuthority(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "mapdl-ca")
	leaf := ca.Issue(t, "mapdl-client", tlstest.Client)

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, Mutual: true, CAFile: ca.CAFile(), CertFile: leaf.CertFile, KeyFile: leaf.KeyFile}
	tlsCfg, err := cfg.clientTLSConfig()
	if err != nil {
		t.Fatalf("tls config: %v", err)
	}
	if tlsCfg.RootCAs == nil || len(tlsCfg.Certificates) != 1 {
		t.Fatalf("expected root pool and client certificate")
	}
	if tlsCfg.ServerName != launcher.DefaultIP {
		t.Fatalf("expected server name to default to ip, got %q", tlsCfg.ServerName)
	}
	if _, err := cfg.transportCredentials(); err != nil {
		t.Fatalf("credentials: %v", err)
	}

	cfg.TLS.CAFile = leaf.CertFile + ".missing"
	if _, err := cfg.clientTLSConfig(); err == nil {
		t.Fatalf("expected error for missing ca file")
	}
}

func TestCallCounterShortMethod(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"/mapdl.MapdlService/SendCommand": "SendCommand",
		"SendCommand":                     "SendCommand",
		"/grpc.health.v1.Health/Check":    "Check",
	}
	for in, want := range cases {
		if got := shortMethod(in); got != want {
			t.Fatalf("shortMethod(%q) = %q, want %q", in, got, want)
		}
	}
}
