// Package config loads the mapdlctl TOML configuration: how to reach or
// launch solver sessions, the instance pool and the admin API.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Admin  AdminConfig  `toml:"admin"`
	Client ClientConfig `toml:"client"`
	Launch LaunchConfig `toml:"launch"`
	Pool   PoolConfig   `toml:"pool"`
}

type AdminConfig struct {
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Token guards the POST routes when set.
	Token string `toml:"token"`
}

type ClientConfig struct {
	IP              string    `toml:"ip"`
	Port            int       `toml:"port"`
	ConnectAttempts int       `toml:"connect_attempts"`
	ConnectTimeout  string    `toml:"connect_timeout"`
	SecurityMode    string    `toml:"security_mode"`
	LogAPDL         string    `toml:"log_apdl"`
	TLS             TLSConfig `toml:"tls"`
}

type TLSConfig struct {
	Enabled    bool   `toml:"enabled"`
	Mutual     bool   `toml:"mutual"`
	CAFile     string `toml:"ca_file"`
	CertFile   string `toml:"cert_file"`
	KeyFile    string `toml:"key_file"`
	ServerName string `toml:"server_name"`
}

type LaunchConfig struct {
	Exec        string `toml:"exec"`
	Jobname     string `toml:"jobname"`
	NProc       int    `toml:"nproc"`
	RAMMB       int    `toml:"ram_mb"`
	RunLocation string `toml:"run_location"`
	Switches    string `toml:"switches"`
	Override    bool   `toml:"override"`
	Timeout     string `toml:"timeout"`
}

type PoolConfig struct {
	Size            int    `toml:"size"`
	StartPort       int    `toml:"start_port"`
	Restart         bool   `toml:"restart"`
	MonitorInterval string `toml:"monitor_interval"`
}

func Default() Config {
	return Config{
		Admin: AdminConfig{ID: "mapdlctl", Addr: ":9050", CorsOrigins: []string{"http://localhost:3000"}},
		Client: ClientConfig{
			IP:              launcher.DefaultIP,
			Port:            launcher.DefaultPort,
			ConnectAttempts: 5,
			ConnectTimeout:  "15s",
			SecurityMode:    string(client.SecurityModeDevelopment),
		},
		Launch: LaunchConfig{Jobname: "file", NProc: 2, Timeout: "45s"},
		Pool:   PoolConfig{StartPort: launcher.DefaultPort, MonitorInterval: "10s"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg = cfg.withDefaults()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// withDefaults refills fields a file cleared explicitly.
func (c Config) withDefaults() Config {
	d := Default()
	if strings.TrimSpace(c.Admin.ID) == "" {
		c.Admin.ID = d.Admin.ID
	}
	if strings.TrimSpace(c.Admin.Addr) == "" {
		c.Admin.Addr = d.Admin.Addr
	}
	if strings.TrimSpace(c.Client.IP) == "" {
		c.Client.IP = d.Client.IP
	}
	if c.Client.Port == 0 {
		c.Client.Port = d.Client.Port
	}
	if strings.TrimSpace(c.Launch.Jobname) == "" {
		c.Launch.Jobname = d.Launch.Jobname
	}
	if c.Pool.StartPort == 0 {
		c.Pool.StartPort = d.Pool.StartPort
	}
	return c
}

// Marshal renders cfg as TOML.
func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Admin.Addr) == "" {
		return fmt.Errorf("admin config missing addr")
	}
	if _, _, err := net.SplitHostPort(cfg.Admin.Addr); err != nil {
		return fmt.Errorf("admin addr invalid: %w", err)
	}
	if net.ParseIP(cfg.Client.IP) == nil && cfg.Client.IP != "localhost" {
		return fmt.Errorf("client ip invalid: %q", cfg.Client.IP)
	}
	if err := launcher.ValidatePort(cfg.Client.Port); err != nil {
		return fmt.Errorf("client port invalid: %w", err)
	}
	for key, raw := range map[string]string{
		"client.connect_timeout": cfg.Client.ConnectTimeout,
		"launch.timeout":         cfg.Launch.Timeout,
		"pool.monitor_interval":  cfg.Pool.MonitorInterval,
	} {
		if _, err := parseDuration(raw); err != nil {
			return fmt.Errorf("%s invalid: %w", key, err)
		}
	}
	if cfg.Launch.NProc < 0 || cfg.Launch.RAMMB < 0 {
		return fmt.Errorf("launch nproc and ram_mb must not be negative")
	}
	if cfg.Pool.Size < 0 {
		return fmt.Errorf("pool size must not be negative")
	}
	if cfg.Pool.Size > 0 {
		if err := launcher.ValidatePort(cfg.Pool.StartPort); err != nil {
			return fmt.Errorf("pool start_port invalid: %w", err)
		}
	}
	if err := ClientConfigFrom(cfg).ValidateClientTransport(); err != nil {
		return fmt.Errorf("client transport invalid: %w", err)
	}
	return nil
}

// parseDuration treats an empty value as unset.
func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}
