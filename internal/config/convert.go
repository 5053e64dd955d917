package config

import (
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/pool"
)

// ClientConfigFrom builds the session config. Durations are assumed valid.
func ClientConfigFrom(cfg Config) client.Config {
	cc := client.DefaultConfig()
	if ip, err := launcher.ResolveIP(cfg.Client.IP); err == nil {
		cc.IP = ip
	}
	if cfg.Client.Port != 0 {
		cc.Port = cfg.Client.Port
	}
	if cfg.Client.ConnectAttempts > 0 {
		cc.ConnectAttempts = cfg.Client.ConnectAttempts
	}
	if d, _ := parseDuration(cfg.Client.ConnectTimeout); d > 0 {
		cc.ConnectTimeout = d
	}
	cc.SecurityMode = client.SecurityMode(cfg.Client.SecurityMode)
	cc.TLS = client.TLSConfig{
		Enabled:    cfg.Client.TLS.Enabled,
		Mutual:     cfg.Client.TLS.Mutual,
		CAFile:     cfg.Client.TLS.CAFile,
		CertFile:   cfg.Client.TLS.CertFile,
		KeyFile:    cfg.Client.TLS.KeyFile,
		ServerName: cfg.Client.TLS.ServerName,
	}
	cc.Jobname = cfg.Launch.Jobname
	return cc.WithDefaults()
}

func LauncherConfigFrom(cfg Config) launcher.Config {
	lc := launcher.Config{
		Exec:        cfg.Launch.Exec,
		Jobname:     cfg.Launch.Jobname,
		NProc:       cfg.Launch.NProc,
		RAMMB:       cfg.Launch.RAMMB,
		IP:          cfg.Client.IP,
		Port:        cfg.Client.Port,
		RunLocation: cfg.Launch.RunLocation,
		Switches:    cfg.Launch.Switches,
		Override:    cfg.Launch.Override,
	}
	lc.Timeout, _ = parseDuration(cfg.Launch.Timeout)
	return lc.WithDefaults()
}

func PoolOptionsFrom(cfg Config) pool.Options {
	return pool.Options{StartPort: cfg.Pool.StartPort, Restart: cfg.Pool.Restart}
}
