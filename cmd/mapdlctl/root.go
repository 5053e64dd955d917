package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/config"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/procs"
	"github.com/spf13/cobra"
)

// app carries the collaborators the commands reach out to, so tests can
// swap the process table, the launcher and the dialer.
type app struct {
	out        io.Writer
	configPath string

	table  procs.Table
	launch func(context.Context, launcher.Config) (*launcher.Instance, error)
	dial   func(context.Context, client.Config) (*client.Client, error)
}

func newApp() *app {
	return &app{
		out:    os.Stdout,
		table:  procs.SystemTable{},
		launch: launcher.Launch,
		dial:   client.Dial,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "mapdlctl",
		Short:         "Launch, inspect and drive MAPDL gRPC solver instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a mapdlctl TOML config")

	root.AddCommand(
		newStartCmd(a),
		newStopCmd(a),
		newListCmd(a),
		newRunCmd(a),
		newVersionCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) config() (config.Config, error) {
	return loadConfig(a.configPath)
}

// connect dials the session described by the config, with target
// ("ip:port") taking precedence when set.
func (a *app) connect(ctx context.Context, target string) (*client.Client, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	cc := config.ClientConfigFrom(cfg)
	if target != "" {
		ip, port, err := parseTarget(target)
		if err != nil {
			return nil, err
		}
		cc.IP, cc.Port = ip, port
	}
	if cfg.Client.LogAPDL != "" {
		f, err := os.OpenFile(cfg.Client.LogAPDL, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open apdl log: %w", err)
		}
		cc.LogAPDL = f
	}
	return a.dial(ctx, cc)
}

func parseTarget(target string) (string, int, error) {
	host, rawPort, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("invalid target %q: %w", target, err)
	}
	ip, err := launcher.ResolveIP(host)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return "", 0, fmt.Errorf("invalid target port %q", rawPort)
	}
	if err := launcher.ValidatePort(port); err != nil {
		return "", 0, err
	}
	return ip, port, nil
}
