package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/mapdlctl/internal/config"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "mapdlctl.toml"
	envAdminToken     = "MAPDLCTL_ADMIN_TOKEN"
)

// loadConfig reads path over the defaults. MAPDL_IP, MAPDL_PORT and
// MAPDLCTL_ADMIN_TOKEN fill their keys only where the file leaves them
// unset.
func loadConfig(path string) (config.Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := config.Default()
		if err := applyEnv(&cfg, func(...string) bool { return false }); err != nil {
			return config.Config{}, err
		}
		return cfg, config.Validate(cfg)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	var probe config.Config
	meta, err := toml.DecodeFile(path, &probe)
	if err != nil {
		return config.Config{}, fmt.Errorf("load mapdlctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		log := observability.Component("config")
		log.Warn().Strs("keys", keys).Str("path", path).Msg("ignoring unknown config keys")
	}

	if err := applyEnv(&cfg, meta.IsDefined); err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config, defined func(...string) bool) error {
	if !defined("admin", "token") {
		if v := strings.TrimSpace(os.Getenv(envAdminToken)); v != "" {
			cfg.Admin.Token = v
		}
	}
	if !defined("client", "ip") {
		if v := strings.TrimSpace(os.Getenv(launcher.EnvIP)); v != "" {
			cfg.Client.IP = v
		}
	}
	if !defined("client", "port") {
		if v := strings.TrimSpace(os.Getenv(launcher.EnvPort)); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", launcher.EnvPort, err)
			}
			cfg.Client.Port = port
		}
	}
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check a mapdlctl config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a commented config template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintln(a.out, successStyle.Render("Success:")+" wrote "+path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Load a config file and report the first problem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigPath
			}
			if _, err := loadConfig(path); err != nil {
				return err
			}
			fmt.Fprintln(a.out, successStyle.Render("Success:")+" "+path+" is valid")
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
