package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/mapdlctl/internal/admin"
	"github.com/danmuck/mapdlctl/internal/auth"
	"github.com/danmuck/mapdlctl/internal/config"
	"github.com/danmuck/mapdlctl/internal/pool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr string
		size int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API, optionally over a pool of local instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Admin.Addr = addr
			}
			if cmd.Flags().Changed("pool") {
				cfg.Pool.Size = size
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "admin listen address (default from config)")
	cmd.Flags().IntVar(&size, "pool", 0, "number of local instances to launch and keep")
	return cmd
}

func (a *app) serve(ctx context.Context, cfg config.Config) error {
	var p *pool.Pool
	if cfg.Pool.Size > 0 {
		spawn := pool.LocalSpawner(config.LauncherConfigFrom(cfg), config.ClientConfigFrom(cfg))
		var err error
		if p, err = pool.New(ctx, cfg.Pool.Size, spawn, config.PoolOptionsFrom(cfg)); err != nil {
			return err
		}
		defer func() {
			exitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := p.Exit(exitCtx); err != nil {
				log.Warn().Err(err).Msg("pool exit")
			}
		}()
		if interval, _ := time.ParseDuration(cfg.Pool.MonitorInterval); interval > 0 {
			go p.Monitor(ctx, interval)
		}
	}

	srv := admin.New(cfg.Admin.ID, cfg.Admin.Addr, a.table, p, cfg.Admin.CorsOrigins)
	if cfg.Admin.Token != "" {
		srv.Auth = auth.StaticToken(cfg.Admin.Token)
	}
	log.Info().Str("id", srv.ID).Str("addr", srv.Addr).Int("pool", cfg.Pool.Size).Msg("mapdlctl admin started")
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
