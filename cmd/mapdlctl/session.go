package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/mapdlctl/internal/config"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/spf13/cobra"
)

func newStartCmd(a *app) *cobra.Command {
	var (
		exec, runLocation, jobname, switches string
		nproc, ram, port                     int
		override                             bool
		timeout                              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch a solver instance in gRPC mode and leave it running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			lc := config.LauncherConfigFrom(cfg)
			// Without an explicit port the first free one from the default is used.
			lc.Port = 0
			flags := cmd.Flags()
			if flags.Changed("exec") {
				lc.Exec = exec
			}
			if flags.Changed("run-location") {
				lc.RunLocation = runLocation
			}
			if flags.Changed("jobname") {
				lc.Jobname = jobname
			}
			if flags.Changed("switches") {
				lc.Switches = switches
			}
			if flags.Changed("nproc") {
				lc.NProc = nproc
			}
			if flags.Changed("ram") {
				lc.RAMMB = ram
			}
			if flags.Changed("override") {
				lc.Override = override
			}
			if flags.Changed("timeout") {
				lc.Timeout = timeout
			}
			if flags.Changed("port") {
				if err := launcher.ValidatePort(port); err != nil {
					return err
				}
				lc.Port = port
			}

			inst, err := a.launch(cmd.Context(), lc)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Launched an MAPDL instance (PID=%d) at %s\n",
				successStyle.Render("Success:"), inst.PID, inst.Target())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&exec, "exec", "", "solver executable (default $"+launcher.EnvExec+")")
	f.StringVar(&runLocation, "run-location", "", "working directory, a temporary one when empty")
	f.StringVar(&jobname, "jobname", "file", "solver jobname")
	f.StringVar(&switches, "switches", "", "additional solver switches")
	f.IntVar(&nproc, "nproc", 2, "number of processors")
	f.IntVar(&ram, "ram", 0, "memory to request in MB")
	f.IntVar(&port, "port", launcher.DefaultPort, "gRPC port")
	f.BoolVar(&override, "override", false, "remove a stale lock file in the run location")
	f.DurationVar(&timeout, "timeout", 45*time.Second, "how long to wait for the gRPC server")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "run [--target ip:port] COMMAND...",
		Short: "Send one APDL command to a running instance and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context(), target)
			if err != nil {
				return err
			}
			defer c.Close()
			out, err := c.Run(cmd.Context(), strings.Join(args, " "))
			if out != "" {
				fmt.Fprintln(a.out, out)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "instance address, the configured client address when empty")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the gRPC server version of a running instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context(), target)
			if err != nil {
				return err
			}
			defer c.Close()
			v, err := c.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "MAPDL gRPC server %s (%s) at %s\n", v, version.Release(v), c.Target())
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "instance address, the configured client address when empty")
	return cmd
}
