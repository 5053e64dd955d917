package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/mapdlctl/internal/procs"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var instancesOnly, long, showCmd, showCwd bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running solver gRPC processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if long {
				showCmd, showCwd = true, true
			}
			rows, err := procs.List(cmd.Context(), a.table, procs.ListOptions{InstancesOnly: instancesOnly})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, warnStyle.Render("No Ansys instances running."))
				return nil
			}
			fmt.Fprintln(a.out, renderTable(listHeaders(instancesOnly, showCmd, showCwd), listRows(rows, instancesOnly, showCmd, showCwd)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&instancesOnly, "instances", "i", false, "only show instances, not their helper processes")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show the command line and working directory")
	cmd.Flags().BoolVarP(&showCmd, "cmd", "c", false, "show the command line")
	cmd.Flags().BoolVar(&showCwd, "cwd", false, "show the working directory")
	return cmd
}

func listHeaders(instancesOnly, showCmd, showCwd bool) []string {
	h := []string{"Name"}
	if !instancesOnly {
		h = append(h, "Is Instance")
	}
	h = append(h, "Status", "gRPC port", "PID")
	if showCmd {
		h = append(h, "Command line")
	}
	if showCwd {
		h = append(h, "Working directory")
	}
	return h
}

func listRows(in []procs.Instance, instancesOnly, showCmd, showCwd bool) [][]string {
	rows := make([][]string, 0, len(in))
	for _, inst := range in {
		row := []string{inst.Name}
		if !instancesOnly {
			row = append(row, strconv.FormatBool(inst.IsInstance))
		}
		row = append(row, inst.Status, inst.Port, strconv.Itoa(int(inst.PID)))
		if showCmd {
			row = append(row, inst.Cmdline)
		}
		if showCwd {
			row = append(row, inst.Cwd)
		}
		rows = append(rows, row)
	}
	return rows
}

func newStopCmd(a *app) *cobra.Command {
	var (
		port int
		pid  int32
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop solver instances by port, by PID or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != 0 && pid != 0 {
				return errors.New("--port and --pid cannot be used together")
			}
			if all && (port != 0 || pid != 0) {
				return errors.New("--all cannot be combined with --port or --pid")
			}
			res, err := procs.Stop(cmd.Context(), a.table, procs.StopRequest{Port: port, PID: pid, All: all})
			if err != nil {
				return err
			}
			if len(res.Stopped) == 0 {
				fmt.Fprintln(a.out, warnStyle.Render("Warn:")+" "+res.Message)
				return nil
			}
			fmt.Fprintln(a.out, successStyle.Render("Success:")+" "+res.Message)
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "stop the instances listening on this port (default 50052)")
	cmd.Flags().Int32Var(&pid, "pid", 0, "stop this process and its children")
	cmd.Flags().BoolVar(&all, "all", false, "stop every local solver instance")
	return cmd
}
