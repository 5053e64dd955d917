// Package procs finds and stops solver processes on the local host.
package procs

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// Process is one row of a process table snapshot.
type Process struct {
	PID     int32
	PPID    int32
	Name    string
	Cmdline []string
	Status  string
	Cwd     string
}

// Table lists and kills processes. SystemTable reads the host; tests supply
// fixtures.
type Table interface {
	Snapshot(ctx context.Context) ([]Process, error)
	Kill(ctx context.Context, pid int32) error
}

// SystemTable is the host process table.
type SystemTable struct{}

func (SystemTable) Snapshot(ctx context.Context) ([]Process, error) {
	ps, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(ps))
	for _, p := range ps {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// exited since listing
			continue
		}
		row := Process{PID: p.Pid, Name: name}
		row.PPID, _ = p.PpidWithContext(ctx)
		row.Cmdline, _ = p.CmdlineSliceWithContext(ctx)
		if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
			row.Status = st[0]
		}
		row.Cwd, _ = p.CwdWithContext(ctx)
		out = append(out, row)
	}
	return out, nil
}

func (SystemTable) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}
