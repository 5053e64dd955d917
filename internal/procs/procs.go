package procs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/shirou/gopsutil/v4/process"
)

var ErrNoSuchProcess = errors.New("procs: no such process")

// okStatus holds the states in which a process can be killed normally.
// gopsutil reports Linux dead (X) and parked (P) as UnknownState.
var okStatus = map[string]bool{
	process.Running:      true,
	process.Sleep:        true,
	process.Blocked:      true,
	process.Idle:         true,
	process.Wait:         true,
	process.UnknownState: true,
}

// IsSolver reports whether p looks like a gRPC solver process.
func IsSolver(p Process) bool {
	name := strings.ToLower(p.Name)
	if !strings.Contains(name, "ansys") && !strings.Contains(name, "mapdl") {
		return false
	}
	return slices.Contains(p.Cmdline, "-grpc")
}

// Port returns the argument following -port, or "".
func Port(cmdline []string) string {
	i := slices.Index(cmdline, "-port")
	if i < 0 || i+1 >= len(cmdline) {
		return ""
	}
	return cmdline[i+1]
}

// Instance is one solver process row.
type Instance struct {
	Name       string `json:"name"`
	IsInstance bool   `json:"is_instance"`
	Status     string `json:"status"`
	Port       string `json:"port"`
	PID        int32  `json:"pid"`
	Cmdline    string `json:"cmdline"`
	Cwd        string `json:"cwd"`
}

type ListOptions struct {
	// InstancesOnly drops solver processes without worker children.
	InstancesOnly bool
}

type tree struct {
	byPID    map[int32]Process
	children map[int32][]int32
}

func newTree(ps []Process) tree {
	t := tree{byPID: make(map[int32]Process, len(ps)), children: map[int32][]int32{}}
	for _, p := range ps {
		t.byPID[p.PID] = p
		t.children[p.PPID] = append(t.children[p.PPID], p.PID)
	}
	return t
}

// descendants lists every child of pid, deepest first.
func (t tree) descendants(pid int32) []int32 {
	var out []int32
	seen := map[int32]bool{pid: true}
	var walk func(int32)
	walk = func(parent int32) {
		for _, c := range t.children[parent] {
			if seen[c] {
				continue
			}
			seen[c] = true
			walk(c)
			out = append(out, c)
		}
	}
	walk(pid)
	return out
}

// List returns the solver processes in the table. A process with at least
// two descendants is a running instance rather than a helper.
func List(ctx context.Context, table Table, opts ListOptions) ([]Instance, error) {
	ps, err := table.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	t := newTree(ps)
	var out []Instance
	for _, p := range ps {
		if !IsSolver(p) {
			continue
		}
		inst := Instance{
			Name:       p.Name,
			IsInstance: len(t.descendants(p.PID)) >= 2,
			Status:     p.Status,
			Port:       Port(p.Cmdline),
			PID:        p.PID,
			Cmdline:    strings.Join(p.Cmdline, " "),
			Cwd:        p.Cwd,
		}
		if opts.InstancesOnly && !inst.IsInstance {
			continue
		}
		out = append(out, inst)
	}
	slices.SortFunc(out, func(a, b Instance) int { return int(a.PID - b.PID) })
	return out, nil
}

// StopRequest selects processes by port, by PID or all of them. An empty
// request means the default port.
type StopRequest struct {
	Port int   `json:"port,omitempty"`
	PID  int32 `json:"pid,omitempty"`
	All  bool  `json:"all,omitempty"`
}

type StopResult struct {
	Stopped []int32 `json:"stopped"`
	Message string  `json:"message"`
}

// Stop kills the selected solver processes. Stopping by PID kills the
// whole process tree, children first.
func Stop(ctx context.Context, table Table, req StopRequest) (StopResult, error) {
	log := observability.Component("procs")
	if req.PID == 0 && req.Port == 0 {
		req.Port = launcher.DefaultPort
	}
	ps, err := table.Snapshot(ctx)
	if err != nil {
		return StopResult{}, err
	}

	if req.Port != 0 || req.All {
		port := strconv.Itoa(req.Port)
		var res StopResult
		for _, p := range ps {
			if !okStatus[p.Status] || !IsSolver(p) {
				continue
			}
			if !req.All && !slices.Contains(p.Cmdline, port) {
				continue
			}
			if err := table.Kill(ctx, p.PID); err != nil {
				log.Debug().Err(err).Int32("pid", p.PID).Msg("kill failed")
				continue
			}
			res.Stopped = append(res.Stopped, p.PID)
		}
		scope := " running on port " + port
		if req.All {
			scope = ""
		}
		if len(res.Stopped) == 0 {
			res.Message = "No Ansys instances" + scope + " have been found."
		} else {
			res.Message = "Ansys instances" + scope + " have been stopped."
		}
		log.Info().Ints32("pids", res.Stopped).Msg(res.Message)
		return res, nil
	}

	t := newTree(ps)
	if _, ok := t.byPID[req.PID]; !ok {
		return StopResult{}, fmt.Errorf("%w: %d", ErrNoSuchProcess, req.PID)
	}
	var res StopResult
	for _, pid := range append(t.descendants(req.PID), req.PID) {
		if err := table.Kill(ctx, pid); err != nil {
			return res, fmt.Errorf("procs: kill %d: %w", pid, err)
		}
		res.Stopped = append(res.Stopped, pid)
	}
	res.Message = fmt.Sprintf("The process with PID %d and its children have been stopped.", req.PID)
	log.Info().Int32("pid", req.PID).Int("killed", len(res.Stopped)).Msg("process tree stopped")
	return res, nil
}
