package procs

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
)

type fakeTable struct {
	mu     sync.Mutex
	procs  []Process
	killed []int32
	fail   map[int32]error
}

func (f *fakeTable) Snapshot(context.Context) ([]Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.procs), nil
}

func (f *fakeTable) Kill(_ context.Context, pid int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[pid]; err != nil {
		return err
	}
	f.killed = append(f.killed, pid)
	return nil
}

func fixture() *fakeTable {
	return &fakeTable{procs: []Process{
		{PID: 1, PPID: 0, Name: "init", Status: "sleep"},
		{PID: 100, PPID: 1, Name: "ansys.exe", Cmdline: []string{"ansys", "-j", "file", "-port", "50052", "-grpc"}, Status: "running", Cwd: "/tmp/a"},
		{PID: 101, PPID: 100, Name: "mapdl_worker", Status: "sleep"},
		{PID: 102, PPID: 101, Name: "mapdl_worker", Status: "sleep"},
		{PID: 200, PPID: 1, Name: "MAPDL", Cmdline: []string{"mapdl", "-port", "50053", "-grpc"}, Status: "sleep", Cwd: "/tmp/b"},
		{PID: 300, PPID: 1, Name: "ansys", Cmdline: []string{"ansys", "-port", "50054"}, Status: "running"},
		{PID: 400, PPID: 1, Name: "mapdl", Cmdline: []string{"mapdl", "-port", "50055", "-grpc"}, Status: "zombie"},
	}}
}

func TestIsSolverAndPort(t *testing.T) {
	testlog.Start(t)
	f := fixture()
	want := map[int32]bool{100: true, 200: true, 400: true}
	for _, p := range f.procs {
		if got := IsSolver(p); got != want[p.PID] {
			t.Fatalf("IsSolver(%d %s) = %v", p.PID, p.Name, got)
		}
	}
	if got := Port([]string{"mapdl", "-port", "50060", "-grpc"}); got != "50060" {
		t.Fatalf("Port = %q", got)
	}
	if got := Port([]string{"mapdl", "-port"}); got != "" {
		t.Fatalf("Port without value = %q", got)
	}
}

func TestListMarksInstances(t *testing.T) {
	testlog.Start(t)
	rows, err := List(context.Background(), fixture(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 solver processes, got %+v", rows)
	}
	if !rows[0].IsInstance || rows[0].Port != "50052" || rows[0].Cwd != "/tmp/a" {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].IsInstance {
		t.Fatalf("process without children should not be an instance: %+v", rows[1])
	}
	if rows[0].Cmdline != "ansys -j file -port 50052 -grpc" {
		t.Fatalf("cmdline = %q", rows[0].Cmdline)
	}

	only, err := List(context.Background(), fixture(), ListOptions{InstancesOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(only) != 1 || only[0].PID != 100 {
		t.Fatalf("expected only pid 100, got %+v", only)
	}
}

func TestStopByPortDefaultsTo50052(t *testing.T) {
	testlog.Start(t)
	f := fixture()
	res, err := Stop(context.Background(), f, StopRequest{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !slices.Equal(f.killed, []int32{100}) || !slices.Equal(res.Stopped, []int32{100}) {
		t.Fatalf("killed %v, result %v", f.killed, res.Stopped)
	}
	if res.Message != "Ansys instances running on port 50052 have been stopped." {
		t.Fatalf("message = %q", res.Message)
	}

	res, err = Stop(context.Background(), fixture(), StopRequest{Port: 50055})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(res.Stopped) != 0 || res.Message != "No Ansys instances running on port 50055 have been found." {
		t.Fatalf("zombie process should be skipped: %+v", res)
	}
}

func TestStopMatchesDeadAndParkedStates(t *testing.T) {
	testlog.Start(t)
	f := &fakeTable{procs: []Process{
		{PID: 500, PPID: 1, Name: "mapdl", Cmdline: []string{"mapdl", "-port", "50056", "-grpc"}, Status: ""},
	}}
	res, err := Stop(context.Background(), f, StopRequest{Port: 50056})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !slices.Equal(f.killed, []int32{500}) || !slices.Equal(res.Stopped, []int32{500}) {
		t.Fatalf("killed %v, result %v", f.killed, res.Stopped)
	}
}

func TestStopAllSkipsFailures(t *testing.T) {
	testlog.Start(t)
	f := fixture()
	f.fail = map[int32]error{200: errors.New("gone")}
	res, err := Stop(context.Background(), f, StopRequest{All: true})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !slices.Equal(res.Stopped, []int32{100}) {
		t.Fatalf("stopped %v", res.Stopped)
	}
	if res.Message != "Ansys instances have been stopped." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestStopByPIDKillsTreeChildrenFirst(t *testing.T) {
	testlog.Start(t)
	f := fixture()
	res, err := Stop(context.Background(), f, StopRequest{PID: 100})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !slices.Equal(f.killed, []int32{102, 101, 100}) {
		t.Fatalf("kill order %v", f.killed)
	}
	if len(res.Stopped) != 3 {
		t.Fatalf("stopped %v", res.Stopped)
	}

	if _, err := Stop(context.Background(), fixture(), StopRequest{PID: 9999}); !errors.Is(err, ErrNoSuchProcess) {
		t.Fatalf("expected ErrNoSuchProcess, got %v", err)
	}

	f = fixture()
	f.fail = map[int32]error{101: errors.New("denied")}
	if _, err := Stop(context.Background(), f, StopRequest{PID: 100}); err == nil {
		t.Fatalf("expected kill failure to be reported")
	}
}
