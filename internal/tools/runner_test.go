package tools

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
)

func TestExecRunnerCapturesOutputAndExitCode(t *testing.T) {
	testlog.Start(t)
	if runtime.GOOS == "windows" {
		t.Skip("posix shell required")
	}
	r := ExecRunner{Env: []string{"MAPDL_RUNNER_TEST=hello"}}
	dir := t.TempDir()

	res, err := r.Run(context.Background(), dir, "sh", "-c", `echo "$MAPDL_RUNNER_TEST"; pwd; echo oops >&2`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := string(res.Stdout)
	if !strings.Contains(out, "hello") || !strings.Contains(out, dir) {
		t.Fatalf("unexpected stdout %q", out)
	}
	if strings.TrimSpace(string(res.Stderr)) != "oops" {
		t.Fatalf("unexpected stderr %q", res.Stderr)
	}

	res, err = r.Run(context.Background(), dir, "sh", "-c", "exit 3")
	if err == nil || res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d %v", res.ExitCode, err)
	}

	res, err = r.Run(context.Background(), dir, "definitely-not-a-binary-mapdl")
	if err == nil || res.ExitCode != 127 {
		t.Fatalf("expected exit code 127, got %d %v", res.ExitCode, err)
	}
}
