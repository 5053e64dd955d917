package launcher

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/danmuck/mapdlctl/internal/tools"
)

var (
	reCleanupPIDPosix   = regexp.MustCompile(`-9 (\d+)`)
	reCleanupPIDWindows = regexp.MustCompile(`/pid (\d+)`)
)

// CleanupScripts lists the cleanup scripts a distributed run leaves in dir.
func CleanupScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), "cleanup") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// CleanupPIDs collects the process ids named by the cleanup scripts in dir.
func CleanupPIDs(dir string) ([]int, error) {
	scripts, err := CleanupScripts(dir)
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	for _, script := range scripts {
		raw, err := os.ReadFile(script)
		if err != nil {
			return nil, err
		}
		for _, pid := range parseCleanupPIDs(string(raw)) {
			seen[pid] = true
		}
	}
	out := make([]int, 0, len(seen))
	for pid := range seen {
		out = append(out, pid)
	}
	slices.Sort(out)
	return out, nil
}

func parseCleanupPIDs(script string) []int {
	var out []int
	for _, re := range []*regexp.Regexp{reCleanupPIDPosix, reCleanupPIDWindows} {
		for _, m := range re.FindAllStringSubmatch(script, -1) {
			if pid, err := strconv.Atoi(m[1]); err == nil {
				out = append(out, pid)
			}
		}
	}
	return out
}

// RunCleanup executes every cleanup script in dir through runner.
func RunCleanup(ctx context.Context, runner tools.CommandRunner, dir string) error {
	scripts, err := CleanupScripts(dir)
	if err != nil {
		return err
	}
	log := observability.Component("launcher")
	for _, script := range scripts {
		name, args := script, []string(nil)
		if runtime.GOOS != "windows" {
			name, args = "/bin/bash", []string{script}
		}
		res, err := runner.Run(ctx, dir, name, args...)
		log.Debug().
			Str("script", script).
			Int32("exit_code", res.ExitCode).
			Str("stdout", string(res.Stdout)).
			Str("stderr", string(res.Stderr)).
			Msg("cleanup script")
		if err != nil {
			return err
		}
	}
	return nil
}
