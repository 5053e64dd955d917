package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/mapdlctl/internal/observability"
)

const (
	windowsTmpInput  = ".__tmp__.inp"
	windowsTmpOutput = ".__tmp__.out"

	bannerStart     = "GRPC SERVER"
	bannerListening = "Server listening on"
)

var (
	ErrExecNotFound = errors.New("launcher: solver executable not set")
	ErrLockFile     = errors.New("launcher: lock file exists")
	ErrDidNotStart  = errors.New("launcher: solver did not start")
)

// Config describes one local launch.
type Config struct {
	Exec        string
	Jobname     string
	NProc       int
	RAMMB       int
	IP          string
	Port        int
	RunLocation string
	Switches    string
	// Override removes a stale lock file instead of failing.
	Override bool
	Timeout  time.Duration
	Env      map[string]string
	// Output receives the solver's console output.
	Output io.Writer
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Exec) == "" {
		c.Exec = strings.TrimSpace(os.Getenv(EnvExec))
	}
	if strings.TrimSpace(c.Jobname) == "" {
		c.Jobname = "file"
	}
	if c.NProc <= 0 {
		c.NProc = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}

// Command returns the argv that starts the solver in gRPC mode.
func Command(cfg Config) []string {
	return commandFor(cfg.WithDefaults(), runtime.GOOS)
}

func commandFor(cfg Config, goos string) []string {
	parts := []string{
		"-j " + cfg.Jobname,
		"-np " + strconv.Itoa(cfg.NProc),
	}
	if cfg.RAMMB > 0 {
		parts = append(parts, "-m "+strconv.Itoa(cfg.RAMMB))
	}
	if goos == "windows" {
		parts = append(parts, "-b", "-i "+windowsTmpInput, "-o "+windowsTmpOutput)
	}
	parts = append(parts, cfg.Switches, "-port "+strconv.Itoa(cfg.Port), "-grpc")

	argv := []string{cfg.Exec}
	argv = append(argv, strings.Fields(strings.Join(parts, " "))...)
	return argv
}

// CheckLockFile fails when jobname.lock exists in dir, unless override
// removes it.
func CheckLockFile(dir, jobname string, override bool) error {
	lock := filepath.Join(dir, jobname+".lock")
	if _, err := os.Stat(lock); err != nil {
		return nil
	}
	if !override {
		return fmt.Errorf("%w: %s", ErrLockFile, lock)
	}
	if err := os.Remove(lock); err != nil {
		return fmt.Errorf("%w: unable to remove %s: %v", ErrLockFile, lock, err)
	}
	return nil
}

// Instance is a launched solver process.
type Instance struct {
	IP          string
	Port        int
	PID         int
	RunLocation string
	Jobname     string

	cmd     *exec.Cmd
	done    chan struct{}
	scanned chan struct{}

	mu        sync.Mutex
	waitErr   error
	output    strings.Builder
	sawStart  bool
	listening bool
}

func (i *Instance) Target() string {
	return i.IP + ":" + strconv.Itoa(i.Port)
}

// Exited reports whether the process has terminated.
func (i *Instance) Exited() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits.
func (i *Instance) Wait() error {
	<-i.done
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.waitErr
}

// Kill terminates the process and releases its port.
func (i *Instance) Kill() error {
	defer ReleasePort(i.Port)
	if i.cmd == nil || i.cmd.Process == nil || i.Exited() {
		return nil
	}
	if err := i.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-i.done
	return nil
}

// Output is the console output captured so far.
func (i *Instance) Output() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.output.String()
}

func (i *Instance) scan(r io.Reader, tee io.Writer) {
	defer close(i.scanned)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if tee != nil {
			_, _ = fmt.Fprintln(tee, line)
		}
		i.mu.Lock()
		i.output.WriteString(line)
		i.output.WriteByte('\n')
		if strings.Contains(line, bannerStart) {
			i.sawStart = true
		}
		if i.sawStart && strings.Contains(line, bannerListening) {
			i.listening = true
		}
		i.mu.Unlock()
	}
	_, _ = io.Copy(io.Discard, r)
}

func (i *Instance) isListening() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.listening
}

// Launch starts a solver and waits until it has created its error file
// and, on POSIX hosts, printed the gRPC listening banner.
func Launch(ctx context.Context, cfg Config) (*Instance, error) {
	cfg = cfg.WithDefaults()
	log := observability.Component("launcher")
	if cfg.Exec == "" {
		return nil, fmt.Errorf("%w: pass an executable or set %s", ErrExecNotFound, EnvExec)
	}
	ip, err := ResolveIP(cfg.IP)
	if err != nil {
		return nil, err
	}
	cfg.IP = ip

	if cfg.RunLocation == "" {
		dir, err := os.MkdirTemp("", "mapdl_")
		if err != nil {
			return nil, err
		}
		cfg.RunLocation = dir
	} else if err := os.MkdirAll(cfg.RunLocation, 0o755); err != nil {
		return nil, err
	}
	if err := CheckLockFile(cfg.RunLocation, cfg.Jobname, cfg.Override); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		if cfg.Port, err = FindAvailablePort(ctx, cfg.IP, 0); err != nil {
			return nil, err
		}
	} else {
		if err := CheckPort(ctx, cfg.IP, cfg.Port); err != nil {
			return nil, err
		}
		if !localPorts.Claim(cfg.Port) {
			return nil, fmt.Errorf("%w: %d claimed by another launch", ErrPortInUse, cfg.Port)
		}
	}

	argv := commandFor(cfg, runtime.GOOS)
	if runtime.GOOS == "windows" {
		tmp := filepath.Join(cfg.RunLocation, windowsTmpInput)
		if err := os.WriteFile(tmp, []byte("FINISH\r\n"), 0o644); err != nil {
			ReleasePort(cfg.Port)
			return nil, err
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cfg.RunLocation
	cmd.Env = append(os.Environ(), "ANS_CMD_NODIAG=TRUE")
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	log.Info().
		Str("run_location", cfg.RunLocation).
		Str("command", strings.Join(argv, " ")).
		Msg("starting solver")
	if err := cmd.Start(); err != nil {
		ReleasePort(cfg.Port)
		return nil, fmt.Errorf("%w: %v", ErrDidNotStart, err)
	}

	inst := &Instance{
		IP:          cfg.IP,
		Port:        cfg.Port,
		PID:         cmd.Process.Pid,
		RunLocation: cfg.RunLocation,
		Jobname:     cfg.Jobname,
		cmd:         cmd,
		done:        make(chan struct{}),
		scanned:     make(chan struct{}),
	}
	go inst.scan(pr, cfg.Output)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		inst.mu.Lock()
		inst.waitErr = err
		inst.mu.Unlock()
		close(inst.done)
	}()

	if err := waitForStart(ctx, inst, cfg.Timeout, runtime.GOOS != "windows"); err != nil {
		_ = inst.Kill()
		<-inst.scanned
		return nil, fmt.Errorf("%w\nrun location: %s\ncommand: %s\n\n%s",
			err, cfg.RunLocation, strings.Join(argv, " "), strings.TrimSpace(inst.Output()))
	}
	log.Info().Int("pid", inst.PID).Str("target", inst.Target()).Msg("solver started")
	return inst, nil
}

func waitForStart(ctx context.Context, inst *Instance, timeout time.Duration, needBanner bool) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		errFile := hasErrorFile(inst.RunLocation)
		if errFile && (!needBanner || inst.isListening()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrDidNotStart, ctx.Err())
		case <-inst.done:
			return fmt.Errorf("%w: process exited", ErrDidNotStart)
		case <-deadline.C:
			if !errFile {
				return fmt.Errorf("%w: no .err file after %s", ErrDidNotStart, timeout)
			}
			return fmt.Errorf("%w: gRPC server not listening after %s", ErrDidNotStart, timeout)
		case <-tick.C:
		}
	}
}

func hasErrorFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".err") {
			return true
		}
	}
	return false
}
