package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// maxPortAttempts bounds the search in FindAvailablePort.
const maxPortAttempts = 100

var (
	ErrPortInUse         = errors.New("launcher: port already in use")
	ErrPortInUseBySolver = errors.New("launcher: port already in use by a solver instance")
	ErrNoAvailablePort   = errors.New("launcher: no available port")
)

// PortOwner is the process holding a local port.
type PortOwner struct {
	PID     int32
	Name    string
	Cmdline []string
}

// IsSolver reports whether the owner looks like a solver started in gRPC
// mode.
func (o PortOwner) IsSolver() bool {
	return IsSolverProcess(o.Name, o.Cmdline)
}

// IsSolverProcess matches ansys* or mapdl* executables started with -grpc.
func IsSolverProcess(name string, cmdline []string) bool {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "ansys") && !strings.HasPrefix(name, "mapdl") {
		return false
	}
	return slices.Contains(cmdline, "-grpc")
}

// PortInUse reports whether port cannot be bound on ip or is held by any
// local process.
func PortInUse(ctx context.Context, ip string, port int) bool {
	if !canBind(ip, port) {
		return true
	}
	owner, err := FindPortOwner(ctx, port)
	return err == nil && owner != nil
}

func canBind(ip string, port int) bool {
	lis, err := net.Listen("tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = lis.Close()
	return true
}

// FindPortOwner scans local connections for a process bound to port. A nil
// owner with a nil error means no accessible process holds it.
func FindPortOwner(ctx context.Context, port int) (*PortOwner, error) {
	conns, err := gnet.ConnectionsWithContext(ctx, "inet")
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if int(c.Laddr.Port) != port || c.Pid == 0 {
			continue
		}
		owner := &PortOwner{PID: c.Pid}
		if p, err := process.NewProcessWithContext(ctx, c.Pid); err == nil {
			owner.Name, _ = p.NameWithContext(ctx)
			owner.Cmdline, _ = p.CmdlineSliceWithContext(ctx)
		}
		return owner, nil
	}
	return nil, nil
}

// CheckPort fails when port is outside the launch range or already taken.
func CheckPort(ctx context.Context, ip string, port int) error {
	if err := ValidatePort(port); err != nil {
		return err
	}
	if !PortInUse(ctx, ip, port) {
		return nil
	}
	owner, _ := FindPortOwner(ctx, port)
	if owner != nil && owner.IsSolver() {
		return fmt.Errorf("%w: %d (pid %d)", ErrPortInUseBySolver, port, owner.PID)
	}
	return fmt.Errorf("%w: %d", ErrPortInUse, port)
}

// Ports tracks the ports claimed by instances this process launched so
// concurrent launches never race for the same port.
type Ports struct {
	mu      sync.Mutex
	claimed map[int]bool
	inUse   func(ctx context.Context, ip string, port int) bool
}

func NewPorts() *Ports {
	return &Ports{claimed: map[int]bool{}, inUse: PortInUse}
}

var localPorts = NewPorts()

// Find claims the first free port starting at start. With start zero the
// search begins at DefaultPort, or one above the highest claimed port.
func (p *Ports) Find(ctx context.Context, ip string, start int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if start <= 0 {
		start = DefaultPort
		for port := range p.claimed {
			if port >= start {
				start = port + 1
			}
		}
	}
	for port := start; port < start+maxPortAttempts; port++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if port > MaxPort {
			break
		}
		if p.claimed[port] || p.inUse(ctx, ip, port) {
			continue
		}
		p.claimed[port] = true
		return port, nil
	}
	return 0, fmt.Errorf("%w: tried %d ports from %d", ErrNoAvailablePort, maxPortAttempts, start)
}

// Claim records port as taken. It reports false when already claimed.
func (p *Ports) Claim(port int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claimed[port] {
		return false
	}
	p.claimed[port] = true
	return true
}

func (p *Ports) Release(port int) {
	p.mu.Lock()
	delete(p.claimed, port)
	p.mu.Unlock()
}

func (p *Ports) Claimed() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, 0, len(p.claimed))
	for port := range p.claimed {
		out = append(out, port)
	}
	slices.Sort(out)
	return out
}

// FindAvailablePort claims a free port from the process-wide registry.
func FindAvailablePort(ctx context.Context, ip string, start int) (int, error) {
	return localPorts.Find(ctx, ip, start)
}

func ReleasePort(port int) { localPorts.Release(port) }
