// Package launcher starts local solver instances and negotiates the address
// a client connects to.
//
// Ownership boundary:
// - address resolution from arguments and MAPDL_* variables
//
// - port availability and ownership checks
//
// - launch command generation, process start and readiness detection
//
// - cleanup scripts left behind by distributed runs
package launcher

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/danmuck/mapdlctl/internal/observability"
)

const (
	DefaultIP   = "127.0.0.1"
	DefaultPort = 50052

	// MinPort and MaxPort bound the ports a solver may be launched on.
	MinPort = 1000
	MaxPort = 60000

	EnvIP            = "MAPDL_IP"
	EnvPort          = "MAPDL_PORT"
	EnvExec          = "MAPDL_EXEC"
	EnvStartInstance = "MAPDL_START_INSTANCE"
)

var (
	ErrInvalidIP   = errors.New("launcher: invalid ip address")
	ErrInvalidPort = errors.New("launcher: invalid port")
)

// StartInstance reports whether sessions should launch and own a solver.
// It is true unless MAPDL_START_INSTANCE parses as false.
func StartInstance() bool {
	raw := strings.TrimSpace(os.Getenv(EnvStartInstance))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log := observability.Component("launcher")
		log.Warn().Str("value", raw).Msgf("ignoring invalid %s", EnvStartInstance)
		return true
	}
	return v
}

// ResolveIP returns ip, falling back to MAPDL_IP and then DefaultIP.
// "localhost" is normalized to the loopback address.
func ResolveIP(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = strings.TrimSpace(os.Getenv(EnvIP))
	}
	if ip == "" {
		return DefaultIP, nil
	}
	if strings.EqualFold(ip, "localhost") {
		return DefaultIP, nil
	}
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	return ip, nil
}

// ResolvePort returns port, falling back to MAPDL_PORT and then
// DefaultPort.
func ResolvePort(port int) (int, error) {
	if port == 0 {
		raw := strings.TrimSpace(os.Getenv(EnvPort))
		if raw == "" {
			return DefaultPort, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPort, EnvPort, raw)
		}
		port = v
	}
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}

func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("%w: %d outside %d-%d", ErrInvalidPort, port, MinPort, MaxPort)
	}
	return nil
}
