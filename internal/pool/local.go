package pool

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/launcher"
)

// localSession ties a client to the process it launched.
type localSession struct {
	*client.Client
	inst *launcher.Instance
}

func (s *localSession) Exited() bool {
	return s.Client.Exited() || s.inst.Exited()
}

func (s *localSession) Exit(ctx context.Context, force bool) error {
	err := s.Client.Exit(ctx, force)
	if !s.inst.Exited() {
		if kerr := s.inst.Kill(); kerr != nil && err == nil {
			err = kerr
		}
	}
	return err
}

// LocalSpawner launches solver processes with lcfg and connects to them
// with ccfg. Each instance gets its own run location below
// lcfg.RunLocation when one is set.
func LocalSpawner(lcfg launcher.Config, ccfg client.Config) Spawner {
	return func(ctx context.Context, port int) (Session, error) {
		lc := lcfg
		lc.Port = port
		if lc.RunLocation != "" {
			lc.RunLocation = filepath.Join(lc.RunLocation, fmt.Sprintf("instance_%d", port))
		}
		inst, err := launcher.Launch(ctx, lc)
		if err != nil {
			return nil, err
		}
		cc := ccfg
		cc.IP, cc.Port = inst.IP, inst.Port
		cc.Local = true
		cc.RunLocation = inst.RunLocation
		cc.Jobname = inst.Jobname
		cc.PIDs = []int{inst.PID}
		c, err := client.Dial(ctx, cc)
		if err != nil {
			_ = inst.Kill()
			return nil, err
		}
		return &localSession{Client: c, inst: inst}, nil
	}
}
