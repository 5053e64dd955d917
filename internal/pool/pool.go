// Package pool keeps several local solver sessions and hands them out one
// job at a time.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed      = errors.New("pool: closed")
	ErrInvalidSize = errors.New("pool: size must be positive")
)

// Session is a pooled solver session. *client.Client satisfies it.
type Session interface {
	Run(ctx context.Context, command string, opts ...client.RunOption) (string, error)
	Input(ctx context.Context, path string) (string, error)
	Exit(ctx context.Context, force bool) error
	Exited() bool
	Target() string
}

// Spawner starts one session listening on port.
type Spawner func(ctx context.Context, port int) (Session, error)

type Options struct {
	// StartPort is the first port tried; 0 means launcher.DefaultPort.
	StartPort int
	// Restart respawns exited instances while Monitor runs.
	Restart bool
}

type slot struct {
	id      string
	port    int
	s       Session
	locked  bool
	healing bool
}

// Pool is safe for concurrent use.
type Pool struct {
	spawn Spawner
	opts  Options
	log   zerolog.Logger

	mu      sync.Mutex
	slots   []*slot
	closed  bool
	changed chan struct{}
}

// New spawns n sessions in parallel on consecutive ports. If any spawn
// fails the started sessions are exited and the error returned.
func New(ctx context.Context, n int, spawn Spawner, opts Options) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if opts.StartPort == 0 {
		opts.StartPort = launcher.DefaultPort
	}
	p := &Pool{
		spawn:   spawn,
		opts:    opts,
		log:     observability.Component("pool"),
		changed: make(chan struct{}),
	}
	p.slots = make([]*slot, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.slots {
		i := i
		port := opts.StartPort + i
		g.Go(func() error {
			s, err := spawn(gctx, port)
			if err != nil {
				return fmt.Errorf("pool: spawn on port %d: %w", port, err)
			}
			p.mu.Lock()
			p.slots[i] = &slot{id: uuid.NewString(), port: port, s: s}
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, sl := range p.slots {
			if sl != nil {
				_ = sl.s.Exit(context.WithoutCancel(ctx), true)
			}
		}
		return nil, err
	}
	p.log.Info().Int("instances", n).Int("start_port", opts.StartPort).Msg("pool ready")
	p.report()
	return p, nil
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// broadcast wakes every Next waiter. Caller holds p.mu.
func (p *Pool) broadcast() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// Lease is exclusive use of one session until Release.
type Lease struct {
	p    *Pool
	sl   *slot
	once sync.Once
}

func (l *Lease) Session() Session { return l.sl.s }

func (l *Lease) ID() string { return l.sl.id }

func (l *Lease) Release() {
	l.once.Do(func() {
		l.p.mu.Lock()
		l.sl.locked = false
		l.p.broadcast()
		l.p.mu.Unlock()
		l.p.report()
	})
}

// Next blocks until an unlocked live session is available and locks it.
func (p *Pool) Next(ctx context.Context) (*Lease, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		for _, sl := range p.slots {
			if !sl.locked && !sl.healing && !sl.s.Exited() {
				sl.locked = true
				p.mu.Unlock()
				p.report()
				return &Lease{p: p, sl: sl}, nil
			}
		}
		wait := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// Map runs fn for each job on the next free session, at most one job per
// session at a time. Results keep the order of jobs; failed jobs leave the
// zero value and their errors are joined.
func Map[J, R any](ctx context.Context, p *Pool, jobs []J, fn func(context.Context, Session, J) (R, error)) ([]R, error) {
	results := make([]R, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.Len())
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			lease, err := p.Next(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			defer lease.Release()
			r, err := fn(ctx, lease.Session(), job)
			if err != nil {
				errs[i] = fmt.Errorf("pool: job %d on %s: %w", i, lease.Session().Target(), err)
				return nil
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// RunBatch runs each input file on the pool and returns the outputs in
// order.
func (p *Pool) RunBatch(ctx context.Context, files []string) ([]string, error) {
	return Map(ctx, p, files, func(ctx context.Context, s Session, file string) (string, error) {
		return s.Input(ctx, file)
	})
}

// Heal exits and respawns exited, unlocked sessions on ports above the
// highest one in use. It returns how many were replaced.
func (p *Pool) Heal(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	var dead []*slot
	next := 0
	for _, sl := range p.slots {
		next = max(next, sl.port)
		if !sl.locked && !sl.healing && sl.s.Exited() {
			sl.healing = true
			dead = append(dead, sl)
		}
	}
	p.mu.Unlock()

	var errs []error
	healed := 0
	for _, sl := range dead {
		// An exited client may still own a live solver, a claimed port and
		// a connection.
		if err := sl.s.Exit(ctx, true); err != nil {
			p.log.Warn().Err(err).Str("id", sl.id).Str("target", sl.s.Target()).Msg("exit before respawn")
		}
		next++
		s, err := p.spawn(ctx, next)
		p.mu.Lock()
		sl.healing = false
		if err == nil {
			p.log.Info().Str("id", sl.id).Int("old_port", sl.port).Int("port", next).Msg("instance respawned")
			sl.s, sl.port = s, next
			healed++
		}
		p.broadcast()
		p.mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("pool: respawn %s on port %d: %w", sl.id, next, err))
		}
	}
	p.report()
	return healed, errors.Join(errs...)
}

// Monitor checks the sessions every interval until ctx ends, respawning
// exited ones when Options.Restart is set.
func (p *Pool) Monitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !p.opts.Restart {
			p.report()
			continue
		}
		if _, err := p.Heal(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			p.log.Warn().Err(err).Msg("respawn failed")
		}
	}
}

// Exit stops every session concurrently and closes the pool.
func (p *Pool) Exit(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	slots := append([]*slot(nil), p.slots...)
	p.broadcast()
	p.mu.Unlock()

	var g errgroup.Group
	for _, sl := range slots {
		sl := sl
		g.Go(func() error {
			if err := sl.s.Exit(ctx, true); err != nil {
				return fmt.Errorf("pool: exit %s: %w", sl.s.Target(), err)
			}
			return nil
		})
	}
	err := g.Wait()
	p.report()
	p.log.Info().Int("instances", len(slots)).Msg("pool exited")
	return err
}

// InstanceStatus describes one pooled session.
type InstanceStatus struct {
	ID     string `json:"id"`
	Port   int    `json:"port"`
	Target string `json:"target"`
	Locked bool   `json:"locked"`
	Exited bool   `json:"exited"`
}

type Status struct {
	Closed    bool             `json:"closed"`
	Ready     int              `json:"ready"`
	Busy      int              `json:"busy"`
	Exited    int              `json:"exited"`
	Instances []InstanceStatus `json:"instances"`
}

func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{Closed: p.closed, Instances: make([]InstanceStatus, 0, len(p.slots))}
	for _, sl := range p.slots {
		is := InstanceStatus{ID: sl.id, Port: sl.port, Target: sl.s.Target(), Locked: sl.locked, Exited: sl.s.Exited()}
		switch {
		case is.Exited:
			st.Exited++
		case is.Locked:
			st.Busy++
		default:
			st.Ready++
		}
		st.Instances = append(st.Instances, is)
	}
	return st
}

func (p *Pool) report() {
	st := p.Status()
	observability.SetPoolInstances("ready", st.Ready)
	observability.SetPoolInstances("busy", st.Busy)
	observability.SetPoolInstances("exited", st.Exited)
}
