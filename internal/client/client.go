// Package client is the gRPC session with a running solver.
//
// Ownership boundary:
// - connection setup, readiness, interceptors and transport security
//
// - command execution, batching and response classification
//
// - parameter, APDLMath data and file transfer RPCs
//
// - session lifecycle (health, heartbeat, exit)
package client

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/mapdlctl/internal/launcher"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/danmuck/mapdlctl/internal/tools"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Client struct {
	cfg     Config
	conn    *grpc.ClientConn
	owned   bool
	stub    mapdlpb.MapdlServiceClient
	health  healthpb.HealthClient
	counter *CallCounter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
	rng     *rand.Rand

	exited  atomic.Bool
	exiting atomic.Bool
	busy    atomic.Bool
	mute    atomic.Bool

	mu           sync.Mutex
	batch        []string
	batching     bool
	lastResponse string
	version      *version.Version
	pids         []int

	stopBG context.CancelFunc
	bg     sync.WaitGroup
}

// Dial connects to the solver at cfg.Target(), retrying until the channel is
// ready or the attempts are exhausted.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target := cfg.Target()
	creds, err := cfg.transportCredentials()
	if err != nil {
		return nil, err
	}

	counter := NewCallCounter(target)
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageLength),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageLength),
		),
		grpc.WithChainUnaryInterceptor(counter.UnaryInterceptor()),
		grpc.WithChainStreamInterceptor(counter.StreamInterceptor()),
	}
	if cfg.Dialer != nil {
		opts = append(opts, grpc.WithContextDialer(cfg.Dialer))
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnableToConnect, target, err)
	}

	c := newClient(conn, cfg, counter, true)
	if err := c.multiConnect(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := c.afterConnect(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// New attaches to a caller-owned connection. The connection should carry a
// CallCounter's interceptors if call counting is wanted; otherwise Count
// reports zero.
func New(ctx context.Context, conn *grpc.ClientConn, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	c := newClient(conn, cfg, NewCallCounter(conn.Target()), false)
	if err := c.afterConnect(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(conn *grpc.ClientConn, cfg Config, counter *CallCounter, owned bool) *Client {
	c := &Client{
		cfg:     cfg,
		conn:    conn,
		owned:   owned,
		stub:    mapdlpb.NewMapdlServiceClient(conn),
		health:  healthpb.NewHealthClient(conn),
		counter: counter,
		log:     observability.Component("client").With().Str("target", conn.Target()).Logger(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		pids:    append([]int(nil), cfg.PIDs...),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mapdl " + conn.Target(),
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isTransportFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
		},
	})
	return c
}

func (c *Client) multiConnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	perAttempt := c.cfg.ConnectTimeout / time.Duration(c.cfg.ConnectAttempts)

	for attempt := 1; attempt <= c.cfg.ConnectAttempts; attempt++ {
		c.log.Debug().Int("attempt", attempt).Msg("connection attempt")
		actx, acancel := context.WithTimeout(ctx, perAttempt)
		ready := waitReady(actx, c.conn)
		acancel()
		if ready {
			c.log.Debug().Msg("connected")
			return nil
		}
		if attempt == c.cfg.ConnectAttempts {
			break
		}
		timer := time.NewTimer(c.cfg.Backoff.Delay(attempt, c.rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %v", ErrUnableToConnect, c.cfg.Target(), ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrUnableToConnect, c.cfg.Target(), c.cfg.ConnectAttempts)
}

func waitReady(ctx context.Context, conn *grpc.ClientConn) bool {
	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return true
		}
		if !conn.WaitForStateChange(ctx, state) {
			return false
		}
	}
}

func (c *Client) afterConnect(ctx context.Context) error {
	bgctx, cancel := context.WithCancel(context.Background())
	c.stopBG = cancel
	if c.cfg.HealthCheck {
		c.bg.Add(1)
		go c.watchHealth(bgctx)
	}
	if !c.cfg.Local && c.cfg.HeartbeatInterval > 0 {
		c.bg.Add(1)
		go c.heartbeat(bgctx, c.cfg.HeartbeatInterval)
	}
	if c.cfg.SetNoAbort {
		if _, err := c.Run(ctx, "NERR,,,-1", Mute()); err != nil {
			return err
		}
	}
	return nil
}

// call runs one unary RPC through the circuit breaker.
func (c *Client) call(method string, fn func() error) error {
	if c.exited.Load() && !c.exiting.Load() {
		return fmt.Errorf("%w: %s", ErrExited, method)
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return c.translate(method, err)
}

func (c *Client) markExited(reason string) {
	if c.exited.CompareAndSwap(false, true) {
		c.log.Warn().Str("reason", reason).Msg("solver session exited")
	}
}

func (c *Client) Config() Config { return c.cfg }

func (c *Client) Target() string { return c.cfg.Target() }

func (c *Client) Exited() bool { return c.exited.Load() }

func (c *Client) Busy() bool { return c.busy.Load() }

// SetMute silences the response of every Run call that does not override it.
func (c *Client) SetMute(mute bool) { c.mute.Store(mute) }

func (c *Client) Muted() bool { return c.mute.Load() }

// CallCount is the number of RPCs issued on this session.
func (c *Client) CallCount() int64 { return c.counter.Count() }

func (c *Client) LastResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// SetPIDs replaces the cached local process ids killed on Exit.
func (c *Client) SetPIDs(pids []int) {
	c.mu.Lock()
	c.pids = append([]int(nil), pids...)
	c.mu.Unlock()
}

func (c *Client) PIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.pids...)
}

// Close stops background work and closes an owned connection. It does not
// ask the solver to exit.
func (c *Client) Close() error {
	if c.stopBG != nil {
		c.stopBG()
	}
	c.bg.Wait()
	if c.owned && c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Exit asks the solver to exit, kills cached local processes and removes
// lock files. Unless force is set, Exit is skipped when StartInstance is
// false, since the session did not launch the solver.
func (c *Client) Exit(ctx context.Context, force bool) error {
	if !force && !launcher.StartInstance() {
		c.log.Info().Msgf("ignoring exit due to %s=false", launcher.EnvStartInstance)
		return nil
	}
	if c.exited.Load() {
		return c.Close()
	}
	c.exiting.Store(true)
	c.log.Debug().Msg("exiting solver")

	if _, err := c.Ctrl(ctx, "EXIT"); err != nil {
		c.log.Debug().Err(err).Msg("exit control")
	}
	c.exited.Store(true)
	c.killLocal(ctx)
	c.removeLockFiles()
	if c.cfg.RemoveTempFiles && c.cfg.Local && c.cfg.RunLocation != "" {
		c.log.Debug().Str("dir", c.cfg.RunLocation).Msg("removing run location")
		_ = os.RemoveAll(c.cfg.RunLocation)
	}
	return c.Close()
}

func (c *Client) killLocal(ctx context.Context) {
	if !c.cfg.Local {
		return
	}
	pids := c.PIDs()
	if dir := c.cfg.RunLocation; dir != "" {
		if more, err := launcher.CleanupPIDs(dir); err == nil {
			pids = append(pids, more...)
		}
		if err := launcher.RunCleanup(ctx, tools.ExecRunner{}, dir); err != nil {
			c.log.Debug().Err(err).Msg("cleanup scripts")
		}
	}
	for _, pid := range pids {
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := proc.Kill(); err != nil {
			c.log.Debug().Int("pid", pid).Err(err).Msg("kill")
		}
	}
}

// removeLockFiles clears locks a crashed solver leaves behind.
func (c *Client) removeLockFiles() {
	if c.cfg.RunLocation == "" {
		return
	}
	for _, name := range []string{c.cfg.Jobname + ".lock", "file.lock"} {
		path := filepath.Join(c.cfg.RunLocation, name)
		if _, err := os.Stat(path); err == nil {
			_ = os.Remove(path)
		}
	}
}
