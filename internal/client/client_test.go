package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/testutil/fakemapdl"
	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func startClient(t *testing.T, srv *fakemapdl.Server, mutate func(*Config)) *Client {
	t.Helper()
	fakemapdl.Start(t, srv)
	cfg := DefaultConfig()
	cfg.Dialer = srv.Dialer()
	cfg.Local = true
	cfg.ConnectTimeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func scripted(responses map[string]string) func(string) string {
	var mu sync.Mutex
	return func(cmd string) string {
		mu.Lock()
		defer mu.Unlock()
		return responses[cmd]
	}
}

func TestDialSetsNoAbortAndCountsCalls(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	c := startClient(t, srv, nil)

	cmds := srv.Commands()
	if len(cmds) == 0 || cmds[0] != "NERR,,,-1" {
		t.Fatalf("expected NERR,,,-1 on connect, got %v", cmds)
	}
	before := c.CallCount()
	if _, err := c.Run(context.Background(), "/PREP7"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := c.CallCount(); got != before+1 {
		t.Fatalf("expected one counted call, before=%d after=%d", before, got)
	}
	log.Info().Msgf("client/dial: target=%s calls=%d", c.Target(), c.CallCount())
}

func TestDialFailsWhenUnreachable(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.ConnectAttempts = 2
	cfg.ConnectTimeout = 400 * time.Millisecond
	cfg.Backoff = BackoffConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 1}
	cfg.Dialer = func(context.Context, string) (net.Conn, error) {
		return nil, errors.New("refused")
	}
	_, err := Dial(context.Background(), cfg)
	if !errors.Is(err, ErrUnableToConnect) {
		t.Fatalf("expected ErrUnableToConnect, got %v", err)
	}
	if !strings.Contains(err.Error(), cfg.Target()) {
		t.Fatalf("expected target in error, got %v", err)
	}
}

func TestDialRejectsInvalidAddress(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.IP = "not-an-ip"
	if _, err := Dial(context.Background(), cfg); !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
}

func TestRunClassifiesResponses(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = scripted(map[string]string{
		"K,1,0,0,0":   `KEYPOINT      1   X,Y,Z=   0.00000       0.00000       0.00000\n`,
		"RESUME,miss": " *** ERROR ***\n Unable to open file miss.db\n",
		"L,1,9":       " *** ERROR ***    CP = 0.1\n Keypoint 9 is not defined.\n",
	})
	var apdlLog bytes.Buffer
	c := startClient(t, srv, func(cfg *Config) { cfg.LogAPDL = &apdlLog })
	ctx := context.Background()

	out, err := c.Run(ctx, "K,1,0,0,0")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if id, ok := apdl.ParseK(out); !ok || id != 1 {
		t.Fatalf("expected keypoint 1 from %q", out)
	}
	if c.LastResponse() != out {
		t.Fatalf("last response not recorded")
	}

	if _, err := c.Run(ctx, "RESUME,miss"); !errors.Is(err, apdl.ErrFileNotFound) {
		t.Fatalf("expected file not found, got %v", err)
	}
	var runtimeErr *apdl.RuntimeError
	if _, err := c.Run(ctx, "L,1,9"); !errors.As(err, &runtimeErr) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if out, err := c.Run(ctx, "L,1,9", IgnoreErrors()); err != nil || !strings.Contains(out, "Keypoint 9") {
		t.Fatalf("expected ignored error text, got %q %v", out, err)
	}
	if !strings.Contains(apdlLog.String(), "K,1,0,0,0\n") {
		t.Fatalf("expected command log, got %q", apdlLog.String())
	}
}

func TestRunGuardsAndMute(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = func(cmd string) string { return "echo " + cmd }
	c := startClient(t, srv, nil)
	ctx := context.Background()

	if _, err := c.Run(ctx, "/PREP7\nK,1"); !errors.Is(err, apdl.ErrMultilineCommand) {
		t.Fatalf("expected multiline error, got %v", err)
	}
	if _, err := c.Run(ctx, "*VWRITE,A"); !errors.Is(err, apdl.ErrInvalidCommand) {
		t.Fatalf("expected invalid command, got %v", err)
	}
	if _, err := c.Run(ctx, "/NOPR"); err != nil {
		t.Fatalf("unexpected /NOPR error: %v", err)
	}
	if out, err := c.Run(ctx, "/PREP7", Mute()); err != nil || out != "" {
		t.Fatalf("expected muted empty response, got %q %v", out, err)
	}
	c.SetMute(true)
	if out, _ := c.Run(ctx, "/SOLU"); out != "" {
		t.Fatalf("expected session mute, got %q", out)
	}
	if out, _ := c.Run(ctx, "/SOLU", Unmute()); out != "echo /SOLU" {
		t.Fatalf("expected unmuted response, got %q", out)
	}

	cmds := srv.Commands()
	for _, cmd := range cmds {
		if strings.Contains(cmd, "*VWRITE") || strings.Contains(cmd, "\n") {
			t.Fatalf("guarded command reached the server: %q", cmd)
		}
	}
	if !strings.HasPrefix(cmds[len(cmds)-4], "/COM,") {
		t.Fatalf("expected /NOPR rewritten to /COM, got %v", cmds)
	}
}

func TestRunStreamsOutput(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = func(string) string { return "line one\nline two\n" }
	c := startClient(t, srv, nil)

	var buf bytes.Buffer
	out, err := c.Run(context.Background(), "NLIST", Stream(&buf))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.String() != "line one\nline two\n" {
		t.Fatalf("unexpected streamed output %q", buf.String())
	}
	if out != "line one\nline two" {
		t.Fatalf("unexpected response %q", out)
	}
}

func TestNonInteractiveBatchesCommands(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = scripted(map[string]string{"N,1,0,0,0": "NODE        1"})
	c := startClient(t, srv, nil)
	ctx := context.Background()
	sent := len(srv.Commands())

	out, err := c.NonInteractive(ctx, func() error {
		if _, err := c.Run(ctx, "/PREP7"); err != nil {
			return err
		}
		if _, err := c.Run(ctx, "N,1,0,0,0"); err != nil {
			return err
		}
		if _, err := c.Get(ctx, "NODE", 1, "LOC", nil, "X", nil); !errors.Is(err, ErrNonInteractiveGet) {
			t.Errorf("expected get to fail in batch, got %v", err)
		}
		if len(srv.Commands()) != sent {
			t.Errorf("commands reached the server before flush")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("non-interactive: %v", err)
	}
	cmds := srv.Commands()[sent:]
	if len(cmds) != 2 || cmds[0] != "/PREP7" || cmds[1] != "N,1,0,0,0" {
		t.Fatalf("unexpected flushed commands %v", cmds)
	}
	if !strings.Contains(out, "NODE        1") {
		t.Fatalf("expected batch output, got %q", out)
	}
	if c.InNonInteractive() {
		t.Fatalf("batch mode not cleared")
	}

	if _, err := c.NonInteractive(ctx, func() error {
		_, err := c.NonInteractive(ctx, func() error { return nil })
		return err
	}); !errors.Is(err, ErrNestedNonInteractive) {
		t.Fatalf("expected nested error, got %v", err)
	}
}

func TestNonInteractiveLogsQueuedCommands(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	var apdlLog bytes.Buffer
	c := startClient(t, srv, func(cfg *Config) { cfg.LogAPDL = &apdlLog })
	ctx := context.Background()

	if _, err := c.NonInteractive(ctx, func() error {
		_, err := c.Run(ctx, "N,1,0,0,0")
		return err
	}); err != nil {
		t.Fatalf("non-interactive: %v", err)
	}
	logged := apdlLog.String()
	queued := strings.Index(logged, "N,1,0,0,0\n")
	input := strings.Index(logged, "/INPUT,tmp_")
	if queued < 0 || input < 0 || queued > input {
		t.Fatalf("expected queued command logged before the flush, got %q", logged)
	}
}

func countCommand(cmds []string, want string) int {
	n := 0
	for _, cmd := range cmds {
		if cmd == want {
			n++
		}
	}
	return n
}

func TestHeartbeatStaysOutOfBatch(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = scripted(map[string]string{"/INQUIRE,,JOBNAME": " JOBNAME=file"})
	c := startClient(t, srv, func(cfg *Config) {
		cfg.Local = false
		cfg.HeartbeatInterval = 10 * time.Millisecond
	})
	ctx := context.Background()

	if _, err := c.NonInteractive(ctx, func() error {
		if _, err := c.Run(ctx, "/PREP7"); err != nil {
			return err
		}
		time.Sleep(60 * time.Millisecond)
		return nil
	}); err != nil {
		t.Fatalf("non-interactive: %v", err)
	}
	inputs := srv.Inputs()
	if len(inputs) != 1 || strings.TrimSpace(inputs[0]) != "/PREP7" {
		t.Fatalf("unexpected flushed batch %q", inputs)
	}

	before := countCommand(srv.Commands(), "/INQUIRE,,JOBNAME")
	time.Sleep(80 * time.Millisecond)
	if after := countCommand(srv.Commands(), "/INQUIRE,,JOBNAME"); after <= before {
		t.Fatalf("heartbeat stopped after batch: before=%d after=%d", before, after)
	}
	if c.Exited() {
		t.Fatalf("session should stay alive")
	}
}

func TestNewStopsBackgroundWorkOnFailure(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.Start(t, fakemapdl.New())
	srv.Handler = scripted(map[string]string{"/INQUIRE,,JOBNAME": " JOBNAME=file"})
	conn, err := grpc.NewClient("passthrough:///mapdl",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(srv.Dialer()),
	)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	cfg := DefaultConfig()
	cfg.Local = false
	cfg.HeartbeatInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(ctx, conn, cfg); err == nil {
		t.Fatalf("expected New to fail on a canceled context")
	}

	before := countCommand(srv.Commands(), "/INQUIRE,,JOBNAME")
	time.Sleep(60 * time.Millisecond)
	if after := countCommand(srv.Commands(), "/INQUIRE,,JOBNAME"); after != before {
		t.Fatalf("heartbeat still running after failed New: before=%d after=%d", before, after)
	}
}

func TestListFilesReportsMissingRunLocation(t *testing.T) {
	testlog.Start(t)
	missing := filepath.Join(t.TempDir(), "gone")
	srv := fakemapdl.New()
	c := startClient(t, srv, func(cfg *Config) { cfg.RunLocation = missing })
	if _, err := c.ListFiles(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing directory error, got %v", err)
	}
	if _, err := c.Input(context.Background(), filepath.Join(missing, "model.inp")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected Input to surface the listing error, got %v", err)
	}
}

func TestInputStringsRaisesOnError(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = scripted(map[string]string{"BAD": " *** ERROR ***\n something failed"})
	c := startClient(t, srv, nil)

	var runtimeErr *apdl.RuntimeError
	_, err := c.InputStrings(context.Background(), "/PREP7\nBAD")
	if !errors.As(err, &runtimeErr) || !strings.Contains(runtimeErr.Message, "something failed") {
		t.Fatalf("expected runtime error, got %v", err)
	}
}

func TestInputUploadsLocalFile(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Handler = scripted(map[string]string{"/PREP7": "PREP7 ROUTINE"})
	c := startClient(t, srv, nil)

	path := filepath.Join(t.TempDir(), "model.inp")
	if err := os.WriteFile(path, []byte("/PREP7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := c.Input(context.Background(), path)
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	if out != "PREP7 ROUTINE" {
		t.Fatalf("unexpected input output %q", out)
	}
	if _, ok := srv.File("model.inp"); !ok {
		t.Fatalf("expected uploaded file on server")
	}
}

func TestGetParametersAndVariables(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.SetGet("NODE,1,LOC,,X,", &mapdlpb.GetResponse{Type: mapdlpb.GetDouble, Dval: 2.5})
	srv.SetGet("ACTIVE,0,JOBNAM,,,", &mapdlpb.GetResponse{Type: mapdlpb.GetString, Sval: "file"})
	srv.SetParameter("ALPHA", "1.25")
	srv.SetVariable(2, "0.1", "0.2")
	c := startClient(t, srv, nil)
	ctx := context.Background()

	v, err := c.Get(ctx, "NODE", 1, "LOC", nil, "X", nil)
	if err != nil || v.IsText || v.Number != 2.5 {
		t.Fatalf("unexpected get: %+v %v", v, err)
	}
	v, err = c.Get(ctx, "ACTIVE", 0, "JOBNAM", nil, "", nil)
	if err != nil || !v.IsText || v.String() != "file" {
		t.Fatalf("unexpected string get: %+v %v", v, err)
	}
	if _, err := c.Get(ctx, "BOGUS", 0, "X", nil, "", nil); !errors.Is(err, apdl.ErrInvalidRoutine) {
		t.Fatalf("expected invalid get error, got %v", err)
	}

	alpha, ok, err := c.ScalarParam(ctx, "alpha")
	if err != nil || !ok || alpha != 1.25 {
		t.Fatalf("unexpected scalar: %v %v %v", alpha, ok, err)
	}
	if _, ok, err := c.ScalarParam(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing scalar, got ok=%v err=%v", ok, err)
	}
	vals, err := c.Variable(ctx, 2)
	if err != nil || len(vals) != 2 || vals[1] != "0.2" {
		t.Fatalf("unexpected variable: %v %v", vals, err)
	}
}

func TestServerVersionCachedAndGates(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.Version = "0.3.0"
	c := startClient(t, srv, nil)
	ctx := context.Background()

	v, err := c.ServerVersion(ctx)
	if err != nil || v != version.V0_3_0 {
		t.Fatalf("unexpected version %v %v", v, err)
	}
	if _, err := c.ServerVersion(ctx); err != nil {
		t.Fatalf("cached version: %v", err)
	}
	if n := len(srv.Ctrls()); n != 1 {
		t.Fatalf("expected one VERSION ctrl, got %d", n)
	}

	var verr *version.VersionError
	err = c.SetMatData(ctx, "M", mapdlpb.ValueFloat64, mat.NewDense(1, 1, []float64{1}))
	if !errors.As(err, &verr) {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestVectorAndMatrixData(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.SetVector("V", []float64{1, 2, 3})
	srv.SetDense("D", 2, 3, []float64{1, 2, 3, 4, 5, 6})
	srv.SetSparse("S", 3, 3, []int{0, 1, 2, 3}, []int{0, 1, 2}, []float64{4, 5, 6}, 0)
	c := startClient(t, srv, nil)
	ctx := context.Background()

	vec, err := c.VecData(ctx, "V")
	if err != nil || vec.Len() != 3 || vec.Real[2] != 3 {
		t.Fatalf("unexpected vector %+v %v", vec, err)
	}

	dense, err := c.MatData(ctx, "D")
	if err != nil {
		t.Fatalf("dense: %v", err)
	}
	if r, cc := dense.Dims(); r != 2 || cc != 3 {
		t.Fatalf("unexpected dims %dx%d", r, cc)
	}
	if dense.Dense.At(1, 2) != 6 || dense.Dense.At(0, 1) != 2 {
		t.Fatalf("dense values not row-major: %v", mat.Formatted(dense.Dense))
	}

	sp, err := c.MatData(ctx, "S")
	if err != nil {
		t.Fatalf("sparse: %v", err)
	}
	if sp.CSR == nil || sp.CSR.At(2, 2) != 6 || sp.CSR.At(0, 1) != 0 {
		t.Fatalf("unexpected sparse matrix")
	}

	if _, err := c.MatData(ctx, "V"); !errors.Is(err, ErrInvalidObjectType) {
		t.Fatalf("expected invalid object type, got %v", err)
	}
}

func TestSetVecAndMatData(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	c := startClient(t, srv, nil)
	ctx := context.Background()

	if err := c.SetVecData(ctx, "W", Values{Type: mapdlpb.ValueFloat64, Real: []float64{7, 8}}); err != nil {
		t.Fatalf("set vec: %v", err)
	}
	got, err := c.VecData(ctx, "W")
	if err != nil || got.Len() != 2 || got.Real[0] != 7 {
		t.Fatalf("unexpected round trip %+v %v", got, err)
	}

	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := c.SetMatData(ctx, "M", mapdlpb.ValueFloat64, m); err != nil {
		t.Fatalf("set mat: %v", err)
	}
	back, err := c.MatData(ctx, "M")
	if err != nil {
		t.Fatalf("mat data: %v", err)
	}
	if !mat.Equal(back.Dense, m) {
		t.Fatalf("dense round trip mismatch: %v", mat.Formatted(back.Dense))
	}
}

func TestVGetAndNodes(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	srv.SetVGet("NODE,1,LOC,,X,,0", []float64{0, 0.5, 1})
	srv.SetNodes([]float64{0, 0, 0, 1, 0, 0})
	c := startClient(t, srv, nil)
	ctx := context.Background()

	vals, err := c.VGet(ctx, "NODE", 1, "LOC", nil, "X", nil, 0)
	if err != nil || len(vals) != 3 || vals[1] != 0.5 {
		t.Fatalf("unexpected vget %v %v", vals, err)
	}
	nodes, err := c.Nodes(ctx)
	if err != nil || len(nodes) != 6 || nodes[3] != 1 {
		t.Fatalf("unexpected nodes %v %v", nodes, err)
	}
}

func TestUploadAndDownload(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	c := startClient(t, srv, nil)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("abc"), 1<<20)
	n, err := c.UploadRaw(ctx, payload, "big.bin")
	if err != nil || n != int64(len(payload)) {
		t.Fatalf("upload raw: %d %v", n, err)
	}
	raw, err := c.DownloadRaw(ctx, "big.bin")
	if err != nil || !bytes.Equal(raw, payload) {
		t.Fatalf("download raw mismatch: len=%d err=%v", len(raw), err)
	}

	dir := t.TempDir()
	path, err := c.Download(ctx, "big.bin", dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != int64(len(payload)) {
		t.Fatalf("unexpected downloaded file: %v", err)
	}

	if _, err := c.DownloadRaw(ctx, "missing.txt"); !errors.Is(err, apdl.ErrFileNotFound) {
		t.Fatalf("expected missing file error, got %v", err)
	}
	if _, err := c.Upload(ctx, filepath.Join(dir, "nope.inp")); !errors.Is(err, apdl.ErrFileNotFound) {
		t.Fatalf("expected missing local file error, got %v", err)
	}
}

func TestListFilesLocal(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, name := range []string{"file.err", "file.db"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	srv := fakemapdl.New()
	c := startClient(t, srv, func(cfg *Config) { cfg.RunLocation = dir })
	files, err := c.ListFiles(context.Background())
	if err != nil || len(files) != 2 {
		t.Fatalf("unexpected files %v %v", files, err)
	}
}

func TestExitMarksExitedAndRemovesLocks(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	lock := filepath.Join(dir, "file.lock")
	if err := os.WriteFile(lock, nil, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}
	srv := fakemapdl.New()
	c := startClient(t, srv, func(cfg *Config) { cfg.RunLocation = dir })

	if err := c.Exit(context.Background(), true); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if !srv.Exited() || !c.Exited() {
		t.Fatalf("expected server and client exited")
	}
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Fatalf("expected lock removed, got %v", err)
	}
	if _, err := c.Run(context.Background(), "/PREP7"); !errors.Is(err, ErrExited) {
		t.Fatalf("expected ErrExited after exit, got %v", err)
	}
}

func TestLostServerMarksExited(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	c := startClient(t, srv, nil)
	srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Run(ctx, "/PREP7"); !errors.Is(err, ErrExited) {
		t.Fatalf("expected ErrExited, got %v", err)
	}
	if !c.Exited() {
		t.Fatalf("expected session marked exited")
	}
}

func TestCircuitOpensAfterRepeatedTimeouts(t *testing.T) {
	testlog.Start(t)
	srv := fakemapdl.New()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	srv.Handler = func(cmd string) string {
		if cmd == "SLOW" {
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
		}
		return ""
	}
	c := startClient(t, srv, func(cfg *Config) {
		cfg.BreakerFailures = 2
		cfg.BreakerTimeout = time.Minute
	})

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := c.Run(ctx, "SLOW")
		cancel()
		if err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected deadline error, got %v", i, err)
		}
	}
	if _, err := c.Run(context.Background(), "/PREP7"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
