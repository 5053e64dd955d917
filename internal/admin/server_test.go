package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danmuck/mapdlctl/internal/auth"
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/pool"
	"github.com/danmuck/mapdlctl/internal/procs"
	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

type stubTable struct {
	mu     sync.Mutex
	procs  []procs.Process
	killed []int32
}

func (s *stubTable) Snapshot(context.Context) ([]procs.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]procs.Process(nil), s.procs...), nil
}

func (s *stubTable) Kill(_ context.Context, pid int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = append(s.killed, pid)
	return nil
}

func table() *stubTable {
	return &stubTable{procs: []procs.Process{
		{PID: 10, PPID: 1, Name: "ansys", Cmdline: []string{"ansys", "-port", "50052", "-grpc"}, Status: "running"},
		{PID: 11, PPID: 10, Name: "worker", Status: "sleep"},
		{PID: 12, PPID: 10, Name: "worker", Status: "sleep"},
		{PID: 20, PPID: 1, Name: "mapdl", Cmdline: []string{"mapdl", "-port", "50053", "-grpc"}, Status: "sleep"},
	}}
}

type stubSession struct {
	port   int
	exited atomic.Bool
}

func (s *stubSession) Run(_ context.Context, cmd string, _ ...client.RunOption) (string, error) {
	return "ok " + cmd, nil
}
func (s *stubSession) Input(context.Context, string) (string, error) { return "", nil }
func (s *stubSession) Exit(context.Context, bool) error             { s.exited.Store(true); return nil }
func (s *stubSession) Exited() bool                                 { return s.exited.Load() }
func (s *stubSession) Target() string                               { return "127.0.0.1:" + strconv.Itoa(s.port) }

func newPool(t *testing.T, n int) *pool.Pool {
	t.Helper()
	p, err := pool.New(context.Background(), n, func(_ context.Context, port int) (pool.Session, error) {
		return &stubSession{port: port}, nil
	}, pool.Options{StartPort: 51000})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return p
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	return doWith(t, s, method, path, body, "")
}

func doWith(t *testing.T, s *Server, method, path, body, authz string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	out := map[string]any{}
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, rr.Body.String())
		}
	}
	log.Info().Msgf("admin/http: %s %s status=%d", method, path, rr.Code)
	return rr.Code, out
}

func TestHealthReadyAndMetrics(t *testing.T) {
	testlog.Start(t)
	s := New("admin-a", ":0", table(), nil, nil)

	code, body := do(t, s, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "ok" || body["service"] != "admin-a" {
		t.Fatalf("health: %d %#v", code, body)
	}
	code, body = do(t, s, http.MethodGet, "/ready", "")
	if code != http.StatusOK || body["ready"] != true {
		t.Fatalf("ready: %d %#v", code, body)
	}
	if code, _ := do(t, s, http.MethodGet, "/metrics", ""); code != http.StatusOK {
		t.Fatalf("metrics status %d", code)
	}
}

func TestInstancesListing(t *testing.T) {
	testlog.Start(t)
	s := New("admin-a", ":0", table(), nil, nil)

	code, body := do(t, s, http.MethodGet, "/instances", "")
	if code != http.StatusOK {
		t.Fatalf("instances status %d", code)
	}
	rows, _ := body["instances"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected two solver processes, got %#v", body)
	}

	_, body = do(t, s, http.MethodGet, "/instances?instances=true", "")
	rows, _ = body["instances"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected one instance, got %#v", body)
	}
	first, _ := rows[0].(map[string]any)
	if first["port"] != "50052" || first["is_instance"] != true {
		t.Fatalf("unexpected row %#v", first)
	}
}

func TestStopInstances(t *testing.T) {
	testlog.Start(t)
	tbl := table()
	s := New("admin-a", ":0", tbl, nil, nil)

	code, body := do(t, s, http.MethodPost, "/instances/stop", `{"port": 50053}`)
	if code != http.StatusOK {
		t.Fatalf("stop status %d %#v", code, body)
	}
	if len(tbl.killed) != 1 || tbl.killed[0] != 20 {
		t.Fatalf("killed %v", tbl.killed)
	}

	code, _ = do(t, s, http.MethodPost, "/instances/stop", `{"pid": 999}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown pid, got %d", code)
	}
	code, _ = do(t, s, http.MethodPost, "/instances/stop", `{"pid": "abc"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", code)
	}

	code, body = do(t, s, http.MethodPost, "/instances/stop", "")
	if code != http.StatusOK {
		t.Fatalf("default stop status %d", code)
	}
	if !strings.Contains(body["message"].(string), "50052") {
		t.Fatalf("default stop should target 50052: %#v", body)
	}
}

func TestPoolRoutes(t *testing.T) {
	testlog.Start(t)
	none := New("admin-a", ":0", table(), nil, nil)
	if code, _ := do(t, none, http.MethodGet, "/pool", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 without pool, got %d", code)
	}

	p := newPool(t, 2)
	s := New("admin-a", ":0", table(), p, nil)
	code, body := do(t, s, http.MethodGet, "/pool", "")
	if code != http.StatusOK || body["ready"] != float64(2) {
		t.Fatalf("pool status %d %#v", code, body)
	}

	code, body = do(t, s, http.MethodPost, "/pool/run", `{"command": "/PREP7"}`)
	if code != http.StatusOK || body["output"] != "ok /PREP7" {
		t.Fatalf("pool run %d %#v", code, body)
	}
	if code, _ := do(t, s, http.MethodPost, "/pool/run", `{}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing command, got %d", code)
	}

	if err := p.Exit(context.Background()); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if code, _ := do(t, s, http.MethodGet, "/ready", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after pool exit, got %d", code)
	}
	if code, _ := do(t, s, http.MethodPost, "/pool/run", `{"command": "/PREP7"}`); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on closed pool, got %d", code)
	}
}

func TestPostRoutesRequireToken(t *testing.T) {
	testlog.Start(t)
	tbl := table()
	s := New("admin-a", ":0", tbl, nil, nil)
	s.Auth = auth.StaticToken("s3cret")

	if code, _ := do(t, s, http.MethodGet, "/instances", ""); code != http.StatusOK {
		t.Fatalf("reads stay open, got %d", code)
	}
	code, body := do(t, s, http.MethodPost, "/instances/stop", `{"port": 50053}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d %#v", code, body)
	}
	if code, _ := doWith(t, s, http.MethodPost, "/instances/stop", `{"port": 50053}`, "Bearer nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", code)
	}
	if len(tbl.killed) != 0 {
		t.Fatalf("rejected requests must not kill, got %v", tbl.killed)
	}
	if code, _ := doWith(t, s, http.MethodPost, "/instances/stop", `{"port": 50053}`, "Bearer s3cret"); code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}
	if len(tbl.killed) != 1 {
		t.Fatalf("expected one kill, got %v", tbl.killed)
	}
}
