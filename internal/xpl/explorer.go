// Package xpl drives the solver's *XPL explorer over the records of binary
// result, full and mode files.
package xpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/apdlmath"
	"github.com/danmuck/mapdlctl/internal/client"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/observability"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("xpl: record not found")
	ErrUnsupportedRecord = errors.New("xpl: only the NSL record can be extracted")
	ErrNotResultFile     = errors.New("xpl: records can only be extracted from result files")
	ErrNotOpen           = errors.New("xpl: no file open")
)

const jsonFile = "_mylocal_.json"

// Session is what the explorer needs from a solver session. *client.Client
// satisfies it.
type Session interface {
	apdlmath.Session
	DownloadRaw(ctx context.Context, name string) ([]byte, error)
}

// Node is one record of the JSON record tree.
type Node struct {
	Name     string `json:"name"`
	Size     int64  `json:"size,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Explorer navigates one open file at a time.
type Explorer struct {
	s    Session
	math *apdlmath.Math
	log  zerolog.Logger

	mu       sync.Mutex
	filename string
	open     bool
}

func New(s Session) *Explorer {
	return &Explorer{s: s, math: apdlmath.New(s), log: observability.Component("xpl")}
}

func (x *Explorer) run(ctx context.Context, args ...any) (string, error) {
	return x.s.Run(ctx, apdl.Command("*XPL", args...), client.Unmute())
}

// runChecked treats any response mentioning "ignored" as a failure.
func (x *Explorer) runChecked(ctx context.Context, args ...any) (string, error) {
	out, err := x.run(ctx, args...)
	if err != nil {
		return out, err
	}
	if strings.Contains(out, "ignored") {
		return out, &apdl.ResponseError{Kind: apdl.ErrCommandIgnored, Text: out}
	}
	return out, nil
}

// Open selects filename for exploration.
func (x *Explorer) Open(ctx context.Context, filename, option string) (string, error) {
	out, err := x.run(ctx, "OPEN", filename, "", option)
	if err != nil {
		return out, err
	}
	x.mu.Lock()
	x.filename, x.open = filename, true
	x.mu.Unlock()
	return out, nil
}

func (x *Explorer) Close(ctx context.Context) (string, error) {
	out, err := x.runChecked(ctx, "CLOSE")
	if err != nil {
		return out, err
	}
	x.mu.Lock()
	x.open = false
	x.mu.Unlock()
	return out, nil
}

// IsOpen returns the open file name, if any.
func (x *Explorer) IsOpen() (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.filename, x.open
}

// List lists records nlev levels below the current location.
func (x *Explorer) List(ctx context.Context, nlev int) (string, error) {
	if nlev <= 0 {
		nlev = 1
	}
	return x.runChecked(ctx, "LIST", nlev)
}

func (x *Explorer) Help(ctx context.Context) (string, error) {
	return x.run(ctx, "HELP")
}

// Step descends into where, which may span levels ("BRANCH::SUB").
func (x *Explorer) Step(ctx context.Context, where string) (string, error) {
	out, err := x.run(ctx, "STEP", where)
	if err != nil {
		return out, err
	}
	if strings.Contains(out, "Not Found") {
		return out, fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(out))
	}
	return out, nil
}

// Info describes recname, or every record for "*".
func (x *Explorer) Info(ctx context.Context, recname, option string) (string, error) {
	return x.run(ctx, "INFO", recname, option)
}

func (x *Explorer) Print(ctx context.Context, recname string) (string, error) {
	return x.run(ctx, "PRINT", recname)
}

// JSON returns the record tree of the open file.
func (x *Explorer) JSON(ctx context.Context) (*Node, error) {
	if _, err := x.run(ctx, "JSON", jsonFile); err != nil {
		return nil, err
	}
	raw, err := x.s.DownloadRaw(ctx, jsonFile)
	if err != nil {
		return nil, err
	}
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("xpl: decode record tree: %w", err)
	}
	return &root, nil
}

func (x *Explorer) Where(ctx context.Context) (string, error) {
	return x.run(ctx, "WHERE")
}

// Up climbs nlev levels; a non-positive nlev goes to the top.
func (x *Explorer) Up(ctx context.Context, nlev int) (string, error) {
	if nlev <= 0 {
		return x.run(ctx, "UP", "TOP")
	}
	return x.run(ctx, "UP", nlev)
}

// Goto moves to an absolute path.
func (x *Explorer) Goto(ctx context.Context, path string) (string, error) {
	return x.run(ctx, "GOTO", path)
}

// Copy writes the open file to newfile.
func (x *Explorer) Copy(ctx context.Context, newfile, option string) (string, error) {
	return x.run(ctx, "COPY", newfile, option)
}

// Save rewrites the open file without the marked records.
func (x *Explorer) Save(ctx context.Context) (string, error) {
	out, err := x.runChecked(ctx, "SAVE")
	return strings.TrimSpace(out), err
}

// Extract imports the NSL displacement record of a result file as a dense
// matrix. sets <= 0 reads every set, otherwise sets 1..sets.
func (x *Explorer) Extract(ctx context.Context, record string, sets int) (*apdlmath.Mat, error) {
	if !strings.EqualFold(record, "NSL") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRecord, record)
	}
	filename, open := x.IsOpen()
	if !open {
		return nil, ErrNotOpen
	}
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if !strings.EqualFold(ext, "rst") {
		return nil, fmt.Errorf("%w: %s", ErrNotResultFile, filename)
	}
	last := -1
	if sets > 0 {
		last = sets
	}
	name := x.math.NewName()
	x.log.Info().Str("record", record).Str("file", filename).Msg("extracting record")
	cmd := apdl.Command("*DMAT", name, mapdlpb.ValueFloat64.Letter(), "IMPORT", ext, filename, 1, last, strings.ToUpper(record))
	if _, err := x.s.Run(ctx, cmd, client.Unmute()); err != nil {
		return nil, err
	}
	return x.math.Mat(ctx, 0, 0, mapdlpb.ValueFloat64, apdlmath.InitNone, name)
}

// Read loads recordname into a new APDLMath object and returns its handle.
func (x *Explorer) Read(ctx context.Context, recordname string) (apdlmath.Object, error) {
	name := x.math.NewName()
	if _, err := x.runChecked(ctx, "READ", recordname, name); err != nil {
		return nil, err
	}
	return x.math.Wrap(ctx, name)
}

// Write overwrites recordname with the values of vector vecname. The record
// size must not change.
func (x *Explorer) Write(ctx context.Context, recordname, vecname string) (string, error) {
	return x.runChecked(ctx, "WRITE", recordname, vecname)
}

// Describe summarizes the explorer state.
func (x *Explorer) Describe(ctx context.Context) (string, error) {
	filename, open := x.IsOpen()
	if !open {
		return "MAPDL File Explorer\n\tNo open file", nil
	}
	where, err := x.Where(ctx)
	if err != nil {
		return "", err
	}
	lines := strings.Split(where, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	return "MAPDL File Explorer\n\tOpen file:" + filename + strings.Join(lines, "\n"), nil
}
