package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"github.com/danmuck/mapdlctl/internal/version"
	"github.com/google/uuid"
)

type runOptions struct {
	mute         *bool
	stream       io.Writer
	ignoreErrors bool
}

type RunOption func(*runOptions)

// Mute discards the solver response for this call.
func Mute() RunOption {
	return func(o *runOptions) { v := true; o.mute = &v }
}

// Unmute returns the response even when the session is muted.
func Unmute() RunOption {
	return func(o *runOptions) { v := false; o.mute = &v }
}

// Stream copies output to w as it arrives over SendCommandS.
func Stream(w io.Writer) RunOption {
	return func(o *runOptions) { o.stream = w }
}

// IgnoreErrors returns solver error text without classifying it.
func IgnoreErrors() RunOption {
	return func(o *runOptions) { o.ignoreErrors = true }
}

// Run sends one command line. Inside NonInteractive the command is queued
// and Run returns an empty response.
func (c *Client) Run(ctx context.Context, command string, opts ...RunOption) (string, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if c.exited.Load() {
		return "", fmt.Errorf("%w: cannot run %q", ErrExited, command)
	}
	if err := apdl.CheckLine(command); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.batching {
		c.batch = append(c.batch, command)
		c.mu.Unlock()
		c.logAPDL(command)
		return "", nil
	}
	c.mu.Unlock()

	command, silent, err := apdl.PrepareInteractive(command)
	if err != nil {
		return "", err
	}
	if silent {
		c.log.Warn().Str("command", command).Msg("command rewritten for interactive session")
	}
	c.logAPDL(command)

	mute := c.mute.Load()
	if o.mute != nil {
		mute = *o.mute
	}

	c.busy.Store(true)
	defer c.busy.Store(false)

	var text string
	if o.stream != nil {
		text, err = c.sendStreaming(ctx, command, o.stream)
	} else {
		text, err = c.send(ctx, command, mute)
	}
	if err != nil {
		return "", err
	}
	if mute && o.stream == nil {
		return "", nil
	}

	text = apdl.CleanResponse(text)
	c.mu.Lock()
	c.lastResponse = text
	c.mu.Unlock()
	if !o.ignoreErrors {
		if err := apdl.CheckResponse(text); err != nil {
			return text, err
		}
	}
	return text, nil
}

func (c *Client) send(ctx context.Context, command string, mute bool) (string, error) {
	req := &mapdlpb.CmdRequest{Command: command}
	if mute {
		req.Opt = "MUTE"
	}
	var resp *mapdlpb.CmdResponse
	err := c.call("SendCommand", func() error {
		var err error
		resp, err = c.stub.SendCommand(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (c *Client) sendStreaming(ctx context.Context, command string, w io.Writer) (string, error) {
	var stream mapdlpb.CmdResponseStream
	err := c.call("SendCommandS", func() error {
		var err error
		stream, err = c.stub.SendCommandS(ctx, &mapdlpb.CmdRequest{Command: command})
		return err
	})
	if err != nil {
		return "", err
	}
	return c.collectOutput("SendCommandS", stream, w)
}

func (c *Client) collectOutput(method string, stream mapdlpb.CmdResponseStream, w io.Writer) (string, error) {
	var b strings.Builder
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), c.translate(method, err)
		}
		for _, line := range msg.CmdOut {
			b.WriteString(line)
			if w != nil {
				if _, err := io.WriteString(w, line); err != nil {
					return b.String(), err
				}
			}
		}
		if msg.Response != "" {
			b.WriteString(msg.Response)
		}
	}
}

func (c *Client) logAPDL(command string) {
	if c.cfg.LogAPDL == nil {
		return
	}
	if _, err := fmt.Fprintln(c.cfg.LogAPDL, command); err != nil {
		c.log.Debug().Err(err).Msg("apdl log write")
	}
}

// InputStrings runs a block of commands as one uploaded input file.
func (c *Client) InputStrings(ctx context.Context, commands string) (string, error) {
	name := "tmp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + ".inp"
	if _, err := c.UploadRaw(ctx, []byte(commands+"\n"), name); err != nil {
		return "", err
	}
	return c.inputFile(ctx, name)
}

// Input runs a local input file, uploading it first. A path that is not
// present locally must already exist in the solver's working directory.
func (c *Client) Input(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	if _, err := os.Stat(path); err == nil {
		if _, err := c.Upload(ctx, path); err != nil {
			return "", err
		}
	} else {
		files, lerr := c.ListFiles(ctx)
		if lerr != nil {
			return "", lerr
		}
		found := false
		for _, f := range files {
			if f == name {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: %s", apdl.ErrFileNotFound, path)
		}
	}
	return c.inputFile(ctx, name)
}

const inputPreamble = "LINE=       0"

func (c *Client) inputFile(ctx context.Context, name string) (string, error) {
	if c.exited.Load() {
		return "", fmt.Errorf("%w: cannot input %s", ErrExited, name)
	}
	c.logAPDL("/INPUT," + name)
	c.busy.Store(true)
	defer c.busy.Store(false)

	var stream mapdlpb.CmdResponseStream
	err := c.call("InputFileS", func() error {
		var err error
		stream, err = c.stub.InputFileS(ctx, &mapdlpb.InputFileRequest{Filename: name})
		return err
	})
	if err != nil {
		return "", err
	}
	out, err := c.collectOutput("InputFileS", stream, nil)
	if err != nil {
		return "", err
	}
	if idx := strings.Index(out, inputPreamble); idx >= 0 {
		out = out[idx+len(inputPreamble):]
	}
	out = apdl.CleanResponse(out)
	c.mu.Lock()
	c.lastResponse = out
	c.mu.Unlock()
	if err := apdl.CheckResponse(out); err != nil {
		return out, err
	}
	return out, nil
}

// NonInteractive queues every Run issued inside fn and sends them as one
// input file when fn returns without error.
func (c *Client) NonInteractive(ctx context.Context, fn func() error) (string, error) {
	c.mu.Lock()
	if c.batching {
		c.mu.Unlock()
		return "", ErrNestedNonInteractive
	}
	c.batching = true
	c.batch = nil
	c.mu.Unlock()

	ferr := fn()

	c.mu.Lock()
	cmds := c.batch
	c.batch = nil
	c.batching = false
	c.mu.Unlock()

	if ferr != nil {
		return "", ferr
	}
	if len(cmds) == 0 {
		return "", nil
	}
	return c.InputStrings(ctx, strings.Join(cmds, "\n"))
}

// InNonInteractive reports whether commands are being queued.
func (c *Client) InNonInteractive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batching
}

// Ctrl issues a server control command. EXIT never reports the transport
// error caused by the server going away.
func (c *Client) Ctrl(ctx context.Context, cmd string) (string, error) {
	var resp *mapdlpb.CtrlResponse
	err := c.call("Ctrl", func() error {
		var err error
		resp, err = c.stub.Ctrl(ctx, &mapdlpb.CtrlRequest{Ctrl: cmd})
		return err
	})
	if strings.EqualFold(cmd, "EXIT") {
		c.exited.Store(true)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ServerVersion returns the cached server version, asking once. An empty
// answer means the oldest gRPC server.
func (c *Client) ServerVersion(ctx context.Context) (version.Version, error) {
	c.mu.Lock()
	if c.version != nil {
		v := *c.version
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	raw, err := c.Ctrl(ctx, "VERSION")
	if err != nil {
		return version.Version{}, err
	}
	v := version.Version{}
	if strings.TrimSpace(raw) != "" {
		if v, err = version.Parse(raw); err != nil {
			return version.Version{}, err
		}
	}
	c.mu.Lock()
	c.version = &v
	c.mu.Unlock()
	return v, nil
}

// RequireVersion fails with *version.VersionError when the server is older
// than want.
func (c *Client) RequireVersion(ctx context.Context, feature string, want version.Version) error {
	have, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}
	return version.Require(feature, have, want)
}

// Sys runs an operating system command on the solver host and returns its
// standard output.
func (c *Client) Sys(ctx context.Context, cmd string) (string, error) {
	tmp := "__tmp_sys_out_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10] + "__"
	if _, err := c.Run(ctx, apdl.Sys(cmd+" > "+tmp), Mute()); err != nil {
		return "", err
	}
	if c.cfg.Local && c.cfg.RunLocation != "" {
		raw, err := os.ReadFile(filepath.Join(c.cfg.RunLocation, tmp))
		if err == nil {
			return string(raw), nil
		}
	}
	raw, err := c.DownloadRaw(ctx, tmp)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Inquire runs /INQUIRE and returns the value after the last "=".
func (c *Client) Inquire(ctx context.Context, fn string, args ...any) (string, error) {
	out, err := c.Run(ctx, apdl.Inquire("", fn, args...), Unmute())
	if err != nil {
		return "", err
	}
	return inquiryValue(out), nil
}

func inquiryValue(out string) string {
	if i := strings.LastIndex(out, "="); i >= 0 {
		out = out[i+1:]
	}
	return strings.TrimSpace(out)
}

// Directory is the solver's working directory.
func (c *Client) Directory(ctx context.Context) (string, error) {
	return c.Inquire(ctx, "DIRECTORY")
}

// IsAlive reports whether the solver answers a trivial inquiry. The inquiry
// goes straight to the server and never joins a NonInteractive batch.
func (c *Client) IsAlive(ctx context.Context) bool {
	if c.exited.Load() {
		return false
	}
	if c.busy.Load() {
		return true
	}
	out, err := c.send(ctx, apdl.Inquire("", "JOBNAME"), false)
	return err == nil && inquiryValue(apdl.CleanResponse(out)) != ""
}
