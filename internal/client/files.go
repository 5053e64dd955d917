package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/mapdlctl/internal/apdl"
	"github.com/danmuck/mapdlctl/internal/mapdlpb"
	"google.golang.org/grpc/metadata"
)

// Upload sends a local file into the solver's working directory and
// returns the name it was stored under.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apdl.ErrFileNotFound, path)
	}
	defer f.Close()

	name := filepath.Base(path)
	n, err := c.upload(ctx, name, f)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("client: upload %s: server stored no data", name)
	}
	return name, nil
}

// UploadRaw stores raw as saveAs in the solver's working directory.
func (c *Client) UploadRaw(ctx context.Context, raw []byte, saveAs string) (int64, error) {
	n, err := c.upload(ctx, filepath.Base(saveAs), bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	if n != int64(len(raw)) {
		return n, fmt.Errorf("%w: %s sent %d stored %d", ErrUploadLength, saveAs, len(raw), n)
	}
	return n, nil
}

func (c *Client) upload(ctx context.Context, name string, r io.Reader) (int64, error) {
	var stream mapdlpb.UploadFileStream
	err := c.call("UploadFile", func() error {
		var err error
		stream, err = c.stub.UploadFile(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	buf := make([]byte, mapdlpb.DefaultFileChunkSize)
	sent := false
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 || !sent {
			payload := append([]byte(nil), buf[:n]...)
			req := &mapdlpb.UploadFileRequest{
				FileName: name,
				Chunk:    &mapdlpb.Chunk{Payload: payload, Size: int64(n)},
			}
			if err := stream.Send(req); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return 0, c.translate("UploadFile", err)
			}
			sent = true
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return 0, rerr
		}
	}
	resp, err := stream.CloseAndRecv()
	if err != nil {
		return 0, c.translate("UploadFile", err)
	}
	return resp.Length, nil
}

// DownloadRaw returns the content of a file in the solver's working
// directory.
func (c *Client) DownloadRaw(ctx context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.download(ctx, name, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Download copies a solver file into dir and returns the local path.
func (c *Client) Download(ctx context.Context, name, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, filepath.Base(name))
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	_, derr := c.download(ctx, name, f)
	cerr := f.Close()
	if derr != nil {
		_ = os.Remove(target)
		return "", derr
	}
	return target, cerr
}

func (c *Client) download(ctx context.Context, name string, w io.Writer) (int64, error) {
	chunkSize := int64(mapdlpb.DefaultFileChunkSize)
	ctx = metadata.AppendToOutgoingContext(ctx,
		"time_step_stream", "200",
		"chunk_size", strconv.FormatInt(chunkSize, 10),
	)
	var stream mapdlpb.DownloadFileStream
	err := c.call("DownloadFile", func() error {
		var err error
		stream, err = c.stub.DownloadFile(ctx, &mapdlpb.DownloadFileRequest{Name: name, ChunkSize: chunkSize})
		return err
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, c.translate("DownloadFile", err)
		}
		if msg.Chunk == nil {
			continue
		}
		n, err := w.Write(msg.Chunk.Payload)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %q is empty or does not exist", apdl.ErrFileNotFound, name)
	}
	return total, nil
}

// ListFiles lists the solver's working directory, locally when the
// directory is reachable and through /SYS otherwise.
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	if c.cfg.Local {
		dir := c.cfg.RunLocation
		if dir == "" {
			var err error
			if dir, err = c.Directory(ctx); err != nil {
				return nil, err
			}
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return names, nil
	}
	if c.exited.Load() {
		return nil, ErrRemoteListing
	}

	platform, err := c.Get(ctx, "ACTIVE", 0, "PLATFORM", nil, "", nil)
	if err != nil {
		return nil, err
	}
	cmd := "dir /b /a"
	if strings.HasPrefix(strings.TrimSpace(platform.Text), "L") {
		cmd = "ls"
	}
	out, err := c.Sys(ctx, cmd)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	if len(files) == 0 {
		c.log.Warn().Msg("no files listed")
	}
	return files, nil
}
