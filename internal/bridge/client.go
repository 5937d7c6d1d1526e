package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/types"
)

// ErrDisconnected is returned when the host is unreachable or closed the
// stream before answering.
var ErrDisconnected = errors.New("native host disconnected")

// HostError is an error response from the host. Its message is meant for
// the operator as is.
type HostError struct {
	Message string
}

func (e *HostError) Error() string {
	return e.Message
}

// =============================================================================
// CONNECTION
// =============================================================================

// Conn sends commands over a framed stream. Calls are serialized.
type Conn struct {
	mu  sync.Mutex
	r   io.Reader
	w   io.Writer
	log *zap.Logger
}

// NewConn creates a connection reading responses from r and writing
// commands to w.
func NewConn(r io.Reader, w io.Writer, log *zap.Logger) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{r: r, w: w, log: log.Named("bridge")}
}

// Call sends cmd and waits for its response. When ctx ends first the
// connection is left mid-message and must not be reused.
func (c *Conn) Call(ctx context.Context, cmd Command) (HostResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	log := c.log.With(zap.String("request_id", id), zap.String("command", cmd.Command))

	payload, err := json.Marshal(cmd)
	if err != nil {
		return HostResponse{}, fmt.Errorf("failed to encode command: %w", err)
	}
	if err := WriteFrame(c.w, payload); err != nil {
		log.Warn("send failed", zap.Error(err))
		return HostResponse{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	log.Debug("command sent")

	type result struct {
		payload []byte
		err     error
	}
	done := make(chan result, 1)
	go func() {
		p, err := ReadFrame(c.r)
		done <- result{p, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return HostResponse{}, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		log.Warn("receive failed", zap.Error(res.err))
		return HostResponse{}, fmt.Errorf("%w: %v", ErrDisconnected, res.err)
	}

	var resp HostResponse
	if err := json.Unmarshal(res.payload, &resp); err != nil {
		return HostResponse{}, fmt.Errorf("failed to decode host response: %w", err)
	}
	log.Debug("response received", zap.String("status", resp.Status))
	return resp, nil
}

// LoadRecords asks the host for a batch of records. An empty path lets the
// host's picker choose the file.
//
// RETURNS:
//   - The records with their completion flags cleared.
//   - *HostError when the host rejected the request, ErrDisconnected when
//     it could not be reached.
func (c *Conn) LoadRecords(ctx context.Context, path string) ([]types.Record, error) {
	cmd := Command{Command: CommandSelectFile}
	if path != "" {
		cmd = NewProcessCommand(path)
	}

	resp, err := c.Call(ctx, cmd)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case StatusDataProcessed:
		records := make([]types.Record, len(resp.ExcelData))
		for i, rec := range resp.ExcelData {
			rec.Completed = false
			records[i] = rec
		}
		return records, nil
	case StatusError:
		return nil, &HostError{Message: resp.Message}
	default:
		return nil, &HostError{Message: fmt.Sprintf("unexpected host response %q: %s", resp.Status, resp.Message)}
	}
}

// =============================================================================
// HOST PROCESS
// =============================================================================

// Process is a host running as a child process, connected over its
// stdin/stdout.
type Process struct {
	*Conn
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// Spawn starts the host command. The child's stderr is passed through.
func Spawn(ctx context.Context, argv []string, log *zap.Logger) (*Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("host command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	return &Process{
		Conn:  NewConn(stdout, stdin, log),
		cmd:   cmd,
		stdin: stdin,
	}, nil
}

// Close ends the host by closing its input and waits for it to exit.
func (p *Process) Close() error {
	_ = p.stdin.Close()
	return p.cmd.Wait()
}
