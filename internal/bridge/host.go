package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/ingest"
	"github.com/ginjaninja78/entrypilot/internal/picker"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

// Reader loads the records of a spreadsheet.
type Reader func(path string) ([]types.Record, error)

// Host answers bridge commands read from a byte stream. It runs until the
// stream ends, handling one command at a time.
type Host struct {
	picker picker.Picker
	read   Reader
	log    *zap.Logger
}

// NewHost creates a host that selects files with p and reads them with the
// spreadsheet ingestion engine.
func NewHost(p picker.Picker, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{picker: p, read: ingest.ReadRecords, log: log.Named("host")}
}

// WithReader replaces the spreadsheet reader.
func (h *Host) WithReader(read Reader) *Host {
	h.read = read
	return h
}

// Serve reads commands from r and writes one response per command to w.
//
// RETURNS:
//   - nil when r ends cleanly or ctx is cancelled between commands.
//   - The read or write error that broke the stream otherwise.
func (h *Host) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	h.log.Info("native host started")
	defer h.log.Info("native host shutting down")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		payload, err := ReadFrame(r)
		if errors.Is(err, io.EOF) {
			h.log.Info("input closed")
			return nil
		}
		if err != nil {
			return err
		}

		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.log.Warn("malformed command", zap.Error(err))
			if err := h.send(w, HostResponse{Status: StatusError, Message: MsgMalformed}); err != nil {
				return err
			}
			continue
		}

		h.log.Debug("command received", zap.String("command", cmd.Command))
		if err := h.send(w, h.handle(ctx, cmd)); err != nil {
			return err
		}
	}
}

// handle runs one command. Panics become a generic error response so the
// host keeps serving.
func (h *Host) handle(ctx context.Context, cmd Command) (resp HostResponse) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("command panicked", zap.String("command", cmd.Command), zap.Any("panic", r))
			resp = HostResponse{Status: StatusError, Message: MsgUnexpected, ReceivedCommand: cmd.Command}
		}
	}()

	switch cmd.Command {
	case CommandSelectFile:
		return h.selectFile(ctx)
	case CommandProcessFile:
		return h.processFile(cmd)
	default:
		return HostResponse{
			Status:          StatusSuccess,
			Message:         fmt.Sprintf("Command '%s' received and processed by generic handler.", cmd.Command),
			ReceivedCommand: cmd.Command,
		}
	}
}

func (h *Host) selectFile(ctx context.Context) HostResponse {
	if h.picker == nil {
		return HostResponse{Status: StatusError, Message: MsgSelectFailed}
	}
	path, err := h.picker.Pick(ctx)
	switch {
	case errors.Is(err, picker.ErrCancelled):
		h.log.Info("file selection cancelled")
		return HostResponse{Status: StatusError, Message: MsgSelectCancelled}
	case err != nil:
		h.log.Error("file selection failed", zap.Error(err))
		return HostResponse{Status: StatusError, Message: MsgSelectFailed}
	}
	h.log.Info("file selected", zap.String("path", path))
	return h.load(path)
}

func (h *Host) processFile(cmd Command) HostResponse {
	var params ProcessParams
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &params); err != nil {
			h.log.Warn("invalid process parameters", zap.Error(err))
			return HostResponse{Status: StatusError, Message: MsgInvalidParams}
		}
	}
	if strings.TrimSpace(params.FilePath) == "" {
		return HostResponse{Status: StatusError, Message: MsgPathMissing}
	}
	return h.load(params.FilePath)
}

func (h *Host) load(path string) HostResponse {
	if _, err := os.Stat(path); err != nil {
		h.log.Warn("file not found", zap.String("path", path))
		return HostResponse{Status: StatusError, Message: fmt.Sprintf("File not found: %s", path)}
	}

	records, err := h.read(path)
	if err != nil {
		h.log.Error("failed to read spreadsheet", zap.String("path", path), zap.Error(err))
		return HostResponse{Status: StatusError, Message: err.Error(), FilePath: path}
	}

	h.log.Info("spreadsheet processed", zap.String("path", path), zap.Int("rows", len(records)))
	return HostResponse{
		Status:    StatusDataProcessed,
		Message:   fmt.Sprintf("Successfully processed %d rows.", len(records)),
		FilePath:  path,
		ExcelData: records,
	}
}

func (h *Host) send(w io.Writer, resp HostResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return WriteFrame(w, payload)
}
