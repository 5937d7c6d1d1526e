// =============================================================================
// entrypilot - Native Bridge Framing
// =============================================================================
//
// Every message on the bridge, in either direction, is one frame:
//
//   +----------------------+-------------------------------+
//   | length (uint32, LE)  | length bytes of UTF-8 JSON    |
//   +----------------------+-------------------------------+
//
// The transport is a byte stream (the host's stdin/stdout), so a reader
// must always consume exactly one complete frame per message.
//
// =============================================================================

package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds the payload of a single frame.
const MaxFrameSize = 64 << 20

// emptyFrame is what a zero-length frame decodes to.
var emptyFrame = []byte("{}")

// ErrFrameTooLarge is returned for frames whose declared length exceeds
// MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// ReadFrame reads one frame and returns its payload.
//
// RETURNS:
//   - io.EOF when the stream ended cleanly before a new frame started.
//   - io.ErrUnexpectedEOF (wrapped) when a frame was cut short.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n == 0 {
		return append([]byte(nil), emptyFrame...), nil
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("stream closed while reading message body: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload as one frame with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
