package automation

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/entrypilot/internal/protocol"
)

// Dispatch sends one request to the agent and waits for its single
// response. The request and response cross the boundary as encoded JSON,
// so neither side holds a reference into the other's memory.
//
// RETURNS:
//   - the decoded response
//   - ErrDisconnected when the agent is not serving or stops mid-request
//   - ctx.Err() when the caller gives up
//   - protocol.ErrInvalidMessage when either side produced a malformed message
func (a *Agent) Dispatch(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if err := req.Validate(); err != nil {
		return protocol.Response{}, err
	}
	payload, err := protocol.Encode(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("encode request: %w", err)
	}

	select {
	case <-a.started:
	default:
		return protocol.Response{}, ErrDisconnected
	}

	env := envelope{payload: payload, reply: make(chan []byte, 1)}
	select {
	case a.requests <- env:
	case <-a.done:
		return protocol.Response{}, ErrDisconnected
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}

	select {
	case raw := <-env.reply:
		return protocol.DecodeResponse(raw)
	case <-a.done:
		select {
		case raw := <-env.reply:
			return protocol.DecodeResponse(raw)
		default:
		}
		return protocol.Response{}, ErrDisconnected
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}
