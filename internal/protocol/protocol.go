// =============================================================================
// entrypilot - Automation Protocol
// =============================================================================
//
// The controller and the automation agent never share memory. They exchange
// exactly one Request and one Response per record, encoded as JSON. Both
// sides decode strictly: unknown keys, unknown actions and unknown statuses
// fail with ErrInvalidMessage instead of being read as zero values.
//
// REQUEST:
//   {"action": "start", "data": {<record>}}
//
// RESPONSE:
//   {"status": "success" | "verification_failed" | "verification_error" | "error",
//    "message": "...",
//    "details": {"fieldsChecked", "fieldsMatched", "mismatched", "notFound",
//                "skipLog", "advanceInfo"}}
//
// =============================================================================

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/filler"
	"github.com/ginjaninja78/entrypilot/internal/types"
	"github.com/ginjaninja78/entrypilot/internal/verification"
)

// ErrInvalidMessage wraps every decoding and validation failure.
var ErrInvalidMessage = errors.New("invalid automation message")

// ActionStart asks the agent to enter one record.
const ActionStart = "start"

// Status is the terminal outcome of one record.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusVerificationFailed Status = "verification_failed"
	StatusVerificationError  Status = "verification_error"
	StatusError              Status = "error"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusVerificationFailed, StatusVerificationError, StatusError:
		return true
	}
	return false
}

// =============================================================================
// REQUEST
// =============================================================================

// Request carries one record to the agent.
type Request struct {
	Action string        `json:"action"`
	Data   *types.Record `json:"data"`
}

// NewStart builds a start request for record.
func NewStart(record types.Record) Request {
	return Request{Action: ActionStart, Data: &record}
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if r.Action != ActionStart {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMessage, r.Action)
	}
	if r.Data == nil {
		return fmt.Errorf("%w: start request without data", ErrInvalidMessage)
	}
	return nil
}

// DecodeRequest parses and validates a request.
func DecodeRequest(data []byte) (Request, error) {
	var r Request
	if err := decodeStrict(data, &r); err != nil {
		return Request{}, err
	}
	return r, r.Validate()
}

// =============================================================================
// RESPONSE
// =============================================================================

// Details carries the structured diagnostics of one record.
type Details struct {
	FieldsChecked int                     `json:"fieldsChecked"`
	FieldsMatched int                     `json:"fieldsMatched"`
	Mismatched    []verification.Mismatch `json:"mismatched"`
	NotFound      []string                `json:"notFound"`
	SkipLog       []filler.SkipEntry      `json:"skipLog"`
	AdvanceInfo   *advance.Result         `json:"advanceInfo"`
}

// Response is the single answer to a Request.
type Response struct {
	Status  Status  `json:"status"`
	Message string  `json:"message"`
	Details Details `json:"details"`
}

// Validate checks the response shape.
func (r Response) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMessage, r.Status)
	}
	return nil
}

// DecodeResponse parses and validates a response.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := decodeStrict(data, &r); err != nil {
		return Response{}, err
	}
	return r, r.Validate()
}

// Encode marshals a request or response.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidMessage)
	}
	return nil
}
