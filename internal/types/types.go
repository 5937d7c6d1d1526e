// =============================================================================
// entrypilot - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - ingest      (produces records from spreadsheets)
//   - bridge      (carries records over the native wire)
//   - fieldspec   (turns a record into field assignments)
//   - queue       (persists records with their completion flag)
//   - protocol    (carries one record into the automation context)
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// RECORD
// =============================================================================

// DiscriminantGL is the Application code whose records carry the GL-only
// Branch and Center fields.
const DiscriminantGL = "GL"

// Record is one unit of work: the values entered into the host form for a
// single transaction. JSON keys match the column names of the source sheet.
type Record struct {
	Application   string `json:"Application"`
	Account       string `json:"Account"`
	TranCode      string `json:"TranCode"`
	Description   string `json:"Description"`
	Amount        Amount `json:"Amount"`
	EffectiveDate string `json:"EffectiveDate"`
	SerialNumber  string `json:"SerialNumber"`

	// Branch and Center are only meaningful for GL records.
	Branch string `json:"Branch,omitempty"`
	Center string `json:"Center,omitempty"`

	// Completed is flipped by the controller once the record was entered,
	// verified and the host form confirmed its reset.
	Completed bool `json:"completed"`
}

// IsGL reports whether the record's Application equals the GL discriminant,
// case-insensitively. The value is compared as is; ingestion trims cells.
func (r Record) IsGL() bool {
	return strings.EqualFold(r.Application, DiscriminantGL)
}

// =============================================================================
// AMOUNT
// =============================================================================

// Amount holds a monetary value as text. The native host emits amounts as
// JSON numbers while display copies carry formatted strings ("1,000.50"), so
// Amount accepts a number, a string or null when decoding and always encodes
// as a string.
type Amount string

// String returns the raw text of the amount.
func (a Amount) String() string {
	return string(a)
}

// IsBlank reports whether the amount carries no value.
func (a Amount) IsBlank() bool {
	return strings.TrimSpace(string(a)) == ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount must be a number or string: %w", err)
		}
		*a = Amount(n.String())
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}
