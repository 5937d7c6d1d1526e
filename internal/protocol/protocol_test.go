package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/types"
	"github.com/ginjaninja78/entrypilot/internal/verification"
)

func TestStartRequestRoundTrip(t *testing.T) {
	req := NewStart(types.Record{Application: "GL", Account: "100", Amount: "1,000.50"})

	data, err := Encode(req)
	require.NoError(t, err)

	got, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestDecodeRequestAcceptsNumericAmount(t *testing.T) {
	got, err := DecodeRequest([]byte(`{"action":"start","data":{"Application":"DD","Amount":12.5}}`))
	require.NoError(t, err)
	assert.Equal(t, types.Amount("12.5"), got.Data.Amount)
}

func TestDecodeRequestRejectsMalformedMessages(t *testing.T) {
	for name, raw := range map[string]string{
		"unknown action": `{"action":"stop","data":{}}`,
		"missing data":   `{"action":"start"}`,
		"unknown key":    `{"action":"start","data":{},"extra":1}`,
		"unknown field":  `{"action":"start","data":{"Colour":"red"}}`,
		"not json":       `start`,
		"trailing data":  `{"action":"start","data":{}} {}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{
		Status:  StatusVerificationFailed,
		Message: "Field verification failed.",
		Details: Details{
			FieldsChecked: 2,
			FieldsMatched: 1,
			Mismatched:    []verification.Mismatch{{Field: "Account", Expected: "100", Actual: "10"}},
			NotFound:      []string{},
			AdvanceInfo:   &advance.Result{Clicked: true, StatusMessage: advance.MsgNoErrorIndicator},
		},
	}

	data, err := Encode(resp)
	require.NoError(t, err)

	got, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestDecodeResponseRejectsUnknownStatus(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"status":"partial","message":"","details":{}}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
