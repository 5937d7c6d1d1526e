package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountAcceptsNumbersStringsAndNull(t *testing.T) {
	var rec struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		C Amount `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a": 1000.5, "b": "1,000.50", "c": null}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, Amount("1000.5"), rec.A)
	assert.Equal(t, Amount("1,000.50"), rec.B)
	assert.True(t, rec.C.IsBlank())
}

func TestAmountRejectsObjects(t *testing.T) {
	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &a))
}

func TestRecordIsGL(t *testing.T) {
	assert.True(t, Record{Application: "gl"}.IsGL())
	assert.True(t, Record{Application: "Gl"}.IsGL())
	assert.False(t, Record{Application: " GL "}.IsGL())
	assert.False(t, Record{Application: "DD"}.IsGL())
	assert.False(t, Record{}.IsGL())
}

func TestRecordJSONKeepsSourceKeys(t *testing.T) {
	rec := Record{Application: "DD", Account: "42", Amount: "10.00"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "DD", raw["Application"])
	assert.Equal(t, "10.00", raw["Amount"])
	assert.Equal(t, false, raw["completed"])
	assert.NotContains(t, raw, "Branch")
}
