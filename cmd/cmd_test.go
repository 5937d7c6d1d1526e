package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/bridge"
	"github.com/ginjaninja78/entrypilot/internal/controller"
	"github.com/ginjaninja78/entrypilot/internal/filler"
	"github.com/ginjaninja78/entrypilot/internal/protocol"
	"github.com/ginjaninja78/entrypilot/internal/queue"
	"github.com/ginjaninja78/entrypilot/internal/types"
	"github.com/ginjaninja78/entrypilot/internal/verification"
)

func testRecords() []types.Record {
	return []types.Record{
		{Application: "DDA", Account: "100", TranCode: "10", Description: "Deposit", Amount: "1000.5", EffectiveDate: "01/02/2024"},
		{Application: "GL", Account: "200", TranCode: "20", Description: "Journal", Amount: "7", EffectiveDate: "01/03/2024", Branch: "01", Center: "900"},
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, protocol.Request) (protocol.Response, error) {
	return protocol.Response{}, errors.New("not connected")
}

type memSaver struct{ saves int }

func (m *memSaver) Save(context.Context, queue.State) error {
	m.saves++
	return nil
}

func TestConsoleCommands(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saver := &memSaver{}
	ctrl := controller.New(queue.New(testRecords()), nopDispatcher{}, saver, controller.Options{PacingDelay: time.Millisecond, PausePoll: time.Millisecond}, nil)
	go ctrl.Run(ctx)
	<-ctrl.Started()

	var out bytes.Buffer
	quit := false
	con := &console{
		ctrl: ctrl,
		in:   strings.NewReader("status\nnext\n\nbogus\ntoggle\ncurrent\npause\nload\nquit\nstatus\n"),
		out:  &out,
		quit: func() { quit = true },
		load: func(context.Context, string) error { return nil },
	}
	require.NoError(t, con.Run(ctx))
	cancel()
	<-ctrl.Done()

	assert.True(t, quit)
	text := out.String()
	assert.Contains(t, text, "[idle] record 1 of 2, 0 completed")
	assert.Contains(t, text, "[idle] record 2 of 2, 0 completed")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "Record 2 marked as Complete.")
	assert.Contains(t, text, "Record 2 (complete): Application=GL Account=200 Branch=01 Center=900")
	assert.Contains(t, text, "No batch is running.")
	assert.Contains(t, text, "usage: load <file>")
	assert.Equal(t, 2, saver.saves)
}

func TestConsoleLoadError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := controller.New(queue.Empty(), nopDispatcher{}, &memSaver{}, controller.Options{}, nil)
	go ctrl.Run(ctx)
	<-ctrl.Started()

	var out bytes.Buffer
	var loaded string
	con := &console{
		ctrl: ctrl,
		in:   strings.NewReader("load ./my batch.xlsx\n"),
		out:  &out,
		quit: func() {},
		load: func(_ context.Context, path string) error {
			loaded = path
			return &bridge.HostError{Message: "The following required columns are missing: Amount"}
		},
	}
	require.NoError(t, con.Run(ctx))
	cancel()
	<-ctrl.Done()

	assert.Equal(t, "./my batch.xlsx", loaded)
	assert.Contains(t, out.String(), "Error: The following required columns are missing: Amount")
	assert.Contains(t, out.String(), "no records")
}

func TestClearsQueue(t *testing.T) {
	assert.True(t, clearsQueue(&bridge.HostError{Message: "Row 3: For 'GL' applications, Branch and Center values are required."}))
	assert.False(t, clearsQueue(&bridge.HostError{Message: bridge.MsgSelectCancelled}))
	assert.False(t, clearsQueue(bridge.ErrDisconnected))
}

func TestRecordFieldsGL(t *testing.T) {
	recs := testRecords()
	assert.Len(t, recordFields(recs[0]), 7)

	gl := recordFields(recs[1])
	require.Len(t, gl, 9)
	assert.Equal(t, [2]string{"Branch", "01"}, gl[2])
	assert.Equal(t, [2]string{"Center", "900"}, gl[3])
}

func TestBuildIncidentFromResponse(t *testing.T) {
	st := queue.New(testRecords())
	st.Cursor = 1
	resp := protocol.Response{
		Status:  protocol.StatusVerificationFailed,
		Message: "Field verification failed.",
		Details: protocol.Details{
			Mismatched: []verification.Mismatch{{Field: "Amount", Expected: "7.00", Actual: "7"}},
			NotFound:   []string{"Center"},
			SkipLog:    []filler.SkipEntry{{Field: "SerialNumber", Reason: "blank or missing value"}},
			AdvanceInfo: &advance.Result{
				StatusMessage: advance.MsgCommitNotFound,
			},
		},
	}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	inc := buildIncident(controller.Event{
		Kind:     controller.EventHalted,
		Snapshot: controller.Snapshot{State: st, Message: "halted"},
		Response: &resp,
	}, now)

	assert.Equal(t, now, inc.Timestamp)
	assert.Equal(t, 1, inc.RecordIndex)
	assert.Equal(t, 2, inc.Total)
	assert.Equal(t, "verification_failed", inc.Status)
	assert.Equal(t, "halted", inc.Message)
	assert.Equal(t, "GL", inc.Record[0][1])

	require.Len(t, inc.Fields, 3)
	assert.Equal(t, "Amount", inc.Fields[0].Field)
	assert.Equal(t, "7.00", inc.Fields[0].Expected)
	assert.Equal(t, "not found during verification", inc.Fields[1].Problem)
	assert.Equal(t, "skipped: blank or missing value", inc.Fields[2].Problem)
	assert.Contains(t, inc.Advance, advance.MsgCommitNotFound)
}

func TestBuildIncidentFromTransportError(t *testing.T) {
	inc := buildIncident(controller.Event{
		Kind:     controller.EventHalted,
		Snapshot: controller.Snapshot{State: queue.New(testRecords()), Message: "Error communicating with page"},
		Err:      errors.New("agent gone"),
	}, time.Now())

	assert.Equal(t, "error", inc.Status)
	require.Len(t, inc.Fields, 1)
	assert.Equal(t, "agent gone", inc.Fields[0].Problem)
	assert.Empty(t, inc.Advance)
}

func TestRenderQueue(t *testing.T) {
	st := queue.New(testRecords())
	st.Records[0].Completed = true

	var out bytes.Buffer
	renderQueue(&out, st)

	text := out.String()
	assert.Contains(t, text, "1,000.50")
	assert.Contains(t, text, "Journal")
	assert.Contains(t, text, "1/2")
}
