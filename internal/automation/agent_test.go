package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/document/doctest"
	"github.com/ginjaninja78/entrypilot/internal/filler"
	"github.com/ginjaninja78/entrypilot/internal/protocol"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

func testSettings() Settings {
	cfg := config.Default()
	cfg.Timeouts = config.Timeouts{
		DefaultElementWaitMs:  30,
		CommitControlWaitMs:   30,
		ResetWaitMs:           30,
		ResetAfterForceWaitMs: 30,
	}
	s := SettingsFrom(cfg)
	s.Interval = 2 * time.Millisecond
	return s
}

// hostForm builds a page with every control of the entry form. Clicking the
// commit control clears all inputs, like the real form does on success.
func hostForm(sel config.Selectors) *doctest.Page {
	page := doctest.NewPage()
	inputs := []string{
		sel.Application, sel.Account, sel.Description, sel.Amount,
		sel.EffectiveDate, sel.SerialNumber, sel.Branch, sel.Center,
	}
	for _, s := range inputs {
		page.Field(s, "")
	}
	page.Add(sel.TranCodeCategory, doctest.NewElement("select")).
		WithOptions(document.Option{Value: "00", Text: "General"})
	page.Add(sel.TranCode, doctest.NewElement("select")).
		WithOptions(document.Option{Value: "55", Text: "Fee"}, document.Option{Value: "60", Text: "Credit"})

	commit := page.Button(sel.CommitControl)
	commit.OnClick = func() {
		for _, s := range inputs {
			page.Get(s).SetRaw("")
		}
	}
	return page
}

func glRecord() types.Record {
	return types.Record{
		Application: "GL", Account: "100", TranCode: "55", Description: "fee",
		Amount: "1,000.50", Branch: "01", Center: "200",
	}
}

func TestHandleSuccess(t *testing.T) {
	s := testSettings()
	page := hostForm(s.Selectors)

	resp := NewAgent(page, s, nil).Handle(context.Background(), protocol.NewStart(glRecord()))

	require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Message)
	assert.Equal(t, MsgSuccess, resp.Message)
	assert.Equal(t, 8, resp.Details.FieldsChecked)
	assert.Equal(t, 8, resp.Details.FieldsMatched)
	assert.Equal(t, []filler.SkipEntry{
		{Field: "EffectiveDate", Reason: filler.ReasonBlank, Cause: filler.CauseBlank},
		{Field: "SerialNumber", Reason: filler.ReasonBlank, Cause: filler.CauseBlank},
	}, resp.Details.SkipLog)
	require.NotNil(t, resp.Details.AdvanceInfo)
	assert.True(t, resp.Details.AdvanceInfo.Reset)
	assert.Equal(t, []string{"1000.50"}, page.Get(s.Selectors.Amount).Sets())
	assert.Zero(t, page.Queries(s.Selectors.EffectiveDate))
}

func TestHandleCriticalFailureSkipsVerificationAndAdvance(t *testing.T) {
	s := testSettings()
	page := doctest.NewPage()
	commit := page.Button(s.Selectors.CommitControl)

	resp := NewAgent(page, s, nil).Handle(context.Background(), protocol.NewStart(glRecord()))

	assert.Equal(t, protocol.StatusVerificationError, resp.Status)
	assert.Equal(t, MsgCritical, resp.Message)
	assert.Nil(t, resp.Details.AdvanceInfo)
	assert.Zero(t, commit.Clicks())
}

func TestHandleMismatchDoesNotAdvance(t *testing.T) {
	s := testSettings()
	page := hostForm(s.Selectors)
	// The page reformats the account number after it was entered.
	page.Get(s.Selectors.Account).OnSet = func(v string) { page.Get(s.Selectors.Account).SetRaw("000" + v) }

	resp := NewAgent(page, s, nil).Handle(context.Background(), protocol.NewStart(glRecord()))

	assert.Equal(t, protocol.StatusVerificationFailed, resp.Status)
	assert.Equal(t, MsgVerifyFailed, resp.Message)
	require.Len(t, resp.Details.Mismatched, 1)
	assert.Equal(t, "000100", resp.Details.Mismatched[0].Actual)
	assert.Zero(t, page.Get(s.Selectors.CommitControl).Clicks())
}

func TestHandleNotResetReportsAdvanceMessage(t *testing.T) {
	s := testSettings()
	page := hostForm(s.Selectors)
	page.Get(s.Selectors.CommitControl).OnClick = nil

	resp := NewAgent(page, s, nil).Handle(context.Background(), protocol.NewStart(glRecord()))

	assert.Equal(t, protocol.StatusVerificationFailed, resp.Status)
	assert.Equal(t, advance.MsgNoErrorIndicator, resp.Message)
	require.NotNil(t, resp.Details.AdvanceInfo)
	assert.False(t, resp.Details.AdvanceInfo.ForcedPostAttempted)
}

func TestDispatchRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := testSettings()
	agent := NewAgent(hostForm(s.Selectors), s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Serve(ctx) }()
	<-agent.Started()

	resp, err := agent.Dispatch(context.Background(), protocol.NewStart(glRecord()))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, resp.Status)

	cancel()
	require.NoError(t, <-done)

	_, err = agent.Dispatch(context.Background(), protocol.NewStart(glRecord()))
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestDispatchBeforeServeIsDisconnected(t *testing.T) {
	agent := NewAgent(doctest.NewPage(), testSettings(), nil)
	_, err := agent.Dispatch(context.Background(), protocol.NewStart(types.Record{}))
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestStartedClosesWhenServing(t *testing.T) {
	defer goleak.VerifyNone(t)

	agent := NewAgent(doctest.NewPage(), testSettings(), nil)
	select {
	case <-agent.Started():
		t.Fatal("started before Serve")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Serve(ctx) }()

	select {
	case <-agent.Started():
	case <-time.After(time.Second):
		t.Fatal("agent never started")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestDispatchRejectsInvalidRequest(t *testing.T) {
	agent := NewAgent(doctest.NewPage(), testSettings(), nil)
	_, err := agent.Dispatch(context.Background(), protocol.Request{Action: "pause"})
	assert.ErrorIs(t, err, protocol.ErrInvalidMessage)
}

func TestMalformedPayloadGetsErrorResponse(t *testing.T) {
	agent := NewAgent(doctest.NewPage(), testSettings(), nil)

	resp, err := protocol.DecodeResponse(agent.serveOne(context.Background(), []byte(`{"action":"start"}`)))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, resp.Status)
}

func TestUpdateTimeoutsKeepsLatest(t *testing.T) {
	defer goleak.VerifyNone(t)

	agent := NewAgent(doctest.NewPage(), testSettings(), nil)
	agent.UpdateTimeouts(config.Timeouts{ResetWaitMs: 1})
	agent.UpdateTimeouts(config.Timeouts{ResetWaitMs: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Serve(ctx) }()

	// Any dispatch is served after the pending update was drained or not; the
	// buffered value must be the latest one either way.
	require.Eventually(t, func() bool {
		select {
		case <-agent.started:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(agent.updates) == 0 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, agent.settings.Timeouts.ResetWaitMs)
}
