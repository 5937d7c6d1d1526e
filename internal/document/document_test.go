package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/document/doctest"
)

func TestHasOptionMatchesValueOrText(t *testing.T) {
	st := document.ElementState{Options: []document.Option{
		{Value: "01", Text: "Deposit"},
		{Value: "02", Text: "Withdrawal"},
	}}

	assert.True(t, st.HasOption("02"))
	assert.True(t, st.HasOption("Deposit"))
	assert.False(t, st.HasOption("03"))
}

func TestModifiable(t *testing.T) {
	assert.True(t, document.ElementState{}.Modifiable())
	assert.False(t, document.ElementState{Disabled: true}.Modifiable())
	assert.False(t, document.ElementState{ReadOnly: true}.Modifiable())
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	page := doctest.NewPage()
	page.Field("#present", "x")
	boom := errors.New("detached")
	page.FailQuery("#broken", boom)

	el, ok, err := document.Exists(ctx, page, "#present")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, el)

	_, ok, err = document.Exists(ctx, page, "#absent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = document.Exists(ctx, page, "#broken")
	assert.ErrorIs(t, err, boom)
}

func TestDoctestHooksMayMutateThePage(t *testing.T) {
	ctx := context.Background()
	page := doctest.NewPage()
	anchor := page.Field("#anchor", "GL")
	btn := page.Button("#commit")
	btn.OnClick = func() { anchor.SetRaw("") }

	require.NoError(t, btn.Click(ctx))

	assert.Equal(t, 1, btn.Clicks())
	assert.Equal(t, "", anchor.Value())
}
