package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/entrypilot/internal/document/doctest"
	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/filler"
)

func assignments() []fieldspec.Assignment {
	return []fieldspec.Assignment{
		{Selector: "#app", Value: "DD", OriginKey: "Application"},
		{Selector: "#acct", Value: "100", OriginKey: "Account"},
		{Selector: "#amt", Value: "1000.50", OriginKey: "Amount"},
		{Selector: "#date", Value: "", OriginKey: "EffectiveDate"},
	}
}

func TestAllMatch(t *testing.T) {
	page := doctest.NewPage()
	page.Field("#app", "DD")
	page.Field("#acct", "100")
	page.Field("#amt", "1000.50")

	rep := New(page, nil).Verify(context.Background(), assignments(), []filler.SkipEntry{
		{Field: "EffectiveDate", Reason: filler.ReasonBlank, Cause: filler.CauseBlank},
	})

	assert.True(t, rep.AllMatch)
	assert.Equal(t, 3, rep.FieldsChecked)
	assert.Equal(t, 3, rep.FieldsMatched)
	assert.Empty(t, rep.Mismatched)
	assert.Empty(t, rep.NotFound)
}

func TestMismatchAndNotFoundAreDisjointFromSkips(t *testing.T) {
	page := doctest.NewPage()
	page.Field("#app", "DD")
	page.Field("#acct", "999")
	page.Field("#date", "garbage")

	skips := []filler.SkipEntry{{Field: "EffectiveDate", Reason: filler.ReasonBlank}}
	rep := New(page, nil).Verify(context.Background(), assignments(), skips)

	assert.False(t, rep.AllMatch)
	assert.Equal(t, []Mismatch{{Field: "Account", Expected: "100", Actual: "999"}}, rep.Mismatched)
	assert.Equal(t, []string{"Amount"}, rep.NotFound)
	assert.Equal(t, 3, rep.FieldsChecked)
	assert.Equal(t, 1, rep.FieldsMatched)
	for _, m := range rep.Mismatched {
		assert.NotEqual(t, "EffectiveDate", m.Field)
	}
	assert.NotContains(t, rep.NotFound, "EffectiveDate")
}

func TestEverythingSkippedIsVacuouslyMatching(t *testing.T) {
	var skips []filler.SkipEntry
	for _, a := range assignments() {
		skips = append(skips, filler.SkipEntry{Field: a.OriginKey, Reason: filler.ReasonNotFound})
	}

	rep := New(doctest.NewPage(), nil).Verify(context.Background(), assignments(), skips)

	assert.True(t, rep.AllMatch)
	assert.Zero(t, rep.FieldsChecked)
}

func TestReadFailuresAreMismatches(t *testing.T) {
	page := doctest.NewPage()
	page.Field("#app", "DD").StateErr = errors.New("node detached")
	page.Field("#acct", "100").PanicOnState = true
	page.Field("#amt", "1000.50")
	page.Field("#date", "")

	rep := New(page, nil).Verify(context.Background(), assignments(), nil)

	assert.False(t, rep.AllMatch)
	if assert.Len(t, rep.Mismatched, 2) {
		assert.Equal(t, "Application", rep.Mismatched[0].Field)
		assert.Contains(t, rep.Mismatched[0].Actual, "node detached")
		assert.Equal(t, "Account", rep.Mismatched[1].Field)
		assert.Contains(t, rep.Mismatched[1].Actual, "panic")
	}
	assert.Empty(t, rep.NotFound)
}

func TestIsCritical(t *testing.T) {
	cases := []struct {
		name string
		res  filler.Result
		want bool
	}{
		{"nothing filled, not found", filler.Result{SkipLog: []filler.SkipEntry{{Cause: filler.CauseNotFound}}}, true},
		{"nothing filled, timeout", filler.Result{SkipLog: []filler.SkipEntry{{Cause: filler.CauseBlank}, {Cause: filler.CauseTimeout}}}, true},
		{"nothing filled, only blanks", filler.Result{SkipLog: []filler.SkipEntry{{Cause: filler.CauseBlank}}}, false},
		{"something filled", filler.Result{Filled: 1, SkipLog: []filler.SkipEntry{{Cause: filler.CauseNotFound}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsCritical(tc.res))
		})
	}
}
