package fieldspec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

func originKeys(as []Assignment) []string {
	keys := make([]string, len(as))
	for i, a := range as {
		keys[i] = a.OriginKey
	}
	return keys
}

func find(as []Assignment, key string) (Assignment, bool) {
	for _, a := range as {
		if a.OriginKey == key {
			return a, true
		}
	}
	return Assignment{}, false
}

func TestBuildGLRecord(t *testing.T) {
	sel := config.Default().Selectors
	rec := types.Record{
		Application: "GL", Account: "100", TranCode: "55", Amount: "1,000.50",
		Branch: "01", Center: "200",
	}

	got := Build(rec, sel, "00")

	want := []string{
		KeyApplication, KeyAccount, KeyBranch, KeyCenter, KeyTranCodeCategory,
		KeyTranCode, KeyDescription, KeyAmount, KeyEffectiveDate, KeySerialNumber,
	}
	if diff := cmp.Diff(want, originKeys(got)); diff != "" {
		t.Fatalf("assignment order (-want +got):\n%s", diff)
	}

	amount, _ := find(got, KeyAmount)
	assert.Equal(t, "1000.50", amount.Value)

	branch, _ := find(got, KeyBranch)
	assert.Equal(t, ExistenceWait(), branch.Wait)
	assert.Equal(t, sel.Branch, branch.Selector)

	code, _ := find(got, KeyTranCode)
	assert.Equal(t, OptionsWait("55"), code.Wait)

	category, _ := find(got, KeyTranCodeCategory)
	assert.Equal(t, "00", category.Value)
	assert.Equal(t, OptionsWait("00"), category.Wait)
}

func TestBuildGLIsCaseInsensitive(t *testing.T) {
	sel := config.Default().Selectors
	for _, app := range []string{"gl", "Gl", "GL"} {
		_, ok := find(Build(types.Record{Application: app}, sel, "00"), KeyBranch)
		assert.True(t, ok, "application %q", app)
	}
}

func TestBuildGLComparesApplicationUntrimmed(t *testing.T) {
	sel := config.Default().Selectors
	got := Build(types.Record{Application: " GL"}, sel, "00")
	assert.Len(t, got, 8)
	_, ok := find(got, KeyBranch)
	assert.False(t, ok)
}

func TestBuildNonGLRecordOmitsBranchAndCenter(t *testing.T) {
	sel := config.Default().Selectors
	rec := types.Record{Application: "DD", Branch: "01", Center: "200"}

	got := Build(rec, sel, "00")

	assert.Len(t, got, 8)
	_, hasBranch := find(got, KeyBranch)
	_, hasCenter := find(got, KeyCenter)
	assert.False(t, hasBranch)
	assert.False(t, hasCenter)
	assert.Equal(t, "01", rec.Branch, "record is left untouched")
}

func TestBuildIsDeterministic(t *testing.T) {
	sel := config.Default().Selectors
	rec := types.Record{Application: "GL", Account: "9", Amount: "12,345", Description: "rent"}
	assert.Equal(t, Build(rec, sel, "00"), Build(rec, sel, "00"))
}

func TestOnlyDateAndSerialAreSkippable(t *testing.T) {
	for _, a := range Build(types.Record{Application: "GL"}, config.Default().Selectors, "00") {
		want := a.OriginKey == KeyEffectiveDate || a.OriginKey == KeySerialNumber
		assert.Equal(t, want, a.SkippableWhenBlank, a.OriginKey)
	}
}

func TestNormalizeAmountIsIdempotent(t *testing.T) {
	for _, in := range []string{"1,000.50", "1000.50", "", "12,345,678", "abc"} {
		once := NormalizeAmount(in)
		assert.Equal(t, once, NormalizeAmount(once), in)
		assert.NotContains(t, once, ",")
	}
}

func TestFormatDisplayAmount(t *testing.T) {
	cases := map[string]string{
		"1000.5":      "1,000.50",
		"1,000.50":    "1,000.50",
		"12":          "12.00",
		"999":         "999.00",
		"1234567.891": "1,234,567.89",
		"-4500":       "-4,500.00",
		"":            "",
		"n/a":         "n/a",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDisplayAmount(in), in)
	}
}

func TestDisplayCopyLeavesInputAlone(t *testing.T) {
	rec := types.Record{Amount: "2500"}
	cp := DisplayCopy(rec)
	assert.Equal(t, types.Amount("2,500.00"), cp.Amount)
	assert.Equal(t, types.Amount("2500"), rec.Amount)
}
