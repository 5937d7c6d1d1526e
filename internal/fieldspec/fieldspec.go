// =============================================================================
// entrypilot - Field Spec Builder
// =============================================================================
//
// Build turns one record into the ordered list of field assignments the
// filler works through. It is a pure function: no I/O, no error path. A
// record with missing values simply yields assignments with empty values,
// and the filler decides what to do with them.
//
// ASSIGNMENT ORDER:
//   Application, Account, [Branch, Center], TranCodeCategory, TranCode,
//   Description, Amount, EffectiveDate, SerialNumber
//
//   Branch and Center are only present for GL records. Their controls are
//   rendered by the host page after the Application value is entered, so
//   they wait for existence. TranCodeCategory and TranCode populate their
//   option lists asynchronously and wait for the expected option.
//
// =============================================================================

package fieldspec

import (
	"strings"

	"github.com/ginjaninja78/entrypilot/internal/config"
	"github.com/ginjaninja78/entrypilot/internal/types"
)

// =============================================================================
// WAIT STRATEGY
// =============================================================================

// WaitKind selects how the filler resolves an assignment's control.
type WaitKind int

const (
	// Plain looks the control up once.
	Plain WaitKind = iota
	// DependentOptions polls until the control offers the expected option.
	DependentOptions
	// ExistenceOnly polls until the control exists.
	ExistenceOnly
)

func (k WaitKind) String() string {
	switch k {
	case Plain:
		return "plain"
	case DependentOptions:
		return "dependent-options"
	case ExistenceOnly:
		return "existence-only"
	default:
		return "unknown"
	}
}

// WaitStrategy is a tagged variant. Expected is only meaningful for
// DependentOptions; empty means "any option".
type WaitStrategy struct {
	Kind     WaitKind
	Expected string
}

// PlainWait returns the Plain strategy.
func PlainWait() WaitStrategy { return WaitStrategy{Kind: Plain} }

// OptionsWait returns the DependentOptions strategy for expected.
func OptionsWait(expected string) WaitStrategy {
	return WaitStrategy{Kind: DependentOptions, Expected: expected}
}

// ExistenceWait returns the ExistenceOnly strategy.
func ExistenceWait() WaitStrategy { return WaitStrategy{Kind: ExistenceOnly} }

// =============================================================================
// ASSIGNMENT
// =============================================================================

// Origin keys name the record column an assignment came from.
const (
	KeyApplication      = "Application"
	KeyAccount          = "Account"
	KeyBranch           = "Branch"
	KeyCenter           = "Center"
	KeyTranCodeCategory = "TranCodeCategory"
	KeyTranCode         = "TranCode"
	KeyDescription      = "Description"
	KeyAmount           = "Amount"
	KeyEffectiveDate    = "EffectiveDate"
	KeySerialNumber     = "SerialNumber"
)

// Assignment writes Value into the control at Selector.
type Assignment struct {
	Selector           string
	Value              string
	OriginKey          string
	Wait               WaitStrategy
	SkippableWhenBlank bool
}

// Build returns the ordered assignments for record.
//
// PARAMETERS:
//   - record: the record to enter
//   - sel: selectors of the host form
//   - category: value entered into the transaction code category control
//
// RETURNS:
//   - a fresh slice; identical inputs always produce identical output
func Build(record types.Record, sel config.Selectors, category string) []Assignment {
	out := make([]Assignment, 0, 10)
	out = append(out,
		Assignment{Selector: sel.Application, Value: record.Application, OriginKey: KeyApplication, Wait: PlainWait()},
		Assignment{Selector: sel.Account, Value: record.Account, OriginKey: KeyAccount, Wait: PlainWait()},
	)

	if record.IsGL() {
		out = append(out,
			Assignment{Selector: sel.Branch, Value: record.Branch, OriginKey: KeyBranch, Wait: ExistenceWait()},
			Assignment{Selector: sel.Center, Value: record.Center, OriginKey: KeyCenter, Wait: ExistenceWait()},
		)
	}

	out = append(out,
		Assignment{Selector: sel.TranCodeCategory, Value: category, OriginKey: KeyTranCodeCategory, Wait: OptionsWait(category)},
		Assignment{Selector: sel.TranCode, Value: record.TranCode, OriginKey: KeyTranCode, Wait: OptionsWait(record.TranCode)},
		Assignment{Selector: sel.Description, Value: record.Description, OriginKey: KeyDescription, Wait: PlainWait()},
		Assignment{Selector: sel.Amount, Value: NormalizeAmount(record.Amount.String()), OriginKey: KeyAmount, Wait: PlainWait()},
		Assignment{Selector: sel.EffectiveDate, Value: record.EffectiveDate, OriginKey: KeyEffectiveDate, Wait: PlainWait(), SkippableWhenBlank: true},
		Assignment{Selector: sel.SerialNumber, Value: record.SerialNumber, OriginKey: KeySerialNumber, Wait: PlainWait(), SkippableWhenBlank: true},
	)
	return out
}

// NormalizeAmount strips grouping separators. It is idempotent.
func NormalizeAmount(amount string) string {
	return strings.ReplaceAll(amount, ",", "")
}
