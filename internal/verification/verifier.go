// =============================================================================
// entrypilot - Verifier
// =============================================================================
//
// After the filler ran, the verifier re-reads every control that was not
// skipped and compares its text with the value that was written. Comparison
// is a strict string equality: the host page is expected to keep exactly
// what was entered.
//
// VERIFICATION RULES:
//   - fields in the skip log are never checked
//   - a control that disappeared is reported as not found, not mismatched
//   - a read failure is a mismatch whose actual value is the error text
//   - AllMatch holds iff nothing is mismatched and nothing is missing
//
// =============================================================================

package verification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/document"
	"github.com/ginjaninja78/entrypilot/internal/fieldspec"
	"github.com/ginjaninja78/entrypilot/internal/filler"
)

// =============================================================================
// REPORT
// =============================================================================

// Mismatch is one field whose control does not hold the written value.
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Report is the outcome of verifying one record.
type Report struct {
	AllMatch      bool       `json:"allMatch"`
	Mismatched    []Mismatch `json:"mismatched"`
	NotFound      []string   `json:"notFound"`
	FieldsChecked int        `json:"fieldsChecked"`
	FieldsMatched int        `json:"fieldsMatched"`
}

// =============================================================================
// VERIFIER
// =============================================================================

// Verifier compares the document against the assignments.
type Verifier struct {
	doc document.Document
	log *zap.Logger
}

// New creates a verifier over doc.
func New(doc document.Document, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{doc: doc, log: log.Named("verifier")}
}

// Verify checks every assignment whose origin key is absent from skipLog.
func (v *Verifier) Verify(ctx context.Context, assignments []fieldspec.Assignment, skipLog []filler.SkipEntry) Report {
	skipped := make(map[string]struct{}, len(skipLog))
	for _, s := range skipLog {
		skipped[s.Field] = struct{}{}
	}

	rep := Report{Mismatched: []Mismatch{}, NotFound: []string{}}
	for _, a := range assignments {
		if _, ok := skipped[a.OriginKey]; ok {
			continue
		}
		rep.FieldsChecked++

		actual, found, err := v.read(ctx, a.Selector)
		switch {
		case err != nil:
			v.log.Warn("field read failed", zap.String("field", a.OriginKey), zap.Error(err))
			rep.Mismatched = append(rep.Mismatched, Mismatch{Field: a.OriginKey, Expected: a.Value, Actual: "error: " + err.Error()})
		case !found:
			v.log.Warn("field disappeared before verification", zap.String("field", a.OriginKey), zap.String("selector", a.Selector))
			rep.NotFound = append(rep.NotFound, a.OriginKey)
		case actual != a.Value:
			rep.Mismatched = append(rep.Mismatched, Mismatch{Field: a.OriginKey, Expected: a.Value, Actual: actual})
		default:
			rep.FieldsMatched++
		}
	}

	rep.AllMatch = len(rep.Mismatched) == 0 && len(rep.NotFound) == 0
	return rep
}

// read returns the control's current value. A panic in the document layer
// is returned as an error.
func (v *Verifier) read(ctx context.Context, selector string) (value string, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, found, err = "", true, fmt.Errorf("panic: %v", r)
		}
	}()

	el, err := v.doc.Query(ctx, selector)
	if errors.Is(err, document.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", true, err
	}
	st, err := el.State(ctx)
	if err != nil {
		return "", true, err
	}
	return st.Value, true, nil
}

// =============================================================================
// CRITICAL FAILURE
// =============================================================================

// IsCritical reports whether a record must be abandoned before verification:
// nothing was filled and at least one field was missing or timed out.
func IsCritical(res filler.Result) bool {
	if res.Filled != 0 {
		return false
	}
	for _, s := range res.SkipLog {
		if s.Cause == filler.CauseTimeout || s.Cause == filler.CauseNotFound {
			return true
		}
	}
	return false
}
