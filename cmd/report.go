package cmd

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/entrypilot/internal/controller"
	"github.com/ginjaninja78/entrypilot/pkg/utils"
)

// buildIncident describes a halted batch for its incident report.
func buildIncident(ev controller.Event, now time.Time) utils.Incident {
	st := ev.Snapshot.State
	inc := utils.Incident{
		Timestamp:   now,
		RecordIndex: st.Cursor,
		Total:       st.Total,
		Status:      "error",
		Message:     ev.Snapshot.Message,
	}
	if rec, ok := st.Current(); ok {
		inc.Record = recordFields(rec)
	}

	if ev.Err != nil {
		inc.Fields = append(inc.Fields, utils.IncidentField{Field: "(batch)", Problem: ev.Err.Error()})
	}
	if ev.Response == nil {
		return inc
	}

	resp := ev.Response
	inc.Status = string(resp.Status)
	d := resp.Details
	for _, m := range d.Mismatched {
		inc.Fields = append(inc.Fields, utils.IncidentField{
			Field:    m.Field,
			Problem:  "value mismatch",
			Expected: m.Expected,
			Actual:   m.Actual,
		})
	}
	for _, f := range d.NotFound {
		inc.Fields = append(inc.Fields, utils.IncidentField{Field: f, Problem: "not found during verification"})
	}
	for _, s := range d.SkipLog {
		inc.Fields = append(inc.Fields, utils.IncidentField{Field: s.Field, Problem: "skipped: " + s.Reason})
	}
	if a := d.AdvanceInfo; a != nil {
		inc.Advance = fmt.Sprintf("clicked=%t reset=%t forced_post=%t: %s", a.Clicked, a.Reset, a.ForcedPostAttempted, a.StatusMessage)
		if a.Error != "" {
			inc.Advance += " (" + a.Error + ")"
		}
	}
	return inc
}

// writeIncident writes the incident report of a halted batch. Failures are
// logged; they never affect the batch.
func writeIncident(dir string, ev controller.Event) {
	path, err := utils.WriteIncidentReport(buildIncident(ev, time.Now()), dir)
	if err != nil {
		logger.Error("failed to write incident report", zap.Error(err))
		return
	}
	logger.Info("incident report written", zap.String("path", path))
	fmt.Printf("Incident report: %s\n", path)
}
