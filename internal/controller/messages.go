package controller

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/entrypilot/internal/advance"
	"github.com/ginjaninja78/entrypilot/internal/protocol"
)

// Operator-facing status lines.
const (
	MsgNothingToDo    = "No incomplete records found in the dataset."
	MsgBatchCompleted = "Batch processing completed."
	MsgAlreadyRunning = "Already processing records."
	MsgPaused         = "Processing paused."
	MsgResumed        = "Processing resumed."
	MsgStopped        = "Processing stopped."
	MsgCleared        = "All data has been cleared."
	MsgNoRecords      = "No records loaded."
	MsgWaitingOnPause = "Paused; waiting to resume."
)

func msgProcessing(idx, total int) string {
	return fmt.Sprintf("Processing record %d of %d...", idx+1, total)
}

func msgLoaded(total int) string {
	return fmt.Sprintf("Successfully processed %d records.", total)
}

func msgUnmarked(total int) string {
	return fmt.Sprintf("All %d records have been marked as incomplete.", total)
}

func msgToggled(idx int, completed bool) string {
	state := "Incomplete"
	if completed {
		state = "Complete"
	}
	return fmt.Sprintf("Record %d marked as %s.", idx+1, state)
}

func msgTransport(err error) string {
	return fmt.Sprintf("Error communicating with page: %v", err)
}

func msgSaveFailed(err error) string {
	return fmt.Sprintf("Could not persist queue state: %v", err)
}

// msgSuccess describes a completed record.
func msgSuccess(idx int, d protocol.Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Record %d processed successfully. Checked: %d, Matched: %d.", idx+1, d.FieldsChecked, d.FieldsMatched)
	if len(d.SkipLog) > 0 {
		fmt.Fprintf(&b, " (Skipped %d fields.)", len(d.SkipLog))
	}
	if d.AdvanceInfo != nil && d.AdvanceInfo.StatusMessage != "" && d.AdvanceInfo.StatusMessage != advance.MsgReset {
		fmt.Fprintf(&b, " (Add Another: %s)", d.AdvanceInfo.StatusMessage)
	}
	return b.String()
}

// msgFailure describes a record that halted the batch.
func msgFailure(idx int, resp protocol.Response) string {
	d := resp.Details
	switch resp.Status {
	case protocol.StatusVerificationFailed:
		var b strings.Builder
		fmt.Fprintf(&b, "Record %d filled, but verification FAILED. Checked: %d, Matched: %d.", idx+1, d.FieldsChecked, d.FieldsMatched)
		if len(d.Mismatched) > 0 {
			parts := make([]string, len(d.Mismatched))
			for i, m := range d.Mismatched {
				parts[i] = fmt.Sprintf("%s (expected '%s', got '%s')", m.Field, m.Expected, m.Actual)
			}
			b.WriteString(" Mismatches: " + strings.Join(parts, ", "))
		}
		if len(d.NotFound) > 0 {
			b.WriteString(" Fields not found during verification: " + strings.Join(d.NotFound, ", "))
		}
		if len(d.SkipLog) > 0 {
			fmt.Fprintf(&b, " (Skipped/problem fields: %d)", len(d.SkipLog))
		}
		if d.AdvanceInfo != nil && !d.AdvanceInfo.Reset && d.AdvanceInfo.StatusMessage != "" {
			fmt.Fprintf(&b, " (Add Another: %s)", d.AdvanceInfo.StatusMessage)
		}
		return b.String()
	case protocol.StatusVerificationError:
		return fmt.Sprintf("Verification error for record %d: %s", idx+1, resp.Message)
	case protocol.StatusError:
		return fmt.Sprintf("Error from automation agent: %s", resp.Message)
	default:
		return fmt.Sprintf("Automation response for record %d: %s", idx+1, resp.Status)
	}
}
