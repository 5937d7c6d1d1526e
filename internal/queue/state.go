// =============================================================================
// entrypilot - Queue State
// =============================================================================
//
// State is the persisted unit of the batch: the ordered records, the cursor
// and the total. It is only ever mutated by the controller, and every
// mutation is followed by one Save of the whole value.
//
// INVARIANTS:
//   - Total == len(Records)
//   - Cursor is in [-1, Total-1]
//   - Cursor == -1 iff Total == 0
//
// =============================================================================

package queue

import (
	"github.com/ginjaninja78/entrypilot/internal/types"
)

// State is the batch queue.
type State struct {
	Records []types.Record `json:"records"`
	Cursor  int            `json:"cursor"`
	Total   int            `json:"total"`
}

// New returns a queue over records with the cursor on the first record.
func New(records []types.Record) State {
	s := State{Records: append([]types.Record(nil), records...)}
	s.Cursor = 0
	s.Normalize()
	return s
}

// Empty returns the empty queue.
func Empty() State {
	return State{Records: []types.Record{}, Cursor: -1}
}

// Normalize restores the invariants after decoding or editing.
func (s *State) Normalize() {
	if s.Records == nil {
		s.Records = []types.Record{}
	}
	s.Total = len(s.Records)
	switch {
	case s.Total == 0:
		s.Cursor = -1
	case s.Cursor < 0:
		s.Cursor = 0
	case s.Cursor > s.Total-1:
		s.Cursor = s.Total - 1
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	s.Records = append([]types.Record{}, s.Records...)
	return s
}

// Current returns the record under the cursor.
func (s State) Current() (types.Record, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Records) {
		return types.Record{}, false
	}
	return s.Records[s.Cursor], true
}

// Completed counts completed records.
func (s State) Completed() int {
	n := 0
	for _, r := range s.Records {
		if r.Completed {
			n++
		}
	}
	return n
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Each navigation method reports whether the state changed.

// Prev moves the cursor one record back.
func (s *State) Prev() bool {
	if s.Cursor <= 0 {
		return false
	}
	s.Cursor--
	return true
}

// Next moves the cursor one record forward.
func (s *State) Next() bool {
	if s.Cursor < 0 || s.Cursor >= s.Total-1 {
		return false
	}
	s.Cursor++
	return true
}

// First moves the cursor to the first record.
func (s *State) First() bool {
	if s.Total == 0 || s.Cursor == 0 {
		return false
	}
	s.Cursor = 0
	return true
}

// Last moves the cursor to the last record.
func (s *State) Last() bool {
	if s.Total == 0 || s.Cursor == s.Total-1 {
		return false
	}
	s.Cursor = s.Total - 1
	return true
}

// ToggleComplete flips the completion flag of the record under the cursor.
func (s *State) ToggleComplete() bool {
	if s.Cursor < 0 || s.Cursor >= s.Total {
		return false
	}
	s.Records[s.Cursor].Completed = !s.Records[s.Cursor].Completed
	return true
}

// UnmarkAll clears every completion flag and rewinds the cursor.
func (s *State) UnmarkAll() bool {
	if s.Total == 0 {
		return false
	}
	for i := range s.Records {
		s.Records[i].Completed = false
	}
	s.Cursor = 0
	return true
}

// Clear empties the queue.
func (s *State) Clear() bool {
	changed := s.Total > 0
	*s = Empty()
	return changed
}

// =============================================================================
// PROGRESSION
// =============================================================================

// NextIncomplete scans forward from the cursor for a record that is not
// completed, wrapping once past the end back to index 0 and stopping before
// the cursor is reached again.
func (s State) NextIncomplete() (int, bool) {
	if s.Total == 0 || s.Cursor < 0 {
		return -1, false
	}
	for i := 0; i < s.Total; i++ {
		idx := (s.Cursor + i) % s.Total
		if !s.Records[idx].Completed {
			return idx, true
		}
	}
	return -1, false
}

// CompleteCurrent marks the record under the cursor completed and moves the
// cursor to the following record. On the last record the cursor stays put.
func (s *State) CompleteCurrent() bool {
	if s.Cursor < 0 || s.Cursor >= s.Total {
		return false
	}
	s.Records[s.Cursor].Completed = true
	if s.Cursor < s.Total-1 {
		s.Cursor++
	}
	return true
}
