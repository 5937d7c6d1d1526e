package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ginjaninja78/entrypilot/internal/types"
)

func records(n int, completed ...int) []types.Record {
	out := make([]types.Record, n)
	for i := range out {
		out[i] = types.Record{Application: "DD", Account: string(rune('A' + i))}
	}
	for _, i := range completed {
		out[i].Completed = true
	}
	return out
}

func TestNewAndEmptyKeepInvariants(t *testing.T) {
	s := New(records(3))
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, 3, s.Total)

	s = New(nil)
	assert.Equal(t, -1, s.Cursor)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, Empty(), s)
}

func TestNormalizeClampsCursor(t *testing.T) {
	s := State{Records: records(2), Cursor: 7}
	s.Normalize()
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, 2, s.Total)

	s = State{Records: records(2), Cursor: -1}
	s.Normalize()
	assert.Equal(t, 0, s.Cursor)

	s = State{Cursor: 3, Total: 9}
	s.Normalize()
	assert.Equal(t, -1, s.Cursor)
	assert.Equal(t, 0, s.Total)
}

func TestNavigation(t *testing.T) {
	s := New(records(3))

	assert.False(t, s.Prev())
	assert.True(t, s.Next())
	assert.True(t, s.Next())
	assert.False(t, s.Next())
	assert.Equal(t, 2, s.Cursor)

	assert.True(t, s.First())
	assert.Equal(t, 0, s.Cursor)
	assert.False(t, s.First())
	assert.True(t, s.Last())
	assert.Equal(t, 2, s.Cursor)

	e := Empty()
	assert.False(t, e.Next())
	assert.False(t, e.Prev())
	assert.False(t, e.First())
	assert.False(t, e.Last())
	assert.False(t, e.ToggleComplete())
	assert.Equal(t, -1, e.Cursor)
}

func TestToggleUnmarkAndClear(t *testing.T) {
	s := New(records(3, 0, 2))
	s.Cursor = 1

	assert.True(t, s.ToggleComplete())
	assert.Equal(t, 3, s.Completed())

	assert.True(t, s.UnmarkAll())
	assert.Zero(t, s.Completed())
	assert.Equal(t, 0, s.Cursor)

	assert.True(t, s.Clear())
	assert.Equal(t, Empty(), s)
	assert.False(t, s.Clear())
}

func TestNextIncompleteWrapsOnce(t *testing.T) {
	s := New(records(4, 0, 2, 3))
	s.Cursor = 2

	idx, ok := s.NextIncomplete()
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	s.Cursor = 1
	idx, ok = s.NextIncomplete()
	assert.True(t, ok)
	assert.Equal(t, 1, idx, "the cursor record itself is considered first")

	s.Records[1].Completed = true
	_, ok = s.NextIncomplete()
	assert.False(t, ok)

	_, ok = Empty().NextIncomplete()
	assert.False(t, ok)
}

func TestCompleteCurrentAdvancesByOne(t *testing.T) {
	s := New(records(3))
	before := s.Completed()

	assert.True(t, s.CompleteCurrent())
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, before+1, s.Completed())
	assert.True(t, s.Records[0].Completed)

	s.Cursor = 2
	assert.True(t, s.CompleteCurrent())
	assert.Equal(t, 2, s.Cursor, "cursor stays within the queue")
}

func TestCloneIsDeep(t *testing.T) {
	s := New(records(2))
	c := s.Clone()
	c.Records[0].Completed = true
	assert.False(t, s.Records[0].Completed)
}
