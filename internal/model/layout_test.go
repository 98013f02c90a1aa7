package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutValidate(t *testing.T) {
	assert.ErrorIs(t, Layout{}.Validate(), ErrLayoutEmpty)
	assert.ErrorIs(t, Layout{{}}.Validate(), ErrLayoutEmpty)
	assert.ErrorIs(t, Layout{{0, 0}, {0}}.Validate(), ErrLayoutNotRectangular)
	assert.ErrorIs(t, Layout{{0, 2}}.Validate(), ErrLayoutBadCell)
	assert.NoError(t, Layout{{0, 1}, {1, 0}}.Validate())
}

func TestLayoutCounts(t *testing.T) {
	l := Layout{{0, 1, 0}, {1, 1, 0}}
	assert.Equal(t, 2, l.Rows())
	assert.Equal(t, 3, l.Cols())
	assert.Equal(t, 6, l.Total())
	assert.Equal(t, 3, l.Occupied())
	assert.Equal(t, 3, l.Free())
}

// The 2x2 walk-through: A takes [0,0],[0,1]; B overlaps on [0,1] and is
// rejected without touching the grid; C takes the bottom row.
func TestLayoutClaimScenario(t *testing.T) {
	l := Layout{{0, 0}, {0, 0}}
	require.Equal(t, 4, l.Free())

	require.NoError(t, l.Claim([]SeatCoord{{0, 0}, {0, 1}}))
	assert.Equal(t, 2, l.Free())

	before := l.Clone()
	err := l.Claim([]SeatCoord{{0, 1}, {1, 0}})
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.Equal(t, before, l, "a rejected claim must not change any cell")

	require.NoError(t, l.Claim([]SeatCoord{{1, 0}, {1, 1}}))
	assert.Equal(t, 0, l.Free())
	assert.Equal(t, l.Total(), l.Occupied())
}

func TestLayoutClaimOutOfRangeAndDuplicates(t *testing.T) {
	l := Layout{{0, 0}}
	assert.ErrorIs(t, l.Claim([]SeatCoord{{0, 2}}), ErrSeatOutOfRange)
	assert.ErrorIs(t, l.Claim([]SeatCoord{{-1, 0}}), ErrSeatOutOfRange)
	assert.ErrorIs(t, l.Claim([]SeatCoord{{0, 0}, {0, 0}}), ErrSeatTaken)
	assert.Equal(t, Layout{{0, 0}}, l)
}

func TestFirstDuplicate(t *testing.T) {
	_, ok := FirstDuplicate([]SeatCoord{{0, 1}, {1, 0}})
	assert.False(t, ok)
	dup, ok := FirstDuplicate([]SeatCoord{{0, 1}, {1, 0}, {0, 1}})
	assert.True(t, ok)
	assert.Equal(t, SeatCoord{0, 1}, dup)
}

func TestSeatCoordJSON(t *testing.T) {
	var coords []SeatCoord
	require.NoError(t, json.Unmarshal([]byte(`[[0,1],[2,3]]`), &coords))
	assert.Equal(t, []SeatCoord{{0, 1}, {2, 3}}, coords)
	assert.Equal(t, "$[2][3]", coords[1].JSONPath())
}

func TestLayoutScanValue(t *testing.T) {
	v, err := Layout{{0, 1}}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[[0,1]]", v)

	var l Layout
	require.NoError(t, l.Scan([]byte("[[1,0],[0,0]]")))
	assert.Equal(t, Layout{{1, 0}, {0, 0}}, l)

	var seats SeatList
	require.NoError(t, seats.Scan("[[0,0],[1,1]]"))
	assert.Equal(t, SeatList{{0, 0}, {1, 1}}, seats)

	var emails EmailList
	require.NoError(t, emails.Scan([]byte(`["a@x.io"]`)))
	assert.Equal(t, EmailList{"a@x.io"}, emails)

	assert.Error(t, l.Scan(42))
}
