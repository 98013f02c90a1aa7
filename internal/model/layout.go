package model

import (
	"database/sql/driver" // driver.Value for JSON column writes
	"encoding/json"       // layouts are persisted as JSON arrays
	"errors"              // sentinel errors for grid operations
	"fmt"                 // error formatting
)

// Cell values stored in a seating grid.  A session grid only ever holds
// these two values; anything else means the layout was written outside the
// seat lock and is rejected by Validate.
const (
	SeatFree     = 0 // seat can be claimed
	SeatOccupied = 1 // seat belongs to a valid reservation
)

var (
	// ErrLayoutEmpty is returned when a layout has no rows or no columns.
	ErrLayoutEmpty = errors.New("seat layout is empty")
	// ErrLayoutNotRectangular is returned when rows differ in length.
	ErrLayoutNotRectangular = errors.New("seat layout rows must have equal length")
	// ErrLayoutBadCell is returned when a cell holds something other than 0 or 1.
	ErrLayoutBadCell = errors.New("seat layout cells must be 0 or 1")
	// ErrSeatOutOfRange is returned when a coordinate does not index the grid.
	ErrSeatOutOfRange = errors.New("seat coordinate outside layout")
	// ErrSeatTaken is returned by Claim when a requested cell is occupied.
	ErrSeatTaken = errors.New("seat already occupied")
)

// SeatCoord is a [row, column] pair indexing a seating grid.  It encodes
// to JSON as a two element array so requests can send [[0,1],[0,2]].
type SeatCoord [2]int

// Row returns the zero-based row index.
func (s SeatCoord) Row() int { return s[0] }

// Col returns the zero-based column index.
func (s SeatCoord) Col() int { return s[1] }

// String renders the coordinate as "[row,col]".
func (s SeatCoord) String() string { return fmt.Sprintf("[%d,%d]", s[0], s[1]) }

// JSONPath returns the MySQL JSON path of the cell, e.g. "$[2][5]".
func (s SeatCoord) JSONPath() string { return fmt.Sprintf("$[%d][%d]", s[0], s[1]) }

// FirstDuplicate reports the first coordinate that appears more than once.
func FirstDuplicate(coords []SeatCoord) (SeatCoord, bool) {
	seen := make(map[SeatCoord]struct{}, len(coords))
	for _, c := range coords {
		if _, ok := seen[c]; ok {
			return c, true
		}
		seen[c] = struct{}{}
	}
	return SeatCoord{}, false
}

// Layout is a rectangular seating grid of SeatFree/SeatOccupied cells.
// Cinemas own the template and every session receives its own copy.
type Layout [][]int

// Validate checks that the grid is non-empty, rectangular and binary.
func (l Layout) Validate() error {
	if len(l) == 0 || len(l[0]) == 0 {
		return ErrLayoutEmpty
	}
	width := len(l[0])
	for _, row := range l {
		if len(row) != width {
			return ErrLayoutNotRectangular
		}
		for _, v := range row {
			if v != SeatFree && v != SeatOccupied {
				return ErrLayoutBadCell
			}
		}
	}
	return nil
}

// Rows returns the number of rows.
func (l Layout) Rows() int { return len(l) }

// Cols returns the number of columns (zero for an empty grid).
func (l Layout) Cols() int {
	if len(l) == 0 {
		return 0
	}
	return len(l[0])
}

// Total returns the number of cells.
func (l Layout) Total() int {
	n := 0
	for _, row := range l {
		n += len(row)
	}
	return n
}

// Occupied counts cells marked SeatOccupied.
func (l Layout) Occupied() int {
	n := 0
	for _, row := range l {
		for _, v := range row {
			if v == SeatOccupied {
				n++
			}
		}
	}
	return n
}

// Free returns Total minus Occupied, which is what seats_available must hold.
func (l Layout) Free() int { return l.Total() - l.Occupied() }

// Contains reports whether c indexes a cell of the grid.
func (l Layout) Contains(c SeatCoord) bool {
	return c.Row() >= 0 && c.Row() < len(l) && c.Col() >= 0 && c.Col() < len(l[c.Row()])
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for i, row := range l {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Claim marks every coordinate occupied.  Either all cells change or none
// do: the grid is left untouched when any cell is out of range, taken, or
// requested twice.
func (l Layout) Claim(coords []SeatCoord) error {
	if dup, ok := FirstDuplicate(coords); ok {
		return fmt.Errorf("%w: %s", ErrSeatTaken, dup)
	}
	for _, c := range coords {
		if !l.Contains(c) {
			return fmt.Errorf("%w: %s", ErrSeatOutOfRange, c)
		}
		if l[c.Row()][c.Col()] != SeatFree {
			return fmt.Errorf("%w: %s", ErrSeatTaken, c)
		}
	}
	for _, c := range coords {
		l[c.Row()][c.Col()] = SeatOccupied
	}
	return nil
}

// Value implements driver.Valuer so a Layout can be written to a JSON column.
func (l Layout) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([][]int(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns.
func (l *Layout) Scan(src any) error {
	return scanJSON(src, (*[][]int)(l))
}

// SeatList is the ordered seat set of a reservation.
type SeatList []SeatCoord

// Value implements driver.Valuer.
func (s SeatList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]SeatCoord(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SeatList) Scan(src any) error {
	return scanJSON(src, (*[]SeatCoord)(s))
}

// EmailList is the ordered notification list of a reservation.
type EmailList []string

// Value implements driver.Valuer.
func (e EmailList) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (e *EmailList) Scan(src any) error {
	return scanJSON(src, (*[]string)(e))
}

// scanJSON decodes a JSON column delivered by the driver as []byte or string.
func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
