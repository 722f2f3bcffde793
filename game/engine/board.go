package engine

import "strings"

// Board is the fixed grid of locked cells, row 0 at the top.
type Board struct {
	cells [Height][Width]Cell
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// NewBoardFromRows builds a board from text rows aligned to the bottom.
// '#', 'X' and '1' mark filled cells; anything else is empty.
func NewBoardFromRows(rows []string) *Board {
	b := NewBoard()
	offset := Height - len(rows)
	for i, row := range rows {
		y := offset + i
		if y < 0 {
			continue
		}
		for x, ch := range row {
			if x >= Width {
				break
			}
			if ch == '#' || ch == 'X' || ch == '1' {
				b.cells[y][x] = Filled
			}
		}
	}
	return b
}

// At returns the cell at column x, row y. Out-of-range coordinates read as Empty.
func (b *Board) At(x, y int) Cell {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return Empty
	}
	return b.cells[y][x]
}

// Set writes a cell; out-of-range writes are ignored.
func (b *Board) Set(x, y int, cell Cell) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	b.cells[y][x] = cell
}

// IsValidMove reports whether shape fits with its top-left corner at (x, y).
// Cells above the top edge only take part in the horizontal bounds check.
func (b *Board) IsValidMove(shape Shape, x, y int) bool {
	for r := 0; r < shape.Rows(); r++ {
		for c := 0; c < shape.Cols(); c++ {
			if !shape.Occupied(r, c) {
				continue
			}
			bx, by := x+c, y+r
			if bx < 0 || bx >= Width || by >= Height {
				return false
			}
			if by >= 0 && b.cells[by][bx] == Filled {
				return false
			}
		}
	}
	return true
}

// Merge writes Filled for every occupied cell of shape at (x, y).
// Writes that fall outside the grid are clipped.
func (b *Board) Merge(shape Shape, x, y int) {
	for r := 0; r < shape.Rows(); r++ {
		for c := 0; c < shape.Cols(); c++ {
			if shape.Occupied(r, c) {
				b.Set(x+c, y+r, Filled)
			}
		}
	}
}

// IsRowFull reports whether every cell of row y is Filled.
func (b *Board) IsRowFull(y int) bool {
	if y < 0 || y >= Height {
		return false
	}
	for x := 0; x < Width; x++ {
		if b.cells[y][x] != Filled {
			return false
		}
	}
	return true
}

// ClearFullRows removes every full row and returns how many were removed.
// Surviving rows keep their relative order and are compacted toward the
// bottom; the vacated rows at the top are reset to Empty.
func (b *Board) ClearFullRows() int {
	write := Height - 1
	for read := Height - 1; read >= 0; read-- {
		if b.IsRowFull(read) {
			continue
		}
		if write != read {
			b.cells[write] = b.cells[read]
		}
		write--
	}
	cleared := write + 1
	for y := 0; y <= write; y++ {
		b.cells[y] = [Width]Cell{}
	}
	return cleared
}

// FilledCount returns the number of Filled cells on the board.
func (b *Board) FilledCount() int {
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if b.cells[y][x] == Filled {
				n++
			}
		}
	}
	return n
}

// Cells returns a deep copy of the grid as nested slices.
func (b *Board) Cells() [][]Cell {
	out := make([][]Cell, Height)
	for y := 0; y < Height; y++ {
		row := make([]Cell, Width)
		copy(row, b.cells[y][:])
		out[y] = row
	}
	return out
}

// String renders the board with '.' for empty and '#' for filled cells.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if b.cells[y][x] == Filled {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
