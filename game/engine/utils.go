package engine

// RenderRows draws the board as text: '.' empty, '#' locked, '@' piece.
func RenderRows(board *Board, piece *ActivePiece) []string {
	rows := make([]string, Height)
	line := make([]byte, Width)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			switch {
			case piece != nil && piece.Covers(x, y):
				line[x] = '@'
			case board.At(x, y) == Filled:
				line[x] = '#'
			default:
				line[x] = '.'
			}
		}
		rows[y] = string(line)
	}
	return rows
}

// CellDescription explains what occupies one board coordinate.
type CellDescription struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	InBounds bool   `json:"in_bounds"`
	Char     string `json:"char"`
	Kind     string `json:"kind"` // "empty", "locked", "active", "out_of_bounds"
}

// DescribeCell reports the content of (x, y) in a snapshot.
func DescribeCell(snap Snapshot, x, y int) CellDescription {
	d := CellDescription{X: x, Y: y}
	if x < 0 || x >= Width || y < 0 || y >= Height || len(snap.Board) != Height {
		d.Char = "B"
		d.Kind = "out_of_bounds"
		return d
	}
	d.InBounds = true
	if p := snap.ActivePiece; p != nil && p.Shape.Occupied(y-p.Anchor.Y, x-p.Anchor.X) {
		d.Char = "@"
		d.Kind = "active"
		return d
	}
	if snap.Board[y][x] == Filled {
		d.Char = "#"
		d.Kind = "locked"
		return d
	}
	d.Char = "."
	d.Kind = "empty"
	return d
}

// ColumnHeights returns, per column, the number of rows from the bottom up
// to and including the highest filled cell.
func ColumnHeights(board *Board) [Width]int {
	var heights [Width]int
	for x := 0; x < Width; x++ {
		for y := 0; y < Height; y++ {
			if board.At(x, y) == Filled {
				heights[x] = Height - y
				break
			}
		}
	}
	return heights
}

// CountHoles counts empty cells that have a filled cell somewhere above them.
func CountHoles(board *Board) int {
	holes := 0
	for x := 0; x < Width; x++ {
		covered := false
		for y := 0; y < Height; y++ {
			if board.At(x, y) == Filled {
				covered = true
			} else if covered {
				holes++
			}
		}
	}
	return holes
}
