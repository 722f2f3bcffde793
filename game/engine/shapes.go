package engine

import "encoding/json"

// Source is the random source used to pick shapes. *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Shape is an immutable occupancy matrix for one piece orientation.
type Shape struct {
	name  string
	rows  int
	cols  int
	cells []bool // row-major, len == rows*cols
}

// NewShape builds a shape from a 0/1 matrix. Rows must all have the same length.
func NewShape(name string, matrix [][]int) Shape {
	rows := len(matrix)
	cols := 0
	if rows > 0 {
		cols = len(matrix[0])
	}
	cells := make([]bool, rows*cols)
	for r := range matrix {
		for c := 0; c < cols && c < len(matrix[r]); c++ {
			cells[r*cols+c] = matrix[r][c] != 0
		}
	}
	return Shape{name: name, rows: rows, cols: cols, cells: cells}
}

// Name returns the catalog letter of the shape (I, O, T, L, J, S, Z).
func (s Shape) Name() string { return s.name }

// Rows returns the height of the bounding rectangle.
func (s Shape) Rows() int { return s.rows }

// Cols returns the width of the bounding rectangle.
func (s Shape) Cols() int { return s.cols }

// IsZero reports whether the shape has no cells at all.
func (s Shape) IsZero() bool { return s.rows == 0 || s.cols == 0 }

// Occupied reports whether cell (r, c) of the bounding rectangle is filled.
func (s Shape) Occupied(r, c int) bool {
	if r < 0 || r >= s.rows || c < 0 || c >= s.cols {
		return false
	}
	return s.cells[r*s.cols+c]
}

// Matrix returns a fresh 0/1 copy of the shape.
func (s Shape) Matrix() [][]int {
	out := make([][]int, s.rows)
	for r := 0; r < s.rows; r++ {
		out[r] = make([]int, s.cols)
		for c := 0; c < s.cols; c++ {
			if s.cells[r*s.cols+c] {
				out[r][c] = 1
			}
		}
	}
	return out
}

// Equal compares geometry only; the name is ignored.
func (s Shape) Equal(other Shape) bool {
	if s.rows != other.rows || s.cols != other.cols {
		return false
	}
	for i := range s.cells {
		if s.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Rotate returns the shape turned 90 degrees clockwise.
func (s Shape) Rotate() Shape {
	return RotateClockwise(s)
}

// RotateClockwise maps shape[r][c] to rotated[c][rows-1-r].
func RotateClockwise(s Shape) Shape {
	rotated := Shape{
		name:  s.name,
		rows:  s.cols,
		cols:  s.rows,
		cells: make([]bool, len(s.cells)),
	}
	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			rotated.cells[c*rotated.cols+(s.rows-1-r)] = s.cells[r*s.cols+c]
		}
	}
	return rotated
}

type shapeJSON struct {
	Name   string  `json:"name"`
	Matrix [][]int `json:"matrix"`
}

// MarshalJSON encodes the shape as {"name": ..., "matrix": [[...]]}.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(shapeJSON{Name: s.name, Matrix: s.Matrix()})
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var raw shapeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewShape(raw.Name, raw.Matrix)
	return nil
}

// catalog order matches the classic set: I, O, T, L, J, S, Z.
var catalog = []Shape{
	NewShape("I", [][]int{{1, 1, 1, 1}}),
	NewShape("O", [][]int{{1, 1}, {1, 1}}),
	NewShape("T", [][]int{{1, 1, 1}, {0, 1, 0}}),
	NewShape("L", [][]int{{1, 1, 1}, {1, 0, 0}}),
	NewShape("J", [][]int{{1, 1, 1}, {0, 0, 1}}),
	NewShape("S", [][]int{{1, 1, 0}, {0, 1, 1}}),
	NewShape("Z", [][]int{{0, 1, 1}, {1, 1, 0}}),
}

// Shapes returns the seven base shapes in catalog order.
func Shapes() []Shape {
	out := make([]Shape, len(catalog))
	copy(out, catalog)
	return out
}

// ShapeByName looks up a base shape by its letter.
func ShapeByName(name string) (Shape, bool) {
	for _, s := range catalog {
		if s.name == name {
			return s, true
		}
	}
	return Shape{}, false
}

// RandomShape picks one of the base shapes uniformly.
func RandomShape(src Source) Shape {
	return catalog[src.IntN(len(catalog))]
}
