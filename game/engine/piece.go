package engine

// ActivePiece is the falling piece: a shape and the board position of its
// bounding box's top-left corner.
type ActivePiece struct {
	Shape  Shape
	Anchor Position
}

// SpawnX returns the centered column for a shape of the given width.
// Integer division truncates, so odd widths lean left.
func SpawnX(cols int) int {
	return Width/2 - cols/2
}

// Spawn places shape at the top center. It reports false when the spawn
// position is blocked.
func Spawn(board *Board, shape Shape) (ActivePiece, bool) {
	p := ActivePiece{Shape: shape, Anchor: Position{X: SpawnX(shape.Cols()), Y: 0}}
	if !board.IsValidMove(shape, p.Anchor.X, p.Anchor.Y) {
		return ActivePiece{}, false
	}
	return p, true
}

// Move shifts the anchor by (dx, dy) if the board allows it.
func (p *ActivePiece) Move(board *Board, dx, dy int) bool {
	nx, ny := p.Anchor.X+dx, p.Anchor.Y+dy
	if !board.IsValidMove(p.Shape, nx, ny) {
		return false
	}
	p.Anchor = Position{X: nx, Y: ny}
	return true
}

// Rotate turns the shape clockwise in place of the anchor. No kicks are
// attempted; a blocked rotation keeps the current shape.
func (p *ActivePiece) Rotate(board *Board) bool {
	rotated := p.Shape.Rotate()
	if !board.IsValidMove(rotated, p.Anchor.X, p.Anchor.Y) {
		return false
	}
	p.Shape = rotated
	return true
}

// AboveTop reports whether any occupied cell lies above row 0.
func (p ActivePiece) AboveTop() bool {
	for r := 0; r < p.Shape.Rows(); r++ {
		for c := 0; c < p.Shape.Cols(); c++ {
			if p.Shape.Occupied(r, c) && p.Anchor.Y+r < 0 {
				return true
			}
		}
	}
	return false
}

// Covers reports whether the piece occupies board cell (x, y).
func (p ActivePiece) Covers(x, y int) bool {
	return p.Shape.Occupied(y-p.Anchor.Y, x-p.Anchor.X)
}

// ScoreForLines is the aggregate bonus for clearing n rows in one lock.
func ScoreForLines(n int) int {
	return 100 * n * n
}
