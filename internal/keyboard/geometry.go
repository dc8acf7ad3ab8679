package keyboard

import (
	"errors"
	"math"
)

var (
	ErrInvalidRow        = errors.New("point outside keyboard rows")
	ErrInvalidColumn     = errors.New("point outside row keys")
	ErrMalformedGeometry = errors.New("malformed geometry")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry carries the rendering parameters the client used for one
// keystroke: overall canvas size, per-row key pixel widths, and the
// leading (centering) offset of each row. It is supplied fresh on
// every input call and is the denominator for hit-testing. The server
// validates its shape only; the values themselves are client-trusted,
// so a dishonest client can steer resolution to arbitrary keys.
type Geometry struct {
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	KeyWidths  [][]float64 `json:"keyWidths"`
	RowOffsets []float64   `json:"rowOffsets"`
}

type Cell struct {
	Row int
	Col int
}

// Resolve maps a reported pointer coordinate to a grid cell. Row
// selection divides the declared height evenly across grid rows;
// column selection walks the row's declared widths from its offset.
// Key intervals are inclusive on both edges, so a point exactly on a
// shared boundary resolves to the lower-index key (first match wins).
// Resolve knows nothing about glyphs; the same resolver serves every
// layout instance.
func Resolve(p Point, g Geometry, grid Grid) (Cell, error) {
	if err := checkGeometry(p, g, grid.Rows()); err != nil {
		return Cell{}, err
	}

	rowHeight := g.Height / float64(grid.Rows())
	row := int(math.Floor(p.Y / rowHeight))
	if row < 0 || row >= grid.Rows() {
		return Cell{}, ErrInvalidRow
	}

	left := g.RowOffsets[row]
	for col, width := range g.KeyWidths[row] {
		if p.X >= left && p.X <= left+width {
			if col >= len(grid[row]) {
				// Client declared more keys than the row has slots.
				return Cell{}, ErrInvalidColumn
			}
			return Cell{Row: row, Col: col}, nil
		}
		left += width
	}
	return Cell{}, ErrInvalidColumn
}

func checkGeometry(p Point, g Geometry, rows int) error {
	if !finite(p.X) || !finite(p.Y) {
		return ErrMalformedGeometry
	}
	if !finite(g.Width) || !finite(g.Height) || g.Height <= 0 || g.Width <= 0 {
		return ErrMalformedGeometry
	}
	if len(g.KeyWidths) != rows || len(g.RowOffsets) != rows {
		return ErrMalformedGeometry
	}
	for r, widths := range g.KeyWidths {
		if len(widths) == 0 || !finite(g.RowOffsets[r]) {
			return ErrMalformedGeometry
		}
		for _, w := range widths {
			if !finite(w) || w <= 0 {
				return ErrMalformedGeometry
			}
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
