package fieldedit

// Position is the logical cursor location inside a grid. It always
// addresses an editable FieldSpec.
type Position struct {
	Row int
	Col int
}

// Grid owns the cursor over a catalog's jagged rows. Moves are total: they
// report whether the cursor moved and never leave it on a read-only cell.
type Grid struct {
	rows         [][]FieldSpec
	cursor       Position
	preferredCol int
	valid        bool
}

// NewGrid builds a grid over the catalog rows with the cursor at the reset
// position. A catalog with no editable field yields a grid whose moves all
// report false and whose Current returns ok=false.
func NewGrid(catalog Catalog) *Grid {
	g := &Grid{rows: catalog.Rows()}
	g.Reset()
	return g
}

// Reset moves the cursor to the first editable field in row-major order.
func (g *Grid) Reset() bool {
	for rowIdx, row := range g.rows {
		for colIdx, cell := range row {
			if cell.Editable {
				g.cursor = Position{Row: rowIdx, Col: colIdx}
				g.preferredCol = colIdx
				g.valid = true
				return true
			}
		}
	}
	g.valid = false
	return false
}

// Current returns the focused field spec.
func (g *Grid) Current() (FieldSpec, bool) {
	if !g.valid {
		return FieldSpec{}, false
	}
	return g.rows[g.cursor.Row][g.cursor.Col], true
}

// Position returns the cursor location.
func (g *Grid) Position() Position {
	return g.cursor
}

// PreferredColumn returns the remembered horizontal intent used by vertical
// moves.
func (g *Grid) PreferredColumn() int {
	return g.preferredCol
}

// MoveLeft moves to the nearest editable field left of the cursor within the
// current row. At the row edge it reports false and leaves the cursor alone.
func (g *Grid) MoveLeft() bool {
	return g.moveHorizontal(-1)
}

// MoveRight moves to the nearest editable field right of the cursor within
// the current row.
func (g *Grid) MoveRight() bool {
	return g.moveHorizontal(1)
}

// MoveUp moves to the best editable field in the nearest row above that has
// one, preserving column memory.
func (g *Grid) MoveUp() bool {
	return g.moveVertical(-1)
}

// MoveDown moves to the best editable field in the nearest row below that
// has one, preserving column memory.
func (g *Grid) MoveDown() bool {
	return g.moveVertical(1)
}

// moveHorizontal scans outward within the current row, skipping read-only
// cells. A successful move records the landing column as the new horizontal
// intent.
func (g *Grid) moveHorizontal(step int) bool {
	if !g.valid {
		return false
	}
	row := g.rows[g.cursor.Row]
	for col := g.cursor.Col + step; col >= 0 && col < len(row); col += step {
		if !row[col].Editable {
			continue
		}
		g.cursor.Col = col
		g.preferredCol = col
		return true
	}
	return false
}

// moveVertical walks one row at a time in the requested direction and lands
// on the editable cell nearest the preferred column. Rows without any
// editable cell are scanned past. The preferred column itself is left
// untouched: it records the last deliberate horizontal position, so a later
// vertical move can restore it even when an intervening narrow row forced
// the cursor aside.
func (g *Grid) moveVertical(step int) bool {
	if !g.valid {
		return false
	}
	for row := g.cursor.Row + step; row >= 0 && row < len(g.rows); row += step {
		col, ok := nearestEditable(g.rows[row], g.preferredCol)
		if !ok {
			continue
		}
		g.cursor = Position{Row: row, Col: col}
		return true
	}
	return false
}

// nearestEditable clamps the wanted column to the row width and probes
// outward by growing offset, trying the rightward candidate before the
// leftward one at each distance.
func nearestEditable(row []FieldSpec, want int) (int, bool) {
	if len(row) == 0 {
		return 0, false
	}
	if want >= len(row) {
		want = len(row) - 1
	}
	if want < 0 {
		want = 0
	}
	for offset := 0; offset < len(row); offset++ {
		if right := want + offset; right < len(row) && row[right].Editable {
			return right, true
		}
		if left := want - offset; offset > 0 && left >= 0 && row[left].Editable {
			return left, true
		}
	}
	return 0, false
}
