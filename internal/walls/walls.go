// Package walls implements the grid-based wall set: pixel<->cell
// conversion, an append-only change buffer used for delta network sync, and
// text-map load/save. Map files follow the "first line is the topmost
// (highest Y) row" convention.
package walls

import (
	"bufio"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"

	"fight-club/internal/wire"
)

// Cell is a grid cell coordinate. Coordinates are always non-negative once
// validated; the type is int rather than uint16 so interior arithmetic
// (ranges, offsets) avoids constant casting; wire encoding narrows to
// uint16 at the boundary.
type Cell struct {
	CX, CY int
}

// Grid is the set of occupied cells over a W x H pixel world cut into
// GridUnit-pixel cells, plus the pending change buffer consumed by the
// broadcast pump.
type Grid struct {
	GridUnit    int
	WorldWidth  int
	WorldHeight int

	cells        map[Cell]struct{}
	changeBuffer []wire.WallChange
}

// NewGrid constructs an empty wall grid for a world of the given size.
func NewGrid(gridUnit, worldWidth, worldHeight int) *Grid {
	return &Grid{
		GridUnit:    gridUnit,
		WorldWidth:  worldWidth,
		WorldHeight: worldHeight,
		cells:       make(map[Cell]struct{}),
	}
}

// ToCell converts pixel coordinates to grid cell indices (floor division).
func (g *Grid) ToCell(px, py float64) (int, int) {
	return floorDiv(px, g.GridUnit), floorDiv(py, g.GridUnit)
}

// ToPixel returns a cell's bottom-left pixel corner.
func (g *Grid) ToPixel(cx, cy int) (int, int) {
	return cx * g.GridUnit, cy * g.GridUnit
}

// IsValidCell reports whether (cx,cy) is within grid bounds.
func (g *Grid) IsValidCell(cx, cy int) bool {
	maxX := g.WorldWidth / g.GridUnit
	maxY := g.WorldHeight / g.GridUnit
	return cx >= 0 && cx < maxX && cy >= 0 && cy < maxY
}

// HasWall reports whether a wall occupies cell (cx,cy).
func (g *Grid) HasWall(cx, cy int) bool {
	_, ok := g.cells[Cell{cx, cy}]
	return ok
}

// HasWallAtPixel reports whether the cell containing pixel (px,py) has a wall.
func (g *Grid) HasWallAtPixel(px, py float64) bool {
	cx, cy := g.ToCell(px, py)
	return g.HasWall(cx, cy)
}

// WallCells returns a snapshot copy of every occupied cell.
func (g *Grid) WallCells() []Cell {
	out := make([]Cell, 0, len(g.cells))
	for c := range g.cells {
		out = append(out, c)
	}
	return out
}

// Neighbors returns the 4-directional neighbor cells that currently hold a
// wall. Not used by any wire operation; exposed for map tooling and debug
// introspection.
func (g *Grid) Neighbors(cx, cy int) []Cell {
	dirs := [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	var out []Cell
	for _, d := range dirs {
		n := Cell{cx + d[0], cy + d[1]}
		if g.HasWall(n.CX, n.CY) {
			out = append(out, n)
		}
	}
	return out
}

// AddWall adds a wall at (cx,cy). Out-of-bounds cells are silently ignored.
// If trackChange, the mutation is appended to the change buffer, but only
// when it actually changes the set.
func (g *Grid) AddWall(cx, cy int, trackChange bool) {
	if !g.IsValidCell(cx, cy) {
		return
	}
	c := Cell{cx, cy}
	if _, exists := g.cells[c]; exists {
		return
	}
	g.cells[c] = struct{}{}
	if trackChange {
		g.changeBuffer = append(g.changeBuffer, wire.WallChange{Op: wire.WallAdd, CX: uint16(cx), CY: uint16(cy)})
	}
}

// RemoveWall removes a wall at (cx,cy), tracking the change if requested and
// if a wall actually existed there.
func (g *Grid) RemoveWall(cx, cy int, trackChange bool) {
	c := Cell{cx, cy}
	if _, exists := g.cells[c]; !exists {
		return
	}
	delete(g.cells, c)
	if trackChange {
		g.changeBuffer = append(g.changeBuffer, wire.WallChange{Op: wire.WallRemove, CX: uint16(cx), CY: uint16(cy)})
	}
}

// AddRect adds a rectangular block of wall cells starting at (cx,cy).
func (g *Grid) AddRect(cx, cy, wCells, hCells int, trackChange bool) {
	for gx := cx; gx < cx+wCells; gx++ {
		for gy := cy; gy < cy+hCells; gy++ {
			g.AddWall(gx, gy, trackChange)
		}
	}
}

// ClearRect removes every wall cell in a rectangular area.
func (g *Grid) ClearRect(cx, cy, wCells, hCells int, trackChange bool) {
	for gx := cx; gx < cx+wCells; gx++ {
		for gy := cy; gy < cy+hCells; gy++ {
			g.RemoveWall(gx, gy, trackChange)
		}
	}
}

// Clear removes every wall. If trackChange, each removal is individually
// tracked, which can grow the buffer very large on a dense map.
func (g *Grid) Clear(trackChange bool) {
	if !trackChange {
		g.cells = make(map[Cell]struct{})
		return
	}
	for c := range g.cells {
		g.RemoveWall(c.CX, c.CY, true)
	}
}

// HasChanges reports whether the change buffer has pending entries.
func (g *Grid) HasChanges() bool {
	return len(g.changeBuffer) > 0
}

// PackChanges encodes the pending change buffer without clearing it. Returns
// (nil, false) if there is nothing to send.
func (g *Grid) PackChanges() ([]byte, bool) {
	if len(g.changeBuffer) == 0 {
		return nil, false
	}
	data, err := wire.EncodeWallChanges(g.changeBuffer)
	if err != nil {
		return nil, false
	}
	return data, true
}

// ClearBuffer drops the pending change buffer without packing it.
func (g *Grid) ClearBuffer() {
	g.changeBuffer = nil
}

// ApplyPackedChanges applies a peer's packed wall delta to this grid without
// re-emitting it into this grid's own change buffer, and reports the net
// added/removed cell sets: a cell is reported only if its wall state differs
// from before the delta, in first-touched order.
func (g *Grid) ApplyPackedChanges(data []byte) (added, removed []Cell, err error) {
	changes, err := wire.DecodeWallChanges(data, func(cx, cy uint16) bool {
		return g.IsValidCell(int(cx), int(cy))
	})
	if err != nil {
		return nil, nil, err
	}
	before := make(map[Cell]bool)
	var touched []Cell
	for _, c := range changes {
		cx, cy := int(c.CX), int(c.CY)
		if _, seen := before[Cell{cx, cy}]; !seen {
			before[Cell{cx, cy}] = g.HasWall(cx, cy)
			touched = append(touched, Cell{cx, cy})
		}
		switch c.Op {
		case wire.WallAdd:
			g.AddWall(cx, cy, false)
		case wire.WallRemove:
			g.RemoveWall(cx, cy, false)
		}
	}
	for _, c := range touched {
		if has := g.HasWall(c.CX, c.CY); has && !before[c] {
			added = append(added, c)
		} else if !has && before[c] {
			removed = append(removed, c)
		}
	}
	return added, removed, nil
}

// LoadFromLines loads the wall set from a textual '0'/'1' grid where
// lines[0] is the topmost (highest cy) row.
func (g *Grid) LoadFromLines(lines []string, trackChange bool) {
	g.Clear(false)
	numRows := len(lines)
	for rowIdx, line := range lines {
		cy := numRows - 1 - rowIdx
		for cx, ch := range line {
			if ch == '1' {
				g.AddWall(cx, cy, trackChange)
			}
		}
	}
}

// SaveToLines renders the wall set back to the same textual convention.
func (g *Grid) SaveToLines() []string {
	widthCells := g.WorldWidth / g.GridUnit
	heightCells := g.WorldHeight / g.GridUnit
	rows := make([]string, heightCells)
	for rowIdx := 0; rowIdx < heightCells; rowIdx++ {
		cy := heightCells - 1 - rowIdx
		var b strings.Builder
		b.Grow(widthCells)
		for cx := 0; cx < widthCells; cx++ {
			if g.HasWall(cx, cy) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		rows[rowIdx] = b.String()
	}
	return rows
}

// LoadFromFile loads a wall map from a UTF-8 text file. A missing or
// unreadable file is a fatal configuration error; the caller should abort
// startup.
func (g *Grid) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "walls: open %s", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "walls: read %s", path)
	}
	g.LoadFromLines(lines, false)
	return nil
}

// SaveToFile writes the current wall set to a text file in the same format.
func (g *Grid) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "walls: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range g.SaveToLines() {
		if _, err := w.WriteString(row + "\n"); err != nil {
			return errors.Wrapf(err, "walls: write %s", path)
		}
	}
	return w.Flush()
}

// floorDiv mirrors Python's "//" for the pixel->cell conversion: floor, not
// truncation, so negative coordinates (outside the world, but still handed
// to us) land one cell lower rather than toward zero.
func floorDiv(v float64, unit int) int {
	return int(math.Floor(v / float64(unit)))
}
