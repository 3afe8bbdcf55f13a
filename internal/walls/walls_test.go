package walls

import (
	"reflect"
	"sort"
	"testing"
)

func sortCells(cs []Cell) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].CX != cs[j].CX {
			return cs[i].CX < cs[j].CX
		}
		return cs[i].CY < cs[j].CY
	})
}

func TestWallDeltaRoundTrip(t *testing.T) {
	// Scenario 5: addWall(3,4); addWall(3,5); removeWall(3,4) -> peer ends with {(3,5)}.
	g := NewGrid(10, 1000, 1000)
	g.AddWall(3, 4, true)
	g.AddWall(3, 5, true)
	g.RemoveWall(3, 4, true)

	packed, ok := g.PackChanges()
	if !ok {
		t.Fatal("expected pending changes")
	}

	peer := NewGrid(10, 1000, 1000)
	added, removed, err := peer.ApplyPackedChanges(packed)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := peer.WallCells(); len(got) != 1 || got[0] != (Cell{3, 5}) {
		t.Fatalf("peer walls = %+v, want exactly {3,5}", got)
	}
	sortCells(added)
	if !reflect.DeepEqual(added, []Cell{{3, 5}}) {
		t.Fatalf("added = %+v", added)
	}
	if len(removed) != 0 {
		t.Fatalf("removed = %+v", removed)
	}
	if peer.HasChanges() {
		t.Fatal("ApplyPackedChanges must not re-emit into the buffer")
	}
}

func TestInvalidCellIgnored(t *testing.T) {
	g := NewGrid(10, 100, 100) // 10x10 cells
	g.AddWall(50, 50, true)
	if g.HasWall(50, 50) {
		t.Fatal("out-of-bounds add must be silently ignored")
	}
	if g.HasChanges() {
		t.Fatal("no change should be tracked for an ignored mutation")
	}
}

func TestPixelCellConversion(t *testing.T) {
	g := NewGrid(10, 100, 100)
	cx, cy := g.ToCell(25, 37)
	if cx != 2 || cy != 3 {
		t.Fatalf("ToCell(25,37) = (%d,%d), want (2,3)", cx, cy)
	}
	px, py := g.ToPixel(2, 3)
	if px != 20 || py != 30 {
		t.Fatalf("ToPixel(2,3) = (%d,%d), want (20,30)", px, py)
	}
}

func TestLoadFromLinesTopRowIsHighY(t *testing.T) {
	g := NewGrid(1, 3, 2)
	// Two rows: top row (cy=1) has a wall at cx=0; bottom row (cy=0) has one at cx=2.
	g.LoadFromLines([]string{"100", "001"}, false)
	if !g.HasWall(0, 1) {
		t.Fatal("expected wall at (0,1) from the top row")
	}
	if !g.HasWall(2, 0) {
		t.Fatal("expected wall at (2,0) from the bottom row")
	}
	if g.HasWall(0, 0) || g.HasWall(2, 1) {
		t.Fatal("unexpected wall cell")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := NewGrid(1, 4, 3)
	g.AddWall(0, 2, false)
	g.AddWall(3, 0, false)

	lines := g.SaveToLines()
	g2 := NewGrid(1, 4, 3)
	g2.LoadFromLines(lines, false)

	want := g.WallCells()
	got := g2.WallCells()
	sortCells(want)
	sortCells(got)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}
