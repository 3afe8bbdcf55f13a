package collision

import (
	"testing"

	"fight-club/internal/walls"
)

func TestCircleVsWallsDetectsOccupiedCell(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	g.AddWall(5, 5, false)
	if !CircleVsWalls(52, 52, 3, g) {
		t.Fatal("circle centered inside a wall cell must collide")
	}
	if CircleVsWalls(5, 5, 1, g) {
		t.Fatal("circle in cell (0,0), which is empty, must not collide")
	}
}

func TestCircleVsWallsEmptyGrid(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	if CircleVsWalls(50, 50, 3, g) {
		t.Fatal("empty grid must never collide")
	}
}

func TestCirclesOverlap(t *testing.T) {
	if !CirclesOverlap(0, 0, 5, 6, 0, 5) {
		t.Fatal("circles 6 apart with radius 5 each must overlap")
	}
	if CirclesOverlap(0, 0, 5, 10, 0, 5) {
		t.Fatal("circles exactly 10 apart with radius 5 each must not overlap (strict <)")
	}
}

func TestValidateMoveWallBlocksBeforeAgents(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	g.AddWall(5, 5, false)
	agents := []AgentCandidate{{ID: 2, X: 52, Y: 52, Radius: 3}}

	kind, id := ValidateMove(52, 52, 3, agents, g, 1)
	if kind != Wall {
		t.Fatalf("expected Wall obstacle, got %v (id=%d)", kind, id)
	}
}

func TestValidateMoveAgentBlocksWhenNoWall(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	agents := []AgentCandidate{{ID: 2, X: 50, Y: 50, Radius: 5}}

	kind, id := ValidateMove(50, 50, 5, agents, g, 1)
	if kind != Agent || id != 2 {
		t.Fatalf("expected Agent obstacle id=2, got kind=%v id=%d", kind, id)
	}
}

func TestValidateMoveExcludesSelf(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	agents := []AgentCandidate{{ID: 1, X: 50, Y: 50, Radius: 5}}

	kind, _ := ValidateMove(50, 50, 5, agents, g, 1)
	if kind != None {
		t.Fatalf("excluded agent must not block its own move, got %v", kind)
	}
}

func TestValidateMoveOpenSpaceIsFree(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	kind, _ := ValidateMove(50, 50, 5, nil, g, 1)
	if kind != None {
		t.Fatalf("open space must validate, got %v", kind)
	}
}

func TestBulletAgentHitsSkipsOwnerAndSameTeam(t *testing.T) {
	bullets := []BulletCandidate{{ID: 1, X: 10, Y: 10, Radius: 2, Owner: 1, Team: 1}}
	agents := []AgentCandidate{
		{ID: 1, X: 10, Y: 10, Radius: 5}, // owner, must be skipped
		{ID: 2, X: 10, Y: 10, Radius: 5}, // same team as bullet, must be skipped
		{ID: 3, X: 10, Y: 10, Radius: 5}, // opposing team, must be hit
	}
	team := func(id uint16) uint8 {
		if id == 3 {
			return 2
		}
		return 1
	}

	hits := BulletAgentHits(bullets, agents, team)
	got, ok := hits[1]
	if !ok || len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected bullet 1 to hit only agent 3, got %+v", hits)
	}
}

func TestBulletAgentHitsNoOverlapNoEntry(t *testing.T) {
	bullets := []BulletCandidate{{ID: 1, X: 0, Y: 0, Radius: 1, Owner: 9, Team: 1}}
	agents := []AgentCandidate{{ID: 2, X: 1000, Y: 1000, Radius: 5}}
	team := func(uint16) uint8 { return 2 }

	hits := BulletAgentHits(bullets, agents, team)
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestBulletWallHits(t *testing.T) {
	g := walls.NewGrid(10, 100, 100)
	g.AddWall(5, 5, false)
	bullets := []BulletCandidate{
		{ID: 1, X: 52, Y: 52, Radius: 1},
		{ID: 2, X: 5, Y: 5, Radius: 1},
	}
	hits := BulletWallHits(bullets, g)
	if len(hits) != 1 || hits[0] != 1 {
		t.Fatalf("expected only bullet 1 to hit a wall, got %+v", hits)
	}
}

func TestCastRayStopsAtWall(t *testing.T) {
	g := walls.NewGrid(10, 200, 200)
	g.AddWall(10, 0, false) // wall cell spans x in [100,110), y in [0,10)

	hit := CastRay(50, 5, 0 /* angle=0 => +x direction */, 100, 1, g, nil)
	if !hit.HitWall {
		t.Fatal("expected ray travelling +x to terminate on the wall at x=100..110")
	}
}

func TestCastRayDetectsAgentBeforeWall(t *testing.T) {
	g := walls.NewGrid(10, 200, 200)
	g.AddWall(15, 0, false) // wall far down-range at x in [150,160)
	candidates := []AgentCandidate{{ID: 7, X: 60, Y: 5, Radius: 3}}

	hit := CastRay(50, 5, 0, 120, 1, g, candidates)
	if !hit.HitAgent || hit.AgentID != 7 {
		t.Fatalf("expected ray to detect agent 7 before reaching the wall, got %+v", hit)
	}
}

func TestCastRayExhaustsWithNoHit(t *testing.T) {
	g := walls.NewGrid(10, 200, 200)
	hit := CastRay(50, 5, 0, 20, 1, g, nil)
	if hit.HitWall || hit.HitAgent {
		t.Fatalf("expected no hit within empty range, got %+v", hit)
	}
}

func TestFilterFOVCandidatesExcludesSelfAndDistant(t *testing.T) {
	all := []AgentCandidate{
		{ID: 1, X: 0, Y: 0, Radius: 5},   // self
		{ID: 2, X: 5, Y: 0, Radius: 5},   // near, included
		{ID: 3, X: 1000, Y: 0, Radius: 5}, // far, excluded
	}
	out := FilterFOVCandidates(0, 0, 50, all, 1)
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("expected only agent 2, got %+v", out)
	}
}
