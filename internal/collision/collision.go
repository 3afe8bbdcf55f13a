// Package collision implements the collision primitives: circle-vs-wall,
// circle-vs-circle, and move validation, plus the FOV ray-cast used for
// agent perception. Every scan is a plain linear pass; match sizes are
// small enough that a spatial index would buy nothing.
package collision

import (
	"math"

	"fight-club/internal/walls"
)

// ObstacleKind is the result of validateMove: what blocked the candidate
// position, if anything.
type ObstacleKind uint8

const (
	None ObstacleKind = iota
	Wall
	Agent
)

// AgentCandidate is the read-only view of an agent that the collision and
// FOV primitives need: no dependency on the arena package, so arena can
// depend on collision without a cycle.
type AgentCandidate struct {
	ID     uint16
	X, Y   float64
	Radius float64
}

// CircleVsWalls reports whether a circle overlaps any wall cell, by
// cell-bounded iteration over the circle's bounding box. Approximate: the
// corner cells count even where the circle doesn't reach them. Clients and
// peers assume this exact behavior; do not tighten it.
func CircleVsWalls(x, y, r float64, g *walls.Grid) bool {
	cxMin, cyMin := g.ToCell(x-r, y-r)
	cxMax, cyMax := g.ToCell(x+r, y+r)

	for cx := cxMin; cx <= cxMax; cx++ {
		for cy := cyMin; cy <= cyMax; cy++ {
			if g.HasWall(cx, cy) {
				return true
			}
		}
	}
	return false
}

// CirclesOverlap reports whether two circles intersect via squared-distance
// comparison (no sqrt).
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x1 - x2
	dy := y1 - y2
	distSq := dx*dx + dy*dy
	minDist := r1 + r2
	return distSq < minDist*minDist
}

// ValidateMove checks whether (x,y,r) is a legal position: walls first, then
// agents (excluding excludeID). Bullets are never obstacles for movement.
func ValidateMove(x, y, r float64, agents []AgentCandidate, g *walls.Grid, excludeID uint16) (ObstacleKind, uint16) {
	if CircleVsWalls(x, y, r, g) {
		return Wall, 0
	}
	for _, a := range agents {
		if a.ID == excludeID {
			continue
		}
		if CirclesOverlap(x, y, r, a.X, a.Y, a.Radius) {
			return Agent, a.ID
		}
	}
	return None, 0
}

// BulletCandidate is the read-only bullet view fed to the bullet-resolution
// enumerators below.
type BulletCandidate struct {
	ID     uint16
	X, Y   float64
	Radius float64
	Owner  uint16
	Team   uint8
}

// BulletAgentHits finds every bullet that overlaps an opposing-team agent
// that is not its owner. All hits in the tick are returned and damage
// stacks; the caller removes the bullet once processed.
func BulletAgentHits(bullets []BulletCandidate, agents []AgentCandidate, agentTeam func(id uint16) uint8) map[uint16][]uint16 {
	hits := make(map[uint16][]uint16, len(bullets))
	for _, b := range bullets {
		var hit []uint16
		for _, a := range agents {
			if a.ID == b.Owner {
				continue
			}
			if agentTeam(a.ID) == b.Team {
				continue
			}
			if CirclesOverlap(b.X, b.Y, b.Radius, a.X, a.Y, a.Radius) {
				hit = append(hit, a.ID)
			}
		}
		if len(hit) > 0 {
			hits[b.ID] = hit
		}
	}
	return hits
}

// BulletWallHits returns the ids of bullets overlapping a wall cell.
func BulletWallHits(bullets []BulletCandidate, g *walls.Grid) []uint16 {
	var out []uint16
	for _, b := range bullets {
		if CircleVsWalls(b.X, b.Y, b.Radius, g) {
			out = append(out, b.ID)
		}
	}
	return out
}

// RayHit is the result of a single ray step: either nothing (ray exhausted
// its max distance), a wall, or an agent.
type RayHit struct {
	HitWall  bool
	HitAgent bool
	AgentID  uint16
}

// CastRay marches from (x,y) along angle in steps of size step, up to
// maxDistance, testing wall occupancy and candidate agent overlap at every
// step. Walls block the ray; the first agent touched terminates it with a
// hit. The angle convention mirrors Y: dx=cos(angle), dy=-sin(angle).
func CastRay(x, y, angle, maxDistance, step float64, g *walls.Grid, candidates []AgentCandidate) RayHit {
	dx := math.Cos(angle)
	dy := -math.Sin(angle)

	cx, cy := x, y
	traveled := 0.0
	for traveled < maxDistance {
		cx += dx * step
		cy += dy * step
		traveled += step

		if g.HasWallAtPixel(cx, cy) {
			return RayHit{HitWall: true}
		}
		for _, a := range candidates {
			ddx := cx - a.X
			ddy := cy - a.Y
			if ddx*ddx+ddy*ddy < a.Radius*a.Radius {
				return RayHit{HitAgent: true, AgentID: a.ID}
			}
		}
	}
	return RayHit{}
}

// FilterFOVCandidates pre-filters agents to those within
// fovRadius+theirRadius of the ray origin, so the per-step overlap test
// only walks agents a ray could possibly reach.
func FilterFOVCandidates(originX, originY, fovRadius float64, all []AgentCandidate, selfID uint16) []AgentCandidate {
	out := make([]AgentCandidate, 0, len(all))
	for _, a := range all {
		if a.ID == selfID {
			continue
		}
		dx := a.X - originX
		dy := a.Y - originY
		limit := fovRadius + a.Radius
		if dx*dx+dy*dy < limit*limit {
			out = append(out, a)
		}
	}
	return out
}
