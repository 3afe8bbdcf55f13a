package arena

import (
	"math"

	"fight-club/internal/collision"
	"fight-club/internal/strategy"
)

// agentView adapts *Agent to strategy.AgentView (method surface over public
// fields) without giving the strategy package write access.
type agentView struct{ a *Agent }

func (v agentView) ID() uint16        { return v.a.ID }
func (v agentView) X() float64        { return v.a.X }
func (v agentView) Y() float64        { return v.a.Y }
func (v agentView) GunAngle() float64 { return v.a.GunAngle }
func (v agentView) Team() uint8       { return v.a.Team }
func (v agentView) Health() float64   { return v.a.Health }
func (v agentView) Alive() bool       { return v.a.Alive() }

// agentHandle adapts *Agent plus its owning Manager to strategy.AgentAPI,
// constructed fresh for each agent's strategy step so the strategy package
// never needs a back-pointer into arena.
type agentHandle struct {
	agent   *Agent
	manager *Manager
}

func (h *agentHandle) ID() uint16        { return h.agent.ID }
func (h *agentHandle) X() float64        { return h.agent.X }
func (h *agentHandle) Y() float64        { return h.agent.Y }
func (h *agentHandle) GunAngle() float64 { return h.agent.GunAngle }
func (h *agentHandle) Team() uint8       { return h.agent.Team }
func (h *agentHandle) Health() float64   { return h.agent.Health }
func (h *agentHandle) Alive() bool       { return h.agent.Alive() }

func (h *agentHandle) DetectedEnemies() []uint16 {
	out := make([]uint16, 0, len(h.agent.DetectedSet))
	for id := range h.agent.DetectedSet {
		out = append(out, id)
	}
	return out
}

func (h *agentHandle) ClosestEnemy() (uint16, bool) {
	best := uint16(0)
	bestDist := math.MaxFloat64
	found := false
	for id := range h.agent.DetectedSet {
		peer, ok := h.manager.Agents[id]
		if !ok || !peer.Alive() {
			continue
		}
		dx := peer.X - h.agent.X
		dy := peer.Y - h.agent.Y
		d := dx*dx + dy*dy
		if d < bestDist {
			bestDist = d
			best = id
			found = true
		}
	}
	return best, found
}

func (h *agentHandle) Blocked() (strategy.ObstacleKind, uint16, bool) {
	b := h.agent.Blocked()
	if b == nil {
		return strategy.ObstacleNone, 0, false
	}
	switch b.Kind {
	case collision.Wall:
		return strategy.ObstacleWall, b.ID, true
	case collision.Agent:
		return strategy.ObstacleAgent, b.ID, true
	default:
		return strategy.ObstacleNone, 0, false
	}
}

func (h *agentHandle) Move(dt float64, dir strategy.Direction) {
	h.agent.Move(dt, dir, h.manager.agentCandidates())
}

func (h *agentHandle) MoveToward(dt, tx, ty float64) {
	h.agent.MoveToward(dt, tx, ty, h.manager.agentCandidates())
}

func (h *agentHandle) PointGunAt(tx, ty float64) { h.agent.PointGunAt(tx, ty) }
func (h *agentHandle) RequestFire()              { h.agent.RequestFire() }
func (h *agentHandle) StartReload()              { h.agent.StartReload() }

func (h *agentHandle) CurrentAmmo() (int, bool) {
	if h.agent.infiniteAmmo() {
		return 0, true
	}
	return h.agent.CurrentAmmo, false
}

func (h *agentHandle) Reloading() bool { return h.agent.Reloading }

func (h *agentHandle) Agents() []strategy.AgentView {
	out := make([]strategy.AgentView, 0, len(h.manager.Agents))
	for _, a := range h.manager.Agents {
		out = append(out, agentView{a})
	}
	return out
}

func (h *agentHandle) Walls() strategy.WallView { return h.manager.Walls }
