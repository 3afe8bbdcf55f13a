// Package arena implements the authoritative simulation: Bullet, Agent, the
// base per-tick game manager, and the Survival/KOTH/CTF mode overlays. The
// three modes share one Manager.Update loop; everything mode-specific hangs
// off a pluggable Overlay hook.
package arena

import (
	"log"
	"sort"

	"fight-club/internal/collision"
	"fight-club/internal/metrics"
	"fight-club/internal/strategy"
	"fight-club/internal/walls"
	"fight-club/internal/wire"
)

// FOVConfig groups the detection-cone tunables read from config at startup.
type FOVConfig struct {
	Ratio          float64 // rho: FOV radius = Ratio * agent radius
	Opening        float64 // phi: cone angle, radians
	NumRays        int     // N
	RayStepDivisor float64 // k, >= 2
}

// SpawnPoint is one entry of a per-team spawn table.
type SpawnPoint struct {
	X, Y     float64
	Team     uint8
	Strategy func() strategy.Strategy
}

// Overlay is the per-mode hook invoked after physics, collisions, and dead
// agents have been resolved each tick.
type Overlay interface {
	Update(m *Manager, dt float64)
	GameOver() bool
	Winner() uint8
}

// EventSink receives combat notifications as the manager resolves them, for
// match-history audit logging. A nil sink is a valid no-op: the manager
// never requires one.
type EventSink interface {
	OnDamage(attackerID, victimID uint16, damage, victimHealth float64)
	OnKill(victimID uint16, team uint8)
}

// Manager is one match's authoritative game state: the agent and bullet
// tables, the wall grid, and the tick counter.
type Manager struct {
	Agents map[uint16]*Agent
	Walls  *walls.Grid

	bullets map[uint16]*Bullet

	TickCount uint64
	IsRunning bool

	DetectionInterval uint64
	FOV               FOVConfig

	Overlay Overlay
	Events  EventSink

	Winner uint8
}

// NewManager constructs a match manager over an already-loaded wall grid.
func NewManager(w *walls.Grid, detectionInterval uint64, fov FOVConfig, overlay Overlay) *Manager {
	return &Manager{
		Agents:            make(map[uint16]*Agent),
		Walls:             w,
		bullets:           make(map[uint16]*Bullet),
		DetectionInterval: detectionInterval,
		FOV:               fov,
		Overlay:           overlay,
		IsRunning:         true,
	}
}

// SpawnAgents builds the team rosters from the configured spawn tables.
func (m *Manager) SpawnAgents(points []SpawnPoint, cfg AgentConfig, mapWidth float64) {
	for _, p := range points {
		a := NewAgent(p.X, p.Y, p.Team, nil, mapWidth, cfg, m.Walls, p.Strategy())
		m.Agents[a.ID] = a
	}
}

// agentCandidates snapshots the current agent table into collision's
// lightweight candidate view.
func (m *Manager) agentCandidates() []collision.AgentCandidate {
	out := make([]collision.AgentCandidate, 0, len(m.Agents))
	for _, a := range m.Agents {
		out = append(out, collision.AgentCandidate{ID: a.ID, X: a.X, Y: a.Y, Radius: a.Radius})
	}
	return out
}

func (m *Manager) bulletCandidates() []collision.BulletCandidate {
	out := make([]collision.BulletCandidate, 0, len(m.bullets))
	for _, b := range m.bullets {
		out = append(out, collision.BulletCandidate{ID: b.ID, X: b.X, Y: b.Y, Radius: b.Radius, Owner: b.Owner, Team: b.Team})
	}
	return out
}

func (m *Manager) teamOf(id uint16) uint8 {
	if a, ok := m.Agents[id]; ok {
		return a.Team
	}
	return uint8(wire.TeamNeutral)
}

// sortedAgentIDs returns agent ids in ascending order. Per-agent processing
// order within a tick is ascending id; map iteration order is not.
func (m *Manager) sortedAgentIDs() []uint16 {
	ids := make([]uint16, 0, len(m.Agents))
	for id := range m.Agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Update executes one simulation tick. The step order below is fixed;
// tests rely on it.
func (m *Manager) Update(dt float64) {
	// 1. Advance bullets; drop expired.
	for id, b := range m.bullets {
		b.Advance(dt)
		if !b.Alive() {
			delete(m.bullets, id)
		}
	}

	// 2. Per-agent internal update + strategy step, ascending id order.
	for _, id := range m.sortedAgentIDs() {
		a := m.Agents[id]
		a.preStrategyUpdate(dt, func(b *Bullet) { m.bullets[b.ID] = b })
		m.runStrategy(a, dt)
	}

	// 3. Periodic detection.
	if m.DetectionInterval == 0 || m.TickCount%m.DetectionInterval == 0 {
		candidates := m.agentCandidates()
		for _, a := range m.Agents {
			a.DetectEnemies(m.FOV.Ratio, m.FOV.Opening, m.FOV.NumRays, m.FOV.RayStepDivisor, candidates, m.teamOf)
		}
	}

	// 4. Bullet-vs-agent collisions.
	hits := collision.BulletAgentHits(m.bulletCandidates(), m.agentCandidates(), m.teamOf)
	for bulletID, agentIDs := range hits {
		b, ok := m.bullets[bulletID]
		if !ok {
			continue
		}
		for _, aid := range agentIDs {
			if a, ok := m.Agents[aid]; ok {
				a.TakeDamage(b.Damage)
				if m.Events != nil {
					m.Events.OnDamage(b.Owner, aid, b.Damage, a.Health)
				}
			}
		}
		delete(m.bullets, bulletID)
	}

	// 5. Bullet-vs-wall collisions.
	for _, bid := range collision.BulletWallHits(m.bulletCandidates(), m.Walls) {
		delete(m.bullets, bid)
	}

	// 6. Purge dead agents.
	for id, a := range m.Agents {
		if a.Alive() {
			continue
		}
		if m.Overlay != nil {
			m.onAgentDeath(a)
		}
		if m.Events != nil {
			m.Events.OnKill(id, a.Team)
		}
		delete(m.Agents, id)
		for _, other := range m.Agents {
			delete(other.DetectedSet, id)
		}
	}

	// 7. Mode overlay hook.
	if m.Overlay != nil {
		m.Overlay.Update(m, dt)
		if m.Overlay.GameOver() {
			m.IsRunning = false
			m.Winner = m.Overlay.Winner()
		}
	}

	// 8. Tick advance.
	m.TickCount++
}

// onAgentDeath is overridden by mode overlays that care about the death
// location (CTF's drop-on-death); base Manager does nothing extra.
func (m *Manager) onAgentDeath(a *Agent) {
	if hook, ok := m.Overlay.(interface{ OnAgentDeath(*Agent) }); ok {
		hook.OnAgentDeath(a)
	}
}

// runStrategy executes one agent's strategy step, catching and logging a
// panic as a strategy fault: the agent simply does nothing this tick.
func (m *Manager) runStrategy(a *Agent, dt float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("arena: strategy fault agent=%d: %v", a.ID, r)
			metrics.RecordStrategyFault()
		}
	}()
	a.strategy.Step(&agentHandle{agent: a, manager: m}, dt)
}

// AgentSnapshots returns the wire-ready entity records for the current
// agent table.
func (m *Manager) AgentSnapshots() []wire.Entity {
	out := make([]wire.Entity, 0, len(m.Agents))
	for _, a := range m.Agents {
		ammo := uint16(wire.AmmoInfinite)
		if !a.infiniteAmmo() {
			ammo = uint16(a.CurrentAmmo)
		}
		out = append(out, wire.Entity{
			ID:       a.ID,
			X:        float32(a.X),
			Y:        float32(a.Y),
			Radius:   float32(a.Radius),
			GunAngle: float32(a.GunAngle),
			Team:     a.Team,
			Health:   float32(a.Health),
			Ammo:     ammo,
		})
	}
	return out
}

// BulletSnapshots returns the wire-ready bullet records for the current
// bullet table.
func (m *Manager) BulletSnapshots() []wire.Bullet {
	out := make([]wire.Bullet, 0, len(m.bullets))
	for _, b := range m.bullets {
		out = append(out, wire.Bullet{
			ID:     b.ID,
			X:      float32(b.X),
			Y:      float32(b.Y),
			Radius: float32(b.Radius),
			Owner:  b.Owner,
			Team:   b.Team,
		})
	}
	return out
}
