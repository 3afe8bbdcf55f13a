package arena

import (
	"testing"

	"fight-club/internal/strategy"
	"fight-club/internal/wire"
)

// recordingSink captures OnDamage/OnKill calls for assertions.
type recordingSink struct {
	damages []string
	kills   []uint16
}

func (s *recordingSink) OnDamage(attackerID, victimID uint16, damage, victimHealth float64) {
	s.damages = append(s.damages, "hit")
}

func (s *recordingSink) OnKill(victimID uint16, team uint8) {
	s.kills = append(s.kills, victimID)
}

// fireEastStrategy always points its gun east and fires every tick it can;
// used to drive scenario 1's straight-line duel deterministically.
type fireEastStrategy struct{ targetX, targetY float64 }

func (s fireEastStrategy) Step(a strategy.AgentAPI, dt float64) {
	a.PointGunAt(s.targetX, s.targetY)
	a.RequestFire()
}

// Two agents face each other down a clear lane, infinite
// ammo, and fire on cooldown; after enough simulated time one dies and the
// other's team wins, with the death reported through the event sink. Team B
// holds fire (noopStrategy) so the outcome is deterministic rather than
// depending on which of two perfectly symmetric duelists the simulation
// happens to kill first.
func TestDeathmatchStraightLineOneSideWins(t *testing.T) {
	overlay := NewSurvivalOverlay()
	m := newTestManager(overlay)
	sink := &recordingSink{}
	m.Events = sink

	cfg := testAgentConfig()
	cfg.MagazineSize = 0 // infinite ammo

	east := 0.0
	a := NewAgent(100, 360, uint8(wire.TeamA), &east, 1000, cfg, m.Walls, fireEastStrategy{targetX: 300, targetY: 360})
	b := NewAgent(300, 360, uint8(wire.TeamB), nil, 1000, cfg, m.Walls, noopStrategy{})
	m.Agents[a.ID] = a
	m.Agents[b.ID] = b

	dt := 1.0 / 60
	maxTicks := int(6.0 / dt) // generous bound around the ~3.2s spec estimate
	for i := 0; i < maxTicks && m.IsRunning; i++ {
		m.Update(dt)
	}

	if m.IsRunning {
		t.Fatal("expected the match to end within the simulated bound")
	}
	if m.Winner != uint8(wire.TeamA) {
		t.Fatalf("expected team A to win, got winner=%d", m.Winner)
	}
	if len(m.Agents) != 1 {
		t.Fatalf("expected exactly one survivor, got %d", len(m.Agents))
	}
	if len(sink.kills) == 0 {
		t.Fatal("expected OnKill to fire for the losing agent")
	}
	if len(sink.damages) == 0 {
		t.Fatal("expected OnDamage to fire at least once")
	}
}

// TickCount strictly increases by exactly one per Update call.
func TestTickCountIncrementsByOne(t *testing.T) {
	m := newTestManager(NewSurvivalOverlay())
	for i := uint64(0); i < 5; i++ {
		if m.TickCount != i {
			t.Fatalf("tick %d: TickCount = %d, want %d", i, m.TickCount, i)
		}
		m.Update(1.0 / 60)
	}
}

// Two agents moving toward each other in the same
// tick: the lower-id agent (processed first) commits its move; the
// higher-id agent's move is then blocked by the now-closer lower-id agent.
func TestPerAgentOrderLowerIDMovesFirst(t *testing.T) {
	m := newTestManager(NewSurvivalOverlay())
	cfg := testAgentConfig()
	cfg.Speed = 120 // 2px at dt=1/60, matching the gap chosen below

	lo := NewAgent(100, 100, uint8(wire.TeamA), nil, 1000, cfg, m.Walls, noopStrategy{})
	hi := NewAgent(100+2*cfg.Radius+3, 100, uint8(wire.TeamA), nil, 1000, cfg, m.Walls, noopStrategy{})
	if hi.ID < lo.ID {
		lo, hi = hi, lo
	}
	m.Agents[lo.ID] = lo
	m.Agents[hi.ID] = hi

	dt := 1.0 / 60
	for _, id := range m.sortedAgentIDs() {
		a := m.Agents[id]
		if a.ID == lo.ID {
			a.Move(dt, strategy.East, m.agentCandidates()) // toward hi
		} else {
			a.Move(dt, strategy.West, m.agentCandidates()) // toward lo
		}
	}

	if lo.Blocked() != nil {
		t.Fatalf("lower-id agent should move unobstructed, got blocked=%v", lo.Blocked())
	}
	if hi.Blocked() == nil {
		t.Fatal("higher-id agent should be blocked by the lower-id agent's new position")
	}
}
