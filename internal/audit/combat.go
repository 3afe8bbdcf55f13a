package audit

import "strconv"

// CombatSink adapts a Log to arena.EventSink without audit importing arena
// (arena stays free of any observability dependency, matching the
// agent-context pattern used throughout this codebase for cross-package
// wiring). Constructed once per match and handed to arena.Manager.Events.
type CombatSink struct {
	log     *Log
	tickNum func() uint64
}

// NewCombatSink builds a sink that stamps every emitted event with the
// match's current tick via tickNum.
func NewCombatSink(log *Log, tickNum func() uint64) *CombatSink {
	return &CombatSink{log: log, tickNum: tickNum}
}

// OnDamage implements arena.EventSink.
func (s *CombatSink) OnDamage(attackerID, victimID uint16, damage, victimHealth float64) {
	s.log.EmitSimple(EventDamage, s.tickNum(), strconv.Itoa(int(attackerID)), DamagePayload{
		AttackerID: attackerID,
		VictimID:   victimID,
		Damage:     damage,
		VictimHP:   victimHealth,
	})
}

// OnKill implements arena.EventSink.
func (s *CombatSink) OnKill(victimID uint16, team uint8) {
	s.log.EmitSimple(EventKill, s.tickNum(), strconv.Itoa(int(victimID)), KillPayload{
		VictimID: victimID,
		Team:     team,
	})
}
