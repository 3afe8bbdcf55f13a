package strategy

import (
	"math"
	"math/rand"
)

// ZoneShape selects the hill-zone geometry a KOTHZoneHoldStrategy rushes and
// holds. Mirrors the KOTH overlay's own zone shape (arena.KOTHZoneShape);
// duplicated here (not imported) to keep strategy cycle-free.
type ZoneShape uint8

const (
	ZoneCircle ZoneShape = iota
	ZoneRect
)

// ZoneConfig is the read-only zone geometry passed to
// NewKOTHZoneHoldStrategy at construction; the strategy package has no
// dependency on the KOTH overlay's config type.
type ZoneConfig struct {
	Shape            ZoneShape
	CenterX, CenterY float64
	Radius           float64
	RectX, RectY     float64
	RectW, RectH     float64
}

const (
	kothOrbitRadius       = 80.0
	kothLowHealth         = 20.0
	kothChangeDirInterval = 0.8
)

// KOTHZoneHoldStrategy rushes to the hill zone, then holds/patrols it while
// shooting visible enemies, retreating only at critically low health.
type KOTHZoneHoldStrategy struct {
	zone      ZoneConfig
	patrolDir Direction
	dirTimer  float64
}

// NewKOTHZoneHoldStrategy constructs a zone-hold policy for the given zone
// geometry.
func NewKOTHZoneHoldStrategy(zone ZoneConfig) *KOTHZoneHoldStrategy {
	return &KOTHZoneHoldStrategy{zone: zone, patrolDir: allDirections[rand.Intn(len(allDirections))]}
}

func (s *KOTHZoneHoldStrategy) inZone(agent AgentAPI) bool {
	switch s.zone.Shape {
	case ZoneCircle:
		dx := agent.X() - s.zone.CenterX
		dy := agent.Y() - s.zone.CenterY
		return dx*dx+dy*dy <= s.zone.Radius*s.zone.Radius
	case ZoneRect:
		return agent.X() >= s.zone.RectX && agent.X() <= s.zone.RectX+s.zone.RectW &&
			agent.Y() >= s.zone.RectY && agent.Y() <= s.zone.RectY+s.zone.RectH
	}
	return false
}

func (s *KOTHZoneHoldStrategy) Step(agent AgentAPI, dt float64) {
	if n, infinite := agent.CurrentAmmo(); !infinite && n == 0 && !agent.Reloading() {
		agent.StartReload()
	}

	if agent.Health() < kothLowHealth {
		s.retreat(agent, dt)
		return
	}

	if targetID, ok := agent.ClosestEnemy(); ok {
		for _, a := range agent.Agents() {
			if a.ID() == targetID {
				agent.PointGunAt(a.X(), a.Y())
				if n, infinite := agent.CurrentAmmo(); (infinite || n > 0) && !agent.Reloading() {
					agent.RequestFire()
				}
				break
			}
		}
	}

	if !s.inZone(agent) {
		agent.MoveToward(dt, s.zone.CenterX, s.zone.CenterY)
		if len(agent.DetectedEnemies()) == 0 {
			agent.PointGunAt(s.zone.CenterX, s.zone.CenterY)
		}
		return
	}
	s.hold(agent, dt)
}

func (s *KOTHZoneHoldStrategy) hold(agent AgentAPI, dt float64) {
	dx := s.zone.CenterX - agent.X()
	dy := s.zone.CenterY - agent.Y()
	if math.Hypot(dx, dy) > kothOrbitRadius {
		agent.MoveToward(dt, s.zone.CenterX, s.zone.CenterY)
		return
	}

	s.dirTimer += dt
	if s.dirTimer >= kothChangeDirInterval {
		s.patrolDir = allDirections[rand.Intn(len(allDirections))]
		s.dirTimer = 0
	}
	agent.Move(dt, s.patrolDir)
	if kind, _, blocked := agent.Blocked(); blocked && kind != ObstacleNone {
		s.patrolDir = allDirections[rand.Intn(len(allDirections))]
		agent.Move(dt, s.patrolDir)
	}
}

func (s *KOTHZoneHoldStrategy) retreat(agent AgentAPI, dt float64) {
	if targetID, ok := agent.ClosestEnemy(); ok {
		for _, a := range agent.Agents() {
			if a.ID() == targetID {
				dx := agent.X() - a.X()
				dy := agent.Y() - a.Y()
				agent.Move(dt, AngleToDirection(math.Atan2(dy, dx)))
				agent.PointGunAt(a.X(), a.Y())
				if n, infinite := agent.CurrentAmmo(); (infinite || n > 0) && !agent.Reloading() {
					agent.RequestFire()
				}
				return
			}
		}
	}
	dx := agent.X() - s.zone.CenterX
	dy := agent.Y() - s.zone.CenterY
	agent.Move(dt, AngleToDirection(math.Atan2(dy, dx)))
}
