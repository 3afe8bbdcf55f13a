package strategy

import (
	"math"
	"math/rand"
)

const (
	aggressiveChangeDirInterval = 0.5
	aggressiveRetreatHealth     = 25.0
)

// AggressiveStrategy hunts the closest visible enemy: rushes when far,
// circle-strafes at medium range, retreats while still shooting when low on
// health, and searches in a wandering direction otherwise.
type AggressiveStrategy struct {
	searchDir Direction
	timer     float64
}

// NewAggressiveStrategy constructs an AggressiveStrategy with a random
// initial search heading.
func NewAggressiveStrategy() *AggressiveStrategy {
	return &AggressiveStrategy{searchDir: allDirections[rand.Intn(len(allDirections))]}
}

func (s *AggressiveStrategy) Step(agent AgentAPI, dt float64) {
	if n, infinite := agent.CurrentAmmo(); !infinite && n == 0 && !agent.Reloading() {
		agent.StartReload()
	}

	if len(agent.DetectedEnemies()) > 0 {
		s.combat(agent, dt)
		return
	}
	s.search(agent, dt)
}

func (s *AggressiveStrategy) combat(agent AgentAPI, dt float64) {
	targetID, ok := agent.ClosestEnemy()
	if !ok {
		return
	}
	var target AgentView
	for _, a := range agent.Agents() {
		if a.ID() == targetID {
			target = a
			break
		}
	}
	if target == nil {
		return
	}

	agent.PointGunAt(target.X(), target.Y())
	if n, infinite := agent.CurrentAmmo(); infinite || n > 0 {
		if !agent.Reloading() {
			agent.RequestFire()
		}
	}

	dx := target.X() - agent.X()
	dy := target.Y() - agent.Y()
	distance := math.Hypot(dx, dy)

	switch {
	case agent.Health() < aggressiveRetreatHealth && distance < 200:
		retreatAngle := math.Atan2(-dy, -dx)
		agent.Move(dt, AngleToDirection(retreatAngle))
	case distance > 100:
		agent.MoveToward(dt, target.X(), target.Y())
	default:
		angleToEnemy := math.Atan2(dy, dx)
		strafe := angleToEnemy + math.Pi/2
		if rand.Float64() < 0.1 {
			strafe += math.Pi
		}
		agent.Move(dt, AngleToDirection(strafe))
	}
}

func (s *AggressiveStrategy) search(agent AgentAPI, dt float64) {
	s.timer += dt
	if s.timer >= aggressiveChangeDirInterval {
		s.searchDir = allDirections[rand.Intn(len(allDirections))]
		s.timer = 0
	}
	agent.Move(dt, s.searchDir)

	if kind, _, blocked := agent.Blocked(); blocked && kind != ObstacleNone {
		s.searchDir = allDirections[rand.Intn(len(allDirections))]
		agent.Move(dt, s.searchDir)
	}
}
