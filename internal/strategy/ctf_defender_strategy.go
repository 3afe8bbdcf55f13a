package strategy

import (
	"math"
	"math/rand"
)

const (
	defenderPatrolRadius = 120.0
	defenderTightRadius  = 80.0
	defenderHunterRadius = 400.0
	defenderChangeDirInt = 0.6
)

// CTFBaseDefenderStrategy patrols its own base, immediately retrieves a
// dropped own flag, hunts a carrier that took it, and falls back to
// attacker behavior if it is the last agent alive on its team.
type CTFBaseDefenderStrategy struct {
	ctx       CTFContext
	patrolDir Direction
	dirTimer  float64
}

// NewCTFBaseDefenderStrategy constructs a base-defense policy against the
// given flag/base context.
func NewCTFBaseDefenderStrategy(ctx CTFContext) *CTFBaseDefenderStrategy {
	return &CTFBaseDefenderStrategy{ctx: ctx, patrolDir: allDirections[rand.Intn(len(allDirections))]}
}

func (s *CTFBaseDefenderStrategy) Step(agent AgentAPI, dt float64) {
	if n, infinite := agent.CurrentAmmo(); !infinite && n == 0 && !agent.Reloading() {
		agent.StartReload()
	}

	if s.isAlone(agent) {
		s.attacker(agent, dt)
	} else {
		s.defend(agent, dt)
	}

	if len(agent.DetectedEnemies()) > 0 {
		s.combat(agent)
	}
}

func (s *CTFBaseDefenderStrategy) isAlone(agent AgentAPI) bool {
	teammatesAlive := 0
	for _, a := range agent.Agents() {
		if a.Team() == agent.Team() && a.Alive() {
			teammatesAlive++
		}
	}
	return teammatesAlive <= 1
}

func (s *CTFBaseDefenderStrategy) defend(agent AgentAPI, dt float64) {
	ownFlag := s.ctx.OwnFlag(agent.Team())
	bx, by := s.ctx.OwnBase(agent.Team())

	if ownFlag.State == FlagDropped {
		agent.MoveToward(dt, ownFlag.X, ownFlag.Y)
		if len(agent.DetectedEnemies()) == 0 {
			agent.PointGunAt(ownFlag.X, ownFlag.Y)
		}
		return
	}

	if ownFlag.State == FlagCarried && ownFlag.HasCarrier {
		if carrier, ok := s.findAgent(agent, ownFlag.CarrierID); ok {
			if math.Hypot(carrier.X()-agent.X(), carrier.Y()-agent.Y()) <= defenderHunterRadius {
				agent.MoveToward(dt, carrier.X(), carrier.Y())
				agent.PointGunAt(carrier.X(), carrier.Y())
				if n, infinite := agent.CurrentAmmo(); (infinite || n > 0) && !agent.Reloading() {
					agent.RequestFire()
				}
				return
			}
		}
	}

	patrolRadius := defenderPatrolRadius
	if ownFlag.State == FlagAtBase {
		patrolRadius = defenderTightRadius
	}
	distToBase := math.Hypot(agent.X()-bx, agent.Y()-by)
	if distToBase > patrolRadius {
		agent.MoveToward(dt, bx, by)
		if len(agent.DetectedEnemies()) == 0 {
			agent.PointGunAt(bx, by)
		}
		return
	}

	s.dirTimer += dt
	if s.dirTimer >= defenderChangeDirInt {
		s.patrolDir = allDirections[rand.Intn(len(allDirections))]
		s.dirTimer = 0
	}
	agent.Move(dt, s.patrolDir)
	if kind, _, blocked := agent.Blocked(); blocked && kind != ObstacleNone {
		s.patrolDir = allDirections[rand.Intn(len(allDirections))]
		agent.Move(dt, s.patrolDir)
	}

	if len(agent.DetectedEnemies()) == 0 {
		ex, ey := s.ctx.EnemyBase(agent.Team())
		agent.PointGunAt(ex, ey)
	}
}

func (s *CTFBaseDefenderStrategy) attacker(agent AgentAPI, dt float64) {
	enemyFlag := s.ctx.EnemyFlag(agent.Team())
	if enemyFlag.HasCarrier && enemyFlag.CarrierID == agent.ID() {
		bx, by := s.ctx.OwnBase(agent.Team())
		if math.Hypot(bx-agent.X(), by-agent.Y()) <= s.ctx.ReturnRadius() {
			if len(agent.DetectedEnemies()) == 0 {
				agent.PointGunAt(bx, by)
			}
			return
		}
		agent.MoveToward(dt, bx, by)
		if len(agent.DetectedEnemies()) == 0 {
			agent.PointGunAt(bx, by)
		}
		return
	}

	agent.MoveToward(dt, enemyFlag.X, enemyFlag.Y)
	if len(agent.DetectedEnemies()) == 0 {
		agent.PointGunAt(enemyFlag.X, enemyFlag.Y)
	}
}

func (s *CTFBaseDefenderStrategy) combat(agent AgentAPI) {
	targetID, ok := agent.ClosestEnemy()
	if !ok {
		return
	}
	target, ok := s.findAgent(agent, targetID)
	if !ok {
		return
	}
	dx := target.X() - agent.X()
	dy := target.Y() - agent.Y()
	dist := math.Hypot(dx, dy)
	agent.PointGunAt(target.X(), target.Y())

	n, infinite := agent.CurrentAmmo()
	if (!infinite && n == 0) || agent.Reloading() {
		return
	}
	angleDiff := normalizeAngle(math.Atan2(dy, dx) - agent.GunAngle())
	if math.Abs(angleDiff) < ctfAimTolerance || dist < ctfCloseRange {
		agent.RequestFire()
	}
}

func (s *CTFBaseDefenderStrategy) findAgent(agent AgentAPI, id uint16) (AgentView, bool) {
	for _, a := range agent.Agents() {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}
