package strategy

import "math"

// CTFRole is the bot's current assignment, re-derived from game state every
// Step (except escort, which latches for the duration of a carry).
type CTFRole int

const (
	CTFAttacker CTFRole = iota
	CTFCarrier
	CTFHunter
	CTFEscort
)

const (
	ctfLowHealth         = 25.0
	ctfHunterRange       = 250.0
	ctfEscortDistance    = 120.0
	ctfEscortMinDistance = 60.0
	ctfEscortLateral     = 80.0
	ctfAimTolerance      = 0.52 // ~30 degrees
	ctfCloseRange        = 150.0
)

// CTFRoleStrategy dynamically re-assigns itself one of Attacker/Carrier/
// Hunter/Escort each tick based on flag state.
type CTFRoleStrategy struct {
	ctx      CTFContext
	role     CTFRole
	isEscort *bool // nil = unassigned; latched once a teammate carries
}

// NewCTFRoleStrategy constructs a role-switching CTF policy against the
// given flag/base context.
func NewCTFRoleStrategy(ctx CTFContext) *CTFRoleStrategy {
	return &CTFRoleStrategy{ctx: ctx, role: CTFAttacker}
}

func (s *CTFRoleStrategy) Step(agent AgentAPI, dt float64) {
	if n, infinite := agent.CurrentAmmo(); !infinite && n == 0 && !agent.Reloading() {
		agent.StartReload()
	}

	s.updateRole(agent)

	switch s.role {
	case CTFCarrier:
		s.carrier(agent, dt)
	case CTFEscort:
		s.escort(agent, dt)
	case CTFHunter:
		s.hunter(agent, dt)
	default:
		s.attacker(agent, dt)
	}

	if len(agent.DetectedEnemies()) > 0 {
		s.combat(agent)
	}
}

func (s *CTFRoleStrategy) updateRole(agent AgentAPI) {
	enemyFlag := s.ctx.EnemyFlag(agent.Team())
	ownFlag := s.ctx.OwnFlag(agent.Team())

	if enemyFlag.HasCarrier && enemyFlag.CarrierID == agent.ID() {
		s.role = CTFCarrier
		return
	}

	if enemyFlag.State == FlagCarried && enemyFlag.HasCarrier {
		if carrier, ok := s.findAgent(agent, enemyFlag.CarrierID); ok && carrier.Team() == agent.Team() {
			if s.isEscort == nil {
				v := pseudoRandBool(agent.ID())
				s.isEscort = &v
			}
			if *s.isEscort {
				s.role = CTFEscort
			} else {
				s.role = CTFAttacker
			}
			return
		}
	}
	s.isEscort = nil

	if ownFlag.State == FlagCarried && ownFlag.HasCarrier {
		if carrier, ok := s.findAgent(agent, ownFlag.CarrierID); ok {
			if math.Hypot(agent.X()-carrier.X(), agent.Y()-carrier.Y()) < ctfHunterRange {
				s.role = CTFHunter
				return
			}
		} else {
			s.role = CTFAttacker
			return
		}
	}

	s.role = CTFAttacker
}

func (s *CTFRoleStrategy) findAgent(agent AgentAPI, id uint16) (AgentView, bool) {
	for _, a := range agent.Agents() {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// pseudoRandBool derives a stable escort/attacker split from an agent's id
// so the assignment holds for the life of one carry without extra state.
func pseudoRandBool(id uint16) bool {
	return id%2 == 0
}

func (s *CTFRoleStrategy) attacker(agent AgentAPI, dt float64) {
	flag := s.ctx.EnemyFlag(agent.Team())
	agent.MoveToward(dt, flag.X, flag.Y)
	if len(agent.DetectedEnemies()) == 0 {
		agent.PointGunAt(flag.X, flag.Y)
	}
}

func (s *CTFRoleStrategy) carrier(agent AgentAPI, dt float64) {
	bx, by := s.ctx.OwnBase(agent.Team())
	dist := math.Hypot(bx-agent.X(), by-agent.Y())

	if agent.Health() < ctfLowHealth && len(agent.DetectedEnemies()) > 0 {
		s.evade(agent, dt)
		return
	}
	if dist <= s.ctx.ReturnRadius() {
		if len(agent.DetectedEnemies()) == 0 {
			agent.PointGunAt(bx, by)
		}
		return
	}
	agent.MoveToward(dt, bx, by)
	if len(agent.DetectedEnemies()) == 0 {
		agent.PointGunAt(bx, by)
	}
}

func (s *CTFRoleStrategy) escort(agent AgentAPI, dt float64) {
	flag := s.ctx.EnemyFlag(agent.Team())
	if flag.State != FlagCarried || !flag.HasCarrier {
		s.isEscort = nil
		s.role = CTFAttacker
		return
	}
	carrier, ok := s.findAgent(agent, flag.CarrierID)
	if !ok || carrier.Team() != agent.Team() {
		s.isEscort = nil
		s.role = CTFAttacker
		return
	}

	bx, by := s.ctx.OwnBase(agent.Team())
	baseDX, baseDY := bx-carrier.X(), by-carrier.Y()
	baseDist := math.Hypot(baseDX, baseDY)
	if baseDist < 0.01 {
		s.isEscort = nil
		s.role = CTFAttacker
		return
	}

	baseAngle := math.Atan2(baseDY, baseDX)
	side := 1.0
	if agent.ID()%2 != 0 {
		side = -1.0
	}
	lateral := baseAngle + (math.Pi/2)*side
	targetX := carrier.X() + math.Cos(lateral)*ctfEscortLateral
	targetY := carrier.Y() + math.Sin(lateral)*ctfEscortLateral

	distToCarrier := math.Hypot(agent.X()-carrier.X(), agent.Y()-carrier.Y())
	switch {
	case distToCarrier < ctfEscortMinDistance:
		agent.Move(dt, AngleToDirection(math.Atan2(agent.Y()-carrier.Y(), agent.X()-carrier.X())))
	default:
		agent.MoveToward(dt, targetX, targetY)
	}

	if len(agent.DetectedEnemies()) == 0 {
		agent.PointGunAt(carrier.X()+baseDX*0.5, carrier.Y()+baseDY*0.5)
	}
}

func (s *CTFRoleStrategy) hunter(agent AgentAPI, dt float64) {
	ownFlag := s.ctx.OwnFlag(agent.Team())
	if ownFlag.State != FlagCarried {
		s.role = CTFAttacker
		return
	}
	carrier, ok := s.findAgent(agent, ownFlag.CarrierID)
	if !ok {
		s.role = CTFAttacker
		return
	}
	agent.MoveToward(dt, carrier.X(), carrier.Y())
	agent.PointGunAt(carrier.X(), carrier.Y())
	if n, infinite := agent.CurrentAmmo(); (infinite || n > 0) && !agent.Reloading() {
		agent.RequestFire()
	}
}

func (s *CTFRoleStrategy) combat(agent AgentAPI) {
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

func (s *CTFRoleStrategy) evade(agent AgentAPI, dt float64) {
	targetID, ok := agent.ClosestEnemy()
	if !ok {
		return
	}
	enemy, ok := s.findAgent(agent, targetID)
	if !ok {
		return
	}
	dx := agent.X() - enemy.X()
	dy := agent.Y() - enemy.Y()
	awayAngle := math.Atan2(dy, dx)
	side := 1.0
	if agent.ID()%2 == 0 {
		side = -1.0
	}
	agent.Move(dt, AngleToDirection(awayAngle+math.Pi/4*side))
}

func normalizeAngle(a float64) float64 {
	const twoPi = 2 * math.Pi
	a = math.Mod(a, twoPi)
	if a > math.Pi {
		a -= twoPi
	}
	if a < -math.Pi {
		a += twoPi
	}
	return a
}
