package arena

import (
	"math"

	"fight-club/internal/collision"
	"fight-club/internal/strategy"
	"fight-club/internal/walls"
)

// maxEntityID mirrors the wire-level 16-bit id space; ids wrap modulo this+1.
const maxEntityID = 65535

// AmmoInfinite is the sentinel for unlimited ammunition.
const AmmoInfinite = -1

// noShoot is the ShootTimer idle value.
const noShoot = -1.0

// Blocked describes the obstacle (if any) that stopped an agent's last move.
type Blocked struct {
	Kind collision.ObstacleKind
	ID   uint16
}

// Agent is the server-authoritative combatant: position, gun orientation,
// health, magazine/reload state, and FOV perception.
type Agent struct {
	ID       uint16
	X, Y     float64
	Radius   float64
	Team     uint8
	GunAngle float64

	TargetGunAngle float64
	Health         float64
	MaxHealth      float64
	Damage         float64
	Speed          float64

	MagazineSize int // 0 means infinite, matching AmmoInfinite's contract
	CurrentAmmo  int // meaningful only if MagazineSize > 0
	ReloadTimer  float64
	Reloading    bool
	ReloadTime   float64

	ShootCooldown    float64
	ShootTimer       float64
	GunRotationSpeed float64
	BulletSpeed      float64
	BulletLifetime   float64
	BulletRadius     float64
	FireOffset       float64

	TimeAlive   float64
	DetectedSet map[uint16]struct{}
	blocked     *Blocked

	strategy strategy.Strategy

	// The agent holds the wall grid directly but never the manager: peers
	// and the bullet sink are handed in per call, keeping ownership with
	// the manager's tables.
	walls *walls.Grid
}

var nextAgentID uint32

func allocAgentID() uint16 {
	id := uint16(nextAgentID % (maxEntityID + 1))
	nextAgentID++
	return id
}

// AgentConfig groups the spawn-time tunables a game manager reads from its
// configuration.
type AgentConfig struct {
	Health           float64
	Damage           float64
	Speed            float64
	ShootCooldown    float64
	MagazineSize     int // 0 = infinite
	ReloadDuration   float64
	GunRotationSpeed float64
	Radius           float64
	BulletSpeed      float64
	BulletLifetime   float64
	BulletRadius     float64
	FireOffset       float64
}

// NewAgent constructs an agent at (x,y) for the given team. When gunAngle is
// nil the initial angle is picked from the map half: 0 (east) for the west
// half, pi (west) for the east half, so spawns face the opposing side.
func NewAgent(x, y float64, team uint8, gunAngle *float64, mapWidth float64, cfg AgentConfig, w *walls.Grid, strat strategy.Strategy) *Agent {
	angle := 0.0
	if gunAngle != nil {
		angle = *gunAngle
	} else if x >= mapWidth/2 {
		angle = math.Pi
	}

	a := &Agent{
		ID:               allocAgentID(),
		X:                x,
		Y:                y,
		Radius:           cfg.Radius,
		Team:             team,
		GunAngle:         angle,
		TargetGunAngle:   angle,
		Health:           cfg.Health,
		MaxHealth:        cfg.Health,
		Damage:           cfg.Damage,
		Speed:            cfg.Speed,
		MagazineSize:     cfg.MagazineSize,
		ReloadTime:       cfg.ReloadDuration,
		ShootCooldown:    cfg.ShootCooldown,
		ShootTimer:       noShoot,
		GunRotationSpeed: cfg.GunRotationSpeed,
		BulletSpeed:      cfg.BulletSpeed,
		BulletLifetime:   cfg.BulletLifetime,
		BulletRadius:     cfg.BulletRadius,
		FireOffset:       cfg.FireOffset,
		DetectedSet:      make(map[uint16]struct{}),
		strategy:         strat,
		walls:            w,
	}
	if a.MagazineSize > 0 {
		a.CurrentAmmo = a.MagazineSize
	}
	return a
}

// Alive reports whether the agent's health is still positive.
func (a *Agent) Alive() bool { return a.Health > 0 }

// infiniteAmmo reports whether this agent never needs to reload.
func (a *Agent) infiniteAmmo() bool { return a.MagazineSize <= 0 }

// preStrategyUpdate runs the fixed internal systems (age, gun rotation,
// weapon cooldown, reload) before the strategy executes. bulletSink receives
// any bullet fired this step; the manager owns the bullet table, so the
// agent never holds one.
func (a *Agent) preStrategyUpdate(dt float64, bulletSink func(*Bullet)) {
	a.TimeAlive += dt
	a.rotateGunTowardTarget(dt)

	if a.ShootTimer >= 0 {
		a.ShootTimer -= dt
		if a.ShootTimer <= 0 {
			a.fireBullet(bulletSink)
		}
	}

	if !a.infiniteAmmo() && a.Reloading {
		a.ReloadTimer -= dt
		if a.ReloadTimer <= 0 {
			a.CurrentAmmo = a.MagazineSize
			a.Reloading = false
			a.ReloadTimer = 0
		}
	}
}

func (a *Agent) rotateGunTowardTarget(dt float64) {
	delta := a.TargetGunAngle - a.GunAngle
	for delta > math.Pi {
		delta -= 2 * math.Pi
	}
	for delta < -math.Pi {
		delta += 2 * math.Pi
	}
	maxRotation := a.GunRotationSpeed * dt
	step := math.Min(math.Abs(delta), maxRotation)
	a.GunAngle += math.Copysign(step, delta)
}

// Move attempts to move one direction-step. An obstructed move leaves the
// position unchanged and records the obstacle; a clear move commits and
// clears it.
func (a *Agent) Move(dt float64, dir strategy.Direction, agents []collision.AgentCandidate) {
	dx, dy := strategy.DirectionVector(dir)
	newX := a.X + dx*a.Speed*dt
	newY := a.Y + dy*a.Speed*dt

	kind, obstacleID := collision.ValidateMove(newX, newY, a.Radius, agents, a.walls, a.ID)
	if kind == collision.None {
		a.X, a.Y = newX, newY
		a.blocked = nil
		return
	}
	a.blocked = &Blocked{Kind: kind, ID: obstacleID}
}

// MoveToward picks the best 4-way axis direction toward (tx,ty) and moves.
func (a *Agent) MoveToward(dt, tx, ty float64, agents []collision.AgentCandidate) {
	dx := tx - a.X
	dy := ty - a.Y
	var dir strategy.Direction
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			dir = strategy.East
		} else {
			dir = strategy.West
		}
	} else {
		if dy > 0 {
			dir = strategy.North
		} else {
			dir = strategy.South
		}
	}
	a.Move(dt, dir, agents)
}

// PointGunAt sets the target gun angle toward (tx,ty); the gun rotates
// smoothly on subsequent ticks via rotateGunTowardTarget.
func (a *Agent) PointGunAt(tx, ty float64) {
	dx := tx - a.X
	dy := ty - a.Y
	a.TargetGunAngle = math.Atan2(-dy, dx)
}

// RequestFire ("load bullet"): starts the shoot cooldown if idle and able to
// fire, else starts a reload if out of ammo.
func (a *Agent) RequestFire() {
	if !a.infiniteAmmo() && a.Reloading {
		return
	}
	if a.infiniteAmmo() || a.CurrentAmmo > 0 {
		if a.ShootTimer == noShoot {
			a.ShootTimer = a.ShootCooldown
		}
		return
	}
	a.StartReload()
}

// StartReload begins a reload if not already reloading and ammo is finite.
func (a *Agent) StartReload() {
	if a.infiniteAmmo() || a.Reloading {
		return
	}
	a.Reloading = true
	a.ReloadTimer = a.ReloadTime
}

func (a *Agent) fireBullet(sink func(*Bullet)) {
	offset := a.Radius + a.FireOffset
	spawnX := a.X + math.Cos(a.GunAngle)*offset
	spawnY := a.Y - math.Sin(a.GunAngle)*offset

	b := NewBullet(spawnX, spawnY, a.BulletSpeed, a.GunAngle, a.ID, a.Team, a.Damage, a.BulletLifetime, a.BulletRadius)
	sink(b)

	a.ShootTimer = noShoot
	if !a.infiniteAmmo() {
		a.CurrentAmmo--
		if a.CurrentAmmo <= 0 {
			a.StartReload()
		}
	}
}

// TakeDamage clamps health to [0, +inf).
func (a *Agent) TakeDamage(amount float64) {
	a.Health -= amount
	if a.Health < 0 {
		a.Health = 0
	}
}

// DetectEnemies runs the FOV cone ray-cast and refreshes DetectedSet,
// returning the newly detected id set for convenience.
func (a *Agent) DetectEnemies(fovRatio, fovOpening float64, numRays int, rayStepDivisor float64, all []collision.AgentCandidate, teamOf func(id uint16) uint8) map[uint16]struct{} {
	fovRadius := fovRatio * a.Radius
	candidates := collision.FilterFOVCandidates(a.X, a.Y, fovRadius, all, a.ID)
	step := float64(a.walls.GridUnit) / rayStepDivisor

	startAngle := a.GunAngle - fovOpening/2
	angleStep := fovOpening / float64(numRays)

	detected := make(map[uint16]struct{})
	for i := 0; i <= numRays; i++ {
		angle := startAngle + float64(i)*angleStep
		hit := collision.CastRay(a.X, a.Y, angle, fovRadius, step, a.walls, candidates)
		if hit.HitAgent && teamOf(hit.AgentID) != a.Team {
			detected[hit.AgentID] = struct{}{}
		}
	}
	a.DetectedSet = detected
	return detected
}

// Blocked returns the obstacle from the agent's last failed move, if any.
func (a *Agent) Blocked() *Blocked { return a.blocked }
