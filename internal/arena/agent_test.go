package arena

import (
	"math"
	"testing"

	"fight-club/internal/collision"
	"fight-club/internal/strategy"
	"fight-club/internal/walls"
	"fight-club/internal/wire"
)

// A wall column between two agents blocks the FOV ray-cast;
// removing the wall makes the enemy visible on the next detection pass.
func TestDetectEnemiesWallBlocksFOV(t *testing.T) {
	w := walls.NewGrid(10, 1000, 1000)
	m := NewManager(w, 1, FOVConfig{Ratio: 50, Opening: 0.6, NumRays: 8, RayStepDivisor: 2}, NewSurvivalOverlay())

	cfg := testAgentConfig()
	east := 0.0
	a := NewAgent(100, 100, uint8(wire.TeamA), &east, 1000, cfg, w, noopStrategy{})
	b := NewAgent(500, 100, uint8(wire.TeamB), nil, 1000, cfg, w, noopStrategy{})
	m.Agents[a.ID] = a
	m.Agents[b.ID] = b

	// Full-height wall column at x in [300,310), tall enough that every ray of
	// the cone crosses it before reaching the far agent.
	w.AddRect(30, 0, 1, 30, false)

	detected := a.DetectEnemies(m.FOV.Ratio, m.FOV.Opening, m.FOV.NumRays, m.FOV.RayStepDivisor, m.agentCandidates(), m.teamOf)
	if _, ok := detected[b.ID]; ok {
		t.Fatal("enemy behind a wall must not be detected")
	}

	w.ClearRect(30, 0, 1, 30, false)

	detected = a.DetectEnemies(m.FOV.Ratio, m.FOV.Opening, m.FOV.NumRays, m.FOV.RayStepDivisor, m.agentCandidates(), m.teamOf)
	if _, ok := detected[b.ID]; !ok {
		t.Fatal("enemy must be detected once the wall is removed")
	}
}

// Same-team agents never enter DetectedSet even when a ray terminates on them.
func TestDetectEnemiesIgnoresTeammates(t *testing.T) {
	w := walls.NewGrid(10, 1000, 1000)
	m := NewManager(w, 1, FOVConfig{Ratio: 50, Opening: 0.6, NumRays: 8, RayStepDivisor: 2}, NewSurvivalOverlay())

	cfg := testAgentConfig()
	east := 0.0
	a := NewAgent(100, 100, uint8(wire.TeamA), &east, 1000, cfg, w, noopStrategy{})
	mate := NewAgent(300, 100, uint8(wire.TeamA), nil, 1000, cfg, w, noopStrategy{})
	m.Agents[a.ID] = a
	m.Agents[mate.ID] = mate

	detected := a.DetectEnemies(m.FOV.Ratio, m.FOV.Opening, m.FOV.NumRays, m.FOV.RayStepDivisor, m.agentCandidates(), m.teamOf)
	if len(detected) != 0 {
		t.Fatalf("teammates must not be detected, got %v", detected)
	}
}

// Moving into a wall leaves the position unchanged and records the wall as
// the blocking obstacle.
func TestMoveIntoWallSetsBlocked(t *testing.T) {
	w := walls.NewGrid(32, 1000, 1000)
	w.AddWall(4, 3, false) // x in [128,160), y in [96,128)

	cfg := testAgentConfig()
	a := NewAgent(110, 112, uint8(wire.TeamA), nil, 1000, cfg, w, noopStrategy{})

	a.Move(1.0/60, strategy.East, nil)

	if a.X != 110 || a.Y != 112 {
		t.Fatalf("position must not commit on a wall collision, got (%v,%v)", a.X, a.Y)
	}
	b := a.Blocked()
	if b == nil || b.Kind != collision.Wall {
		t.Fatalf("expected blocked by wall, got %+v", b)
	}

	// A subsequent unobstructed move clears the blocked marker.
	a.Move(1.0/60, strategy.West, nil)
	if a.Blocked() != nil {
		t.Fatalf("blocked must clear after a successful move, got %+v", a.Blocked())
	}
}

// CurrentAmmo stays within [0, MagazineSize], an empty magazine triggers a
// reload, no bullet spawns while reloading, and the reload refills the
// magazine.
func TestMagazineReloadCycle(t *testing.T) {
	w := walls.NewGrid(32, 1000, 1000)
	cfg := testAgentConfig()
	cfg.MagazineSize = 1
	cfg.ShootCooldown = 0.1
	cfg.ReloadDuration = 0.5

	a := NewAgent(100, 100, uint8(wire.TeamA), nil, 1000, cfg, w, noopStrategy{})
	if a.CurrentAmmo != 1 {
		t.Fatalf("magazine should start full, got %d", a.CurrentAmmo)
	}

	var fired []*Bullet
	sink := func(b *Bullet) { fired = append(fired, b) }

	a.RequestFire()
	if a.ShootTimer != cfg.ShootCooldown {
		t.Fatalf("RequestFire should arm the cooldown, got %v", a.ShootTimer)
	}

	a.preStrategyUpdate(0.05, sink)
	if len(fired) != 0 {
		t.Fatal("bullet must not spawn before the cooldown elapses")
	}
	a.preStrategyUpdate(0.05, sink)
	if len(fired) != 1 {
		t.Fatalf("expected exactly one bullet after the cooldown, got %d", len(fired))
	}
	if a.CurrentAmmo != 0 {
		t.Fatalf("magazine should be empty after firing, got %d", a.CurrentAmmo)
	}
	if !a.Reloading {
		t.Fatal("an emptied magazine must start a reload")
	}

	// Firing while reloading is silently ignored and spawns nothing.
	a.RequestFire()
	if a.ShootTimer != noShoot {
		t.Fatalf("RequestFire during reload must not arm the cooldown, got %v", a.ShootTimer)
	}
	a.preStrategyUpdate(0.1, sink)
	if len(fired) != 1 {
		t.Fatal("no bullet may spawn while reloading")
	}

	// Finish the reload (0.15s already elapsed above: 0.05s in the firing
	// step plus 0.1s).
	a.preStrategyUpdate(0.4, sink)
	if a.Reloading {
		t.Fatal("reload should complete once the timer elapses")
	}
	if a.CurrentAmmo != cfg.MagazineSize {
		t.Fatalf("reload must refill the magazine, got %d", a.CurrentAmmo)
	}
}

// The gun rotates toward the target angle at most rotationSpeed*dt per
// tick, along the shorter arc.
func TestGunRotationClampedPerTick(t *testing.T) {
	w := walls.NewGrid(32, 1000, 1000)
	cfg := testAgentConfig()
	cfg.GunRotationSpeed = 1.0

	east := 0.0
	a := NewAgent(100, 100, uint8(wire.TeamA), &east, 1000, cfg, w, noopStrategy{})
	a.TargetGunAngle = math.Pi

	a.preStrategyUpdate(0.1, func(*Bullet) {})
	if math.Abs(a.GunAngle-0.1) > 1e-9 {
		t.Fatalf("gun should rotate exactly rotationSpeed*dt, got %v", a.GunAngle)
	}
}

// PointGunAt uses the Y-inverted angle convention shared with the bullet
// velocity and FOV ray-cast.
func TestPointGunAtYInversion(t *testing.T) {
	w := walls.NewGrid(32, 1000, 1000)
	a := NewAgent(100, 100, uint8(wire.TeamA), nil, 1000, testAgentConfig(), w, noopStrategy{})

	a.PointGunAt(200, 100) // due east
	if math.Abs(a.TargetGunAngle) > 1e-9 {
		t.Fatalf("aiming east should target angle 0, got %v", a.TargetGunAngle)
	}
	a.PointGunAt(100, 200) // due north, mirrored Y
	if math.Abs(a.TargetGunAngle+math.Pi/2) > 1e-9 {
		t.Fatalf("aiming north should target -pi/2 under the mirrored convention, got %v", a.TargetGunAngle)
	}
}

// TakeDamage clamps health at zero; a dead agent reports !Alive.
func TestTakeDamageClampsAtZero(t *testing.T) {
	w := walls.NewGrid(32, 1000, 1000)
	a := NewAgent(100, 100, uint8(wire.TeamA), nil, 1000, testAgentConfig(), w, noopStrategy{})

	a.TakeDamage(150)
	if a.Health != 0 {
		t.Fatalf("health must clamp to 0, got %v", a.Health)
	}
	if a.Alive() {
		t.Fatal("agent at zero health must not be alive")
	}
}
