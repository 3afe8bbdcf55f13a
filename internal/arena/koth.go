package arena

import (
	"fight-club/internal/strategy"
	"fight-club/internal/wire"
)

// ZoneStatus mirrors the wire-level KOTHState.ZoneStatus byte.
type ZoneStatus uint8

const (
	ZoneNeutral ZoneStatus = iota
	ZoneTeamA
	ZoneTeamB
	ZoneContested
)

// KOTHZoneShape selects the hill zone's geometry test.
type KOTHZoneShape int

const (
	ZoneCircle KOTHZoneShape = iota
	ZoneRectangle
)

// KOTHConfig groups the mode's tunables, all sourced from config at startup.
type KOTHConfig struct {
	Shape      KOTHZoneShape
	CenterX    float64
	CenterY    float64
	Radius     float64
	RectX      float64
	RectY      float64
	RectWidth  float64
	RectHeight float64

	PointsPerSecond        float64
	ScoringInterval        float64
	ContestedBlocksScoring bool
	MaxPoints              float64
	MaxDuration            float64
}

// KOTHOverlay tracks zone control and score accumulation for King of the
// Hill. Points accrue in whole scoringTimer quanta so the score progression
// is deterministic regardless of tick rate.
type KOTHOverlay struct {
	cfg KOTHConfig

	ZoneStatus  ZoneStatus
	ScoreA      float64
	ScoreB      float64
	TimeElapsed float64

	scoringTimer float64
	over         bool
	winner       uint8
}

// NewKOTHOverlay constructs a zone-control overlay from the given config.
func NewKOTHOverlay(cfg KOTHConfig) *KOTHOverlay {
	return &KOTHOverlay{cfg: cfg}
}

func (k *KOTHOverlay) inZone(x, y float64) bool {
	switch k.cfg.Shape {
	case ZoneCircle:
		dx, dy := x-k.cfg.CenterX, y-k.cfg.CenterY
		return dx*dx+dy*dy <= k.cfg.Radius*k.cfg.Radius
	case ZoneRectangle:
		return x >= k.cfg.RectX && x <= k.cfg.RectX+k.cfg.RectWidth &&
			y >= k.cfg.RectY && y <= k.cfg.RectY+k.cfg.RectHeight
	}
	return false
}

func (k *KOTHOverlay) updateZoneControl(m *Manager) {
	aCount, bCount := 0, 0
	for _, a := range m.Agents {
		if !a.Alive() || !k.inZone(a.X, a.Y) {
			continue
		}
		switch a.Team {
		case uint8(wire.TeamA):
			aCount++
		case uint8(wire.TeamB):
			bCount++
		}
	}
	switch {
	case aCount > 0 && bCount > 0:
		k.ZoneStatus = ZoneContested
	case aCount > 0:
		k.ZoneStatus = ZoneTeamA
	case bCount > 0:
		k.ZoneStatus = ZoneTeamB
	default:
		k.ZoneStatus = ZoneNeutral
	}
}

func (k *KOTHOverlay) updateScoring(dt float64) {
	k.scoringTimer += dt
	for k.scoringTimer >= k.cfg.ScoringInterval {
		k.scoringTimer -= k.cfg.ScoringInterval

		switch k.ZoneStatus {
		case ZoneTeamA:
			k.ScoreA += k.cfg.PointsPerSecond * k.cfg.ScoringInterval
		case ZoneTeamB:
			k.ScoreB += k.cfg.PointsPerSecond * k.cfg.ScoringInterval
		case ZoneContested:
			// ContestedBlocksScoring true (the default) awards nobody; a
			// false value is reserved for a majority-wins rule that is not
			// implemented.
			_ = k.cfg.ContestedBlocksScoring
		}
	}
}

func (k *KOTHOverlay) checkWin() (uint8, bool) {
	if k.ScoreA >= k.cfg.MaxPoints {
		return uint8(wire.TeamA), true
	}
	if k.ScoreB >= k.cfg.MaxPoints {
		return uint8(wire.TeamB), true
	}
	if k.cfg.MaxDuration > 0 && k.TimeElapsed >= k.cfg.MaxDuration {
		switch {
		case k.ScoreA > k.ScoreB:
			return uint8(wire.TeamA), true
		case k.ScoreB > k.ScoreA:
			return uint8(wire.TeamB), true
		default:
			return uint8(wire.TeamNeutral), true
		}
	}
	return 0, false
}

func (k *KOTHOverlay) Update(m *Manager, dt float64) {
	if k.over {
		return
	}
	k.TimeElapsed += dt
	k.updateZoneControl(m)
	k.updateScoring(dt)
	if winner, done := k.checkWin(); done {
		k.over = true
		k.winner = winner
	}
}

func (k *KOTHOverlay) GameOver() bool { return k.over }
func (k *KOTHOverlay) Winner() uint8  { return k.winner }

// Snapshot packs the overlay's state into the wire's fixed KOTH record.
func (k *KOTHOverlay) Snapshot() wire.KOTHState {
	gameOver := uint8(0)
	if k.over {
		gameOver = 1
	}
	return wire.KOTHState{
		ScoreA:      float32(k.ScoreA),
		ScoreB:      float32(k.ScoreB),
		ZoneStatus:  uint8(k.ZoneStatus),
		TimeElapsed: float32(k.TimeElapsed),
		GameOver:    gameOver,
		Winner:      k.winner,
	}
}

// ZoneHoldConfig adapts KOTHConfig to strategy.ZoneConfig for the
// zone-hold policy, so the overlay's geometry is the strategy's geometry.
func (k *KOTHOverlay) ZoneHoldConfig() strategy.ZoneConfig {
	shape := strategy.ZoneCircle
	if k.cfg.Shape == ZoneRectangle {
		shape = strategy.ZoneRect
	}
	return strategy.ZoneConfig{
		Shape:   shape,
		CenterX: k.cfg.CenterX,
		CenterY: k.cfg.CenterY,
		Radius:  k.cfg.Radius,
		RectX:   k.cfg.RectX,
		RectY:   k.cfg.RectY,
		RectW:   k.cfg.RectWidth,
		RectH:   k.cfg.RectHeight,
	}
}
