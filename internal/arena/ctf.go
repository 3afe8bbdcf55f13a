package arena

import (
	"math"

	"fight-club/internal/strategy"
	"fight-club/internal/wire"
)

// FlagState is the CTF flag state machine.
type FlagState uint8

const (
	FlagAtBase FlagState = iota
	FlagCarried
	FlagDropped
)

// CTFFlagConfig groups one flag's static base position.
type CTFFlagConfig struct {
	BaseX, BaseY float64
}

// CTFConfig groups CTF's tunables, sourced from config at startup.
type CTFConfig struct {
	TeamABase CTFFlagConfig
	TeamBBase CTFFlagConfig

	PickupRadius     float64
	ReturnRadius     float64
	PointsPerCapture int
	DropsOnDeath     bool
	AutoReturnTime   float64
	MaxCaptures      int
	MaxDuration      float64
}

// ctfFlag is a single flag's runtime state.
type ctfFlag struct {
	team         uint8
	baseX, baseY float64
	x, y         float64
	state        FlagState
	carrierID    uint16
	hasCarrier   bool
	dropTimer    float64
}

func newCTFFlag(team uint8, baseX, baseY float64) *ctfFlag {
	return &ctfFlag{team: team, baseX: baseX, baseY: baseY, x: baseX, y: baseY, state: FlagAtBase}
}

func (f *ctfFlag) resetToBase() {
	f.x, f.y = f.baseX, f.baseY
	f.state = FlagAtBase
	f.hasCarrier = false
	f.carrierID = 0
	f.dropTimer = 0
}

func (f *ctfFlag) pickup(agentID uint16, x, y float64) {
	f.state = FlagCarried
	f.carrierID = agentID
	f.hasCarrier = true
	f.x, f.y = x, y
	f.dropTimer = 0
}

func (f *ctfFlag) drop(x, y float64) {
	f.state = FlagDropped
	f.hasCarrier = false
	f.carrierID = 0
	f.x, f.y = x, y
	f.dropTimer = 0
}

// CTFOverlay tracks flag pickup/capture/drop/auto-return and per-team
// capture scoring for Capture the Flag.
type CTFOverlay struct {
	cfg CTFConfig

	flagA *ctfFlag
	flagB *ctfFlag

	CapturesA, CapturesB int
	TimeElapsed          float64

	over   bool
	winner uint8
}

// NewCTFOverlay constructs a two-flag overlay from the given config.
func NewCTFOverlay(cfg CTFConfig) *CTFOverlay {
	return &CTFOverlay{
		cfg:   cfg,
		flagA: newCTFFlag(uint8(wire.TeamA), cfg.TeamABase.BaseX, cfg.TeamABase.BaseY),
		flagB: newCTFFlag(uint8(wire.TeamB), cfg.TeamBBase.BaseX, cfg.TeamBBase.BaseY),
	}
}

func (c *CTFOverlay) ownFlag(team uint8) *ctfFlag {
	if team == uint8(wire.TeamA) {
		return c.flagA
	}
	return c.flagB
}

func (c *CTFOverlay) enemyFlag(team uint8) *ctfFlag {
	if team == uint8(wire.TeamA) {
		return c.flagB
	}
	return c.flagA
}

func (c *CTFOverlay) ownBase(team uint8) (float64, float64) {
	if team == uint8(wire.TeamA) {
		return c.cfg.TeamABase.BaseX, c.cfg.TeamABase.BaseY
	}
	return c.cfg.TeamBBase.BaseX, c.cfg.TeamBBase.BaseY
}

func dist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return math.Sqrt(dx*dx + dy*dy)
}

// updateCarriedPositions pins each CARRIED flag to its carrier, or drops it
// in place if the carrier no longer exists in the agent table.
func (c *CTFOverlay) updateCarriedPositions(m *Manager) {
	for _, f := range []*ctfFlag{c.flagA, c.flagB} {
		if f.state != FlagCarried {
			continue
		}
		if carrier, ok := m.Agents[f.carrierID]; ok && carrier.Alive() {
			f.x, f.y = carrier.X, carrier.Y
			continue
		}
		f.drop(f.x, f.y)
	}
}

// updatePickupsAndCaptures runs per agent: pickup an at-base/dropped enemy
// flag, then attempt capture for a carrying agent, then return one's own
// dropped flag. Capture requires the capturing team's own flag to be at
// base; a carrier at base otherwise just waits.
func (c *CTFOverlay) updatePickupsAndCaptures(m *Manager) {
	for _, a := range m.Agents {
		if !a.Alive() {
			continue
		}
		enemy := c.enemyFlag(a.Team)
		own := c.ownFlag(a.Team)

		if enemy.state != FlagCarried && dist(a.X, a.Y, enemy.x, enemy.y) <= c.cfg.PickupRadius {
			enemy.pickup(a.ID, a.X, a.Y)
		}

		if enemy.hasCarrier && enemy.carrierID == a.ID {
			if own.state == FlagAtBase {
				baseX, baseY := c.ownBase(a.Team)
				if dist(a.X, a.Y, baseX, baseY) <= c.cfg.ReturnRadius {
					c.captureFlag(a.Team, enemy)
				}
			}
		}

		if own.state == FlagDropped && dist(a.X, a.Y, own.x, own.y) <= c.cfg.PickupRadius {
			own.resetToBase()
		}
	}
}

func (c *CTFOverlay) captureFlag(capturingTeam uint8, flag *ctfFlag) {
	if capturingTeam == uint8(wire.TeamA) {
		c.CapturesA += c.cfg.PointsPerCapture
	} else {
		c.CapturesB += c.cfg.PointsPerCapture
	}
	flag.resetToBase()
}

func (c *CTFOverlay) updateAutoReturn(dt float64) {
	for _, f := range []*ctfFlag{c.flagA, c.flagB} {
		if f.state != FlagDropped {
			continue
		}
		f.dropTimer += dt
		if c.cfg.AutoReturnTime > 0 && f.dropTimer >= c.cfg.AutoReturnTime {
			f.resetToBase()
		}
	}
}

func (c *CTFOverlay) checkWin() (uint8, bool) {
	if c.CapturesA >= c.cfg.MaxCaptures {
		return uint8(wire.TeamA), true
	}
	if c.CapturesB >= c.cfg.MaxCaptures {
		return uint8(wire.TeamB), true
	}
	if c.cfg.MaxDuration > 0 && c.TimeElapsed >= c.cfg.MaxDuration {
		switch {
		case c.CapturesA > c.CapturesB:
			return uint8(wire.TeamA), true
		case c.CapturesB > c.CapturesA:
			return uint8(wire.TeamB), true
		default:
			return uint8(wire.TeamNeutral), true
		}
	}
	return 0, false
}

// Update runs the CTF mode hook: carrier tracking, pickup/capture/return,
// auto-return, then the win check, in that order.
func (c *CTFOverlay) Update(m *Manager, dt float64) {
	if c.over {
		return
	}
	c.TimeElapsed += dt
	c.updateCarriedPositions(m)
	c.updatePickupsAndCaptures(m)
	c.updateAutoReturn(dt)
	if winner, done := c.checkWin(); done {
		c.over = true
		c.winner = winner
	}
}

func (c *CTFOverlay) GameOver() bool { return c.over }
func (c *CTFOverlay) Winner() uint8  { return c.winner }

// OnAgentDeath drops a flag the dying agent was carrying, at the death
// location, when DropsOnDeath is set.
func (c *CTFOverlay) OnAgentDeath(a *Agent) {
	if !c.cfg.DropsOnDeath {
		return
	}
	enemy := c.enemyFlag(a.Team)
	if enemy.hasCarrier && enemy.carrierID == a.ID {
		enemy.drop(a.X, a.Y)
	}
}

// Snapshot packs the overlay's state into the wire's JSON CTF record.
func (c *CTFOverlay) Snapshot() wire.CTFState {
	timeRemaining := c.cfg.MaxDuration - c.TimeElapsed
	if timeRemaining < 0 {
		timeRemaining = 0
	}
	return wire.CTFState{
		TeamACaptures: c.CapturesA,
		TeamBCaptures: c.CapturesB,
		FlagTeamA:     flagWireState(c.flagA),
		FlagTeamB:     flagWireState(c.flagB),
		TimeElapsed:   c.TimeElapsed,
		TimeRemaining: timeRemaining,
		MaxTime:       c.cfg.MaxDuration,
		MaxCaptures:   c.cfg.MaxCaptures,
		GameOver:      c.over,
		WinnerTeam:    c.winner,
	}
}

// flagWireState derives at_base from the state machine: only AT_BASE maps
// to true; CARRIED and DROPPED are both false.
func flagWireState(f *ctfFlag) wire.CTFFlagState {
	s := wire.CTFFlagState{X: f.x, Y: f.y, AtBase: f.state == FlagAtBase}
	if f.hasCarrier {
		id := f.carrierID
		s.Carrier = &id
	}
	return s
}

// --- strategy.CTFContext ---

func (c *CTFOverlay) flagView(f *ctfFlag) strategy.FlagView {
	return strategy.FlagView{
		X: f.x, Y: f.y,
		State:      strategy.FlagState(f.state),
		CarrierID:  f.carrierID,
		HasCarrier: f.hasCarrier,
	}
}

// EnemyFlag implements strategy.CTFContext.
func (c *CTFOverlay) EnemyFlag(team uint8) strategy.FlagView { return c.flagView(c.enemyFlag(team)) }

// OwnFlag implements strategy.CTFContext.
func (c *CTFOverlay) OwnFlag(team uint8) strategy.FlagView { return c.flagView(c.ownFlag(team)) }

// OwnBase implements strategy.CTFContext.
func (c *CTFOverlay) OwnBase(team uint8) (float64, float64) { return c.ownBase(team) }

// EnemyBase implements strategy.CTFContext.
func (c *CTFOverlay) EnemyBase(team uint8) (float64, float64) {
	if team == uint8(wire.TeamA) {
		return c.cfg.TeamBBase.BaseX, c.cfg.TeamBBase.BaseY
	}
	return c.cfg.TeamABase.BaseX, c.cfg.TeamABase.BaseY
}

// PickupRadius implements strategy.CTFContext.
func (c *CTFOverlay) PickupRadius() float64 { return c.cfg.PickupRadius }

// ReturnRadius implements strategy.CTFContext.
func (c *CTFOverlay) ReturnRadius() float64 { return c.cfg.ReturnRadius }
