// Package sim implements the tick driver and broadcast pump: a fixed simHz
// update loop decoupled from a slower netHz broadcast cadence, with a
// GAME_END grace period on natural match end.
package sim

import (
	"time"

	"fight-club/internal/arena"
	"fight-club/internal/metrics"
	"fight-club/internal/wire"
)

// Broadcaster is the session table's fan-out surface, kept narrow so this
// package never imports internal/session or internal/lobby.
type Broadcaster interface {
	Broadcast(msg []byte)
	SessionCount() int
	CloseAll()
}

// Config groups the driver's tunables: the two rates, the minimum session
// population, and the GAME_END grace period.
type Config struct {
	SimHz           float64
	NetHz           float64
	RequiredClients int
	GracePeriod     time.Duration
}

// DefaultConfig returns the standard rate band.
func DefaultConfig() Config {
	return Config{SimHz: 60, NetHz: 20, RequiredClients: 2, GracePeriod: 5 * time.Second}
}

// tickSampleSeconds is how often OnTick fires, in simulated seconds.
const tickSampleSeconds = 5.0

// Driver runs one match's tick loop against a live Manager, broadcasting
// snapshots through Broadcaster.
type Driver struct {
	cfg     Config
	manager *arena.Manager
	bcast   Broadcaster

	// OnTick, when set, is invoked every tickSampleSeconds of simulated time
	// with the tick number and alive-agent count, for match-history sampling.
	OnTick func(tick uint64, agentsAlive int)
}

// NewDriver constructs a driver for one match.
func NewDriver(cfg Config, manager *arena.Manager, bcast Broadcaster) *Driver {
	return &Driver{cfg: cfg, manager: manager, bcast: bcast}
}

// Run blocks until the match ends. It returns true if the match ended
// naturally (a mode overlay's win condition), false if it was cut short by
// the session population dropping below RequiredClients or by stop being
// closed externally; both of those skip the GAME_END sequence.
func (d *Driver) Run(stop <-chan struct{}) bool {
	simDt := 1.0 / d.cfg.SimHz
	netInterval := 1.0 / d.cfg.NetHz
	sinceBroadcast := 0.0

	sampleEvery := uint64(tickSampleSeconds * d.cfg.SimHz)
	if sampleEvery == 0 {
		sampleEvery = 1
	}

	ticker := time.NewTicker(time.Duration(simDt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return false
		case <-ticker.C:
			if d.bcast.SessionCount() < d.cfg.RequiredClients {
				return false
			}

			start := time.Now()
			d.manager.Update(simDt)
			metrics.RecordTick(time.Since(start))
			metrics.UpdateAgentsAlive(len(d.manager.Agents))

			if d.OnTick != nil && d.manager.TickCount%sampleEvery == 0 {
				d.OnTick(d.manager.TickCount, len(d.manager.Agents))
			}

			sinceBroadcast += simDt
			if sinceBroadcast >= netInterval {
				d.broadcastSnapshot()
				sinceBroadcast = 0
			}

			if !d.manager.IsRunning {
				d.endGame()
				return true
			}
		}
	}
}

// broadcastSnapshot packs and fans out one broadcast pass in the fixed
// entities -> bullets -> mode-packet order clients rely on. Wall deltas,
// when pending, go out ahead of the three per-tick message types.
func (d *Driver) broadcastSnapshot() {
	start := time.Now()

	if changes, ok := d.manager.Walls.PackChanges(); ok {
		d.bcast.Broadcast(wire.EncodeFrame(wire.MsgWalls, changes))
		d.manager.Walls.ClearBuffer()
	}

	if payload, err := wire.EncodeEntities(d.manager.AgentSnapshots()); err == nil {
		d.bcast.Broadcast(wire.EncodeFrame(wire.MsgEntities, payload))
	} else {
		metrics.RecordBufferOverflow()
	}

	if payload, err := wire.EncodeBullets(d.manager.BulletSnapshots()); err == nil {
		d.bcast.Broadcast(wire.EncodeFrame(wire.MsgBullets, payload))
	} else {
		metrics.RecordBufferOverflow()
	}

	d.broadcastModePacket()
	metrics.RecordBroadcast(time.Since(start))
}

// broadcastModePacket sends the mode-specific state record, if the
// installed overlay is one of the modes that carries one (Survival has no
// extra wire state).
func (d *Driver) broadcastModePacket() {
	switch overlay := d.manager.Overlay.(type) {
	case *arena.KOTHOverlay:
		d.bcast.Broadcast(wire.EncodeFrame(wire.MsgKOTHState, wire.EncodeKOTHState(overlay.Snapshot())))
	case *arena.CTFOverlay:
		if payload, err := wire.EncodeCTFState(overlay.Snapshot()); err == nil {
			d.bcast.Broadcast(wire.EncodeFrame(wire.MsgCTFState, payload))
		}
	}
}

// endGame broadcasts GAME_END, waits the grace period so clients can render
// the result, then closes every session.
func (d *Driver) endGame() {
	metrics.RecordMatchEnded("win")
	d.bcast.Broadcast(wire.EncodeFrame(wire.MsgGameEnd, wire.GameEndPayload(wire.Team(d.manager.Winner))))
	time.Sleep(d.cfg.GracePeriod)
	d.bcast.CloseAll()
}
