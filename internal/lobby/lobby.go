// Package lobby implements the ready/mode-consensus protocol: sessions
// connect and idle until every connected session agrees on a mode and is
// ready, at which point a game manager is installed (or swapped, on a
// changed consensus) and the tick driver launches.
package lobby

import (
	"strconv"
	"sync"

	"fight-club/internal/arena"
	"fight-club/internal/audit"
	"fight-club/internal/config"
	"fight-club/internal/metrics"
	"fight-club/internal/session"
	"fight-club/internal/sim"
	"fight-club/internal/wire"
)

// Factory builds a fresh game manager for the given consensus mode.
type Factory func(mode config.Mode) *arena.Manager

// Broadcaster is the subset of session.Server the lobby needs.
type Broadcaster interface {
	Broadcast(msg []byte)
	SessionCount() int
	CloseAll()
}

type sessionState struct {
	sess         *session.Session
	ready        bool
	selectedMode *config.Mode
}

// Lobby tracks every connected session's (ready, selectedMode) pair and
// owns the currently installed manager and its tick driver.
type Lobby struct {
	mu       sync.Mutex
	sessions map[uint64]*sessionState

	factory Factory
	simCfg  sim.Config
	bcast   Broadcaster
	log     *audit.Log

	manager       *arena.Manager
	installedMode *config.Mode
	running       bool
	driverStop    chan struct{}
	stopOnce      *sync.Once
}

// New constructs an idle lobby. Call Attach once the session.Server (which
// needs this Lobby as its Handler) has been constructed.
func New(factory Factory, simCfg sim.Config, auditLog *audit.Log) *Lobby {
	return &Lobby{
		sessions: make(map[uint64]*sessionState),
		factory:  factory,
		simCfg:   simCfg,
		log:      auditLog,
	}
}

// Attach wires the lobby to its broadcaster, breaking the construction
// cycle between session.Server (needs a Handler) and Lobby (needs a
// Broadcaster).
func (l *Lobby) Attach(b Broadcaster) { l.bcast = b }

func sourceKey(s *session.Session) string { return strconv.FormatUint(s.ID, 10) }

// OnConnect implements session.Handler.
func (l *Lobby) OnConnect(s *session.Session) {
	l.mu.Lock()
	l.sessions[s.ID] = &sessionState{sess: s}
	l.mu.Unlock()
	l.log.EmitSimple(audit.EventSessionJoin, 0, sourceKey(s), audit.SessionPayload{RemoteAddr: s.RemoteAddr})
}

// OnDisconnect implements session.Handler. A disconnect that drops the
// population below RequiredClients while a match runs cancels the tick
// driver without a GAME_END broadcast; remaining clients observe the
// socket closing instead.
func (l *Lobby) OnDisconnect(s *session.Session) {
	l.mu.Lock()
	delete(l.sessions, s.ID)
	shouldCancel := l.running && len(l.sessions) < l.simCfg.RequiredClients
	l.mu.Unlock()

	l.log.EmitSimple(audit.EventSessionLeave, 0, sourceKey(s), audit.SessionPayload{RemoteAddr: s.RemoteAddr})
	if shouldCancel {
		l.cancelMatch()
	}
}

// OnSelectMode implements session.Handler.
func (l *Lobby) OnSelectMode(s *session.Session, modeByte uint8) {
	mode := config.Mode(modeByte)
	if !mode.Valid() {
		metrics.RecordBadPacket()
		return
	}

	l.mu.Lock()
	st, ok := l.sessions[s.ID]
	if !ok {
		l.mu.Unlock()
		return
	}
	st.selectedMode = &mode
	consensus, agreed := l.consensusModeLocked()
	l.mu.Unlock()

	if agreed {
		l.installManager(consensus)
		l.bcast.Broadcast(wire.EncodeFrame(wire.MsgModeSelected, wire.SelectModePayload(uint8(consensus))))
		l.log.EmitSimple(audit.EventModeSelected, 0, "", audit.ModePayload{Mode: uint8(consensus)})
	}
	l.maybeStart()
}

// OnReady implements session.Handler.
func (l *Lobby) OnReady(s *session.Session) {
	l.mu.Lock()
	if st, ok := l.sessions[s.ID]; ok {
		st.ready = true
	}
	l.mu.Unlock()
	l.maybeStart()
}

// consensusModeLocked reports the single mode every connected session has
// selected, or false if any session has not selected yet, any two disagree,
// or there are no sessions. Must be called with l.mu held.
func (l *Lobby) consensusModeLocked() (config.Mode, bool) {
	var first *config.Mode
	for _, st := range l.sessions {
		if st.selectedMode == nil {
			return 0, false
		}
		if first == nil {
			first = st.selectedMode
		} else if *first != *st.selectedMode {
			return 0, false
		}
	}
	if first == nil {
		return 0, false
	}
	return *first, true
}

// installManager installs (or swaps, on a changed consensus) the manager
// for mode.
func (l *Lobby) installManager(mode config.Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.installedMode != nil && *l.installedMode == mode {
		return
	}
	m := mode
	l.manager = l.factory(mode)
	l.installedMode = &m
}

// maybeStart checks the start conditions (enough sessions, all ready, all
// selected the same mode) and, if every one holds, broadcasts START_GAME
// and launches the tick driver.
func (l *Lobby) maybeStart() {
	l.mu.Lock()
	if l.running || len(l.sessions) < l.simCfg.RequiredClients {
		l.mu.Unlock()
		return
	}

	var mode *config.Mode
	for _, st := range l.sessions {
		if !st.ready || st.selectedMode == nil {
			l.mu.Unlock()
			return
		}
		if mode == nil {
			mode = st.selectedMode
		} else if *mode != *st.selectedMode {
			l.mu.Unlock()
			return
		}
	}

	if l.installedMode == nil || *l.installedMode != *mode {
		m := *mode
		l.manager = l.factory(m)
		l.installedMode = &m
	}

	l.running = true
	manager := l.manager
	l.driverStop = make(chan struct{})
	l.stopOnce = &sync.Once{}
	stop := l.driverStop
	l.mu.Unlock()

	metrics.RecordMatchStarted()
	l.log.EmitSimple(audit.EventMatchStart, 0, "", nil)
	l.bcast.Broadcast(wire.EncodeFrame(wire.MsgStartGame, nil))

	driver := sim.NewDriver(l.simCfg, manager, l.bcast)
	driver.OnTick = func(tick uint64, alive int) {
		l.log.EmitSimple(audit.EventTick, tick, "", audit.TickPayload{AgentCount: alive})
	}
	go l.runMatch(driver, manager, stop)
}

func (l *Lobby) runMatch(driver *sim.Driver, manager *arena.Manager, stop chan struct{}) {
	natural := driver.Run(stop)

	l.mu.Lock()
	l.running = false
	winner := manager.Winner
	l.mu.Unlock()

	if !natural {
		metrics.RecordMatchEnded("disconnect")
	}
	l.log.EmitSimple(audit.EventMatchEnd, 0, "", audit.MatchEndPayload{Winner: winner, Natural: natural})
}

// cancelMatch signals the running driver to stop without a GAME_END
// broadcast.
func (l *Lobby) cancelMatch() {
	l.mu.Lock()
	stop, once := l.driverStop, l.stopOnce
	l.mu.Unlock()
	if stop == nil || once == nil {
		return
	}
	once.Do(func() { close(stop) })
}

// SessionCount returns the number of sessions currently tracked by the
// lobby (idle or in-match).
func (l *Lobby) SessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
