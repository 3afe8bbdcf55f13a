package lobby

import (
	"path/filepath"
	"sync"
	"testing"

	"fight-club/internal/arena"
	"fight-club/internal/audit"
	"fight-club/internal/config"
	"fight-club/internal/session"
	"fight-club/internal/sim"
	"fight-club/internal/strategy"
	"fight-club/internal/walls"
	"fight-club/internal/wire"
)

// noopStrategy never acts; used so the test match keeps both teams alive
// for the duration of the assertions instead of ending on the first tick.
type noopStrategy struct{}

func (noopStrategy) Step(strategy.AgentAPI, float64) {}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
	sessions int
}

func (f *fakeBroadcaster) Broadcast(msg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeBroadcaster) SessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *fakeBroadcaster) CloseAll() {}

func (f *fakeBroadcaster) setSessions(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = n
}

func (f *fakeBroadcaster) lastMessage() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

func newTestLobby(t *testing.T) (*Lobby, *fakeBroadcaster) {
	t.Helper()
	w := walls.NewGrid(32, 800, 600)
	acfg := arena.AgentConfig{Health: 100, Damage: 25, Speed: 120, ShootCooldown: 0.8, Radius: 16, BulletSpeed: 400, BulletLifetime: 2, BulletRadius: 4, FireOffset: 4}
	factory := func(mode config.Mode) *arena.Manager {
		m := arena.NewManager(w, 10, arena.FOVConfig{Ratio: 20, Opening: 1.2, NumRays: 4, RayStepDivisor: 2}, arena.NewSurvivalOverlay())
		// Keep both teams alive so the match does not end on its first tick,
		// which would otherwise race against the test's own assertions.
		aAgent := arena.NewAgent(100, 100, uint8(wire.TeamA), nil, 800, acfg, w, noopStrategy{})
		bAgent := arena.NewAgent(700, 500, uint8(wire.TeamB), nil, 800, acfg, w, noopStrategy{})
		m.Agents[aAgent.ID] = aAgent
		m.Agents[bAgent.ID] = bAgent
		return m
	}
	log := audit.New()
	if err := log.Start(filepath.Join(t.TempDir(), "events.jsonl")); err != nil {
		t.Fatalf("audit.Start: %v", err)
	}
	t.Cleanup(log.Stop)

	l := New(factory, sim.Config{SimHz: 1000, NetHz: 500, RequiredClients: 2}, log)
	bcast := &fakeBroadcaster{sessions: 2}
	l.Attach(bcast)
	t.Cleanup(l.cancelMatch)
	return l, bcast
}

func TestMaybeStartWaitsForConsensusAndReadiness(t *testing.T) {
	l, bcast := newTestLobby(t)

	a := &session.Session{ID: 1, RemoteAddr: "1.1.1.1"}
	b := &session.Session{ID: 2, RemoteAddr: "2.2.2.2"}
	l.OnConnect(a)
	l.OnConnect(b)

	l.OnReady(a)
	if l.SessionCount() != 2 {
		t.Fatalf("SessionCount = %d, want 2", l.SessionCount())
	}

	// Only one session ready, none have selected a mode: must not start.
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if running {
		t.Fatal("match must not start before consensus and full readiness")
	}

	l.OnSelectMode(a, uint8(config.ModeSurvival))
	l.OnSelectMode(b, uint8(config.ModeSurvival))
	l.OnReady(b)

	l.mu.Lock()
	running = l.running
	l.mu.Unlock()
	if !running {
		t.Fatal("expected the match to start once both sessions are ready and agree on a mode")
	}
	if bcast.lastMessage() == nil {
		t.Fatal("expected a broadcast (MODE_SELECTED/START_GAME) once the match started")
	}
}

func TestOnSelectModeDisagreementBlocksInstall(t *testing.T) {
	l, _ := newTestLobby(t)

	a := &session.Session{ID: 1}
	b := &session.Session{ID: 2}
	l.OnConnect(a)
	l.OnConnect(b)

	l.OnSelectMode(a, uint8(config.ModeSurvival))
	l.OnSelectMode(b, uint8(config.ModeKOTH))

	l.mu.Lock()
	installed := l.installedMode
	l.mu.Unlock()
	if installed != nil {
		t.Fatal("disagreeing mode selections must not install a manager")
	}
}

func TestOnSelectModeRejectsInvalidByte(t *testing.T) {
	l, bcast := newTestLobby(t)
	a := &session.Session{ID: 1}
	l.OnConnect(a)

	l.OnSelectMode(a, 200)

	l.mu.Lock()
	st := l.sessions[a.ID]
	l.mu.Unlock()
	if st.selectedMode != nil {
		t.Fatal("an out-of-range mode byte must not be recorded")
	}
	if bcast.lastMessage() != nil {
		t.Fatal("an invalid mode selection must not broadcast MODE_SELECTED")
	}
}

func TestOnDisconnectBelowRequiredCancelsRunningMatch(t *testing.T) {
	l, _ := newTestLobby(t)

	a := &session.Session{ID: 1}
	b := &session.Session{ID: 2}
	l.OnConnect(a)
	l.OnConnect(b)
	l.OnSelectMode(a, uint8(config.ModeSurvival))
	l.OnSelectMode(b, uint8(config.ModeSurvival))
	l.OnReady(a)
	l.OnReady(b)

	l.mu.Lock()
	running := l.running
	stop := l.driverStop
	l.mu.Unlock()
	if !running {
		t.Fatal("match should have started")
	}

	l.OnDisconnect(b)

	select {
	case <-stop:
	default:
		t.Fatal("a disconnect dropping below RequiredClients must close the driver's stop channel")
	}
}
