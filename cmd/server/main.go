package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fight-club/internal/api"
	"fight-club/internal/arena"
	"fight-club/internal/audit"
	"fight-club/internal/config"
	"fight-club/internal/lobby"
	"fight-club/internal/metrics"
	"fight-club/internal/session"
	"fight-club/internal/sim"
	"fight-club/internal/strategy"
	"fight-club/internal/walls"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" ARENA SERVER")
	log.Println("================================")

	cfg := config.Load()

	wallGrid := walls.NewGrid(cfg.World.GridUnit, cfg.World.Width, cfg.World.Height)
	if cfg.WallMapPath != "" {
		if err := wallGrid.LoadFromFile(cfg.WallMapPath); err != nil {
			log.Fatalf("config: failed to load wall map %q: %v", cfg.WallMapPath, err)
		}
		log.Printf("config: loaded wall map from %s", cfg.WallMapPath)
	}

	auditLog := audit.New()
	if err := auditLog.Start(cfg.EventLogPath); err != nil {
		log.Fatalf("audit: failed to open event log %q: %v", cfg.EventLogPath, err)
	}
	defer auditLog.Stop()

	factory := func(mode config.Mode) *arena.Manager {
		m := buildManager(cfg, wallGrid, mode)
		m.Events = audit.NewCombatSink(auditLog, func() uint64 { return m.TickCount })
		return m
	}

	lob := lobby.New(factory, sim.Config{
		SimHz:           cfg.Sim.SimHz,
		NetHz:           cfg.Sim.NetHz,
		RequiredClients: cfg.Sim.RequiredClients,
		GracePeriod:     cfg.Sim.GracePeriod,
	}, auditLog)

	sessionSrv := session.NewServer(session.Config{
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		SendQueueSize:       256,
		MaxConnectionsTotal: 500,
		MaxConnectionsPerIP: 10,
		AllowedOrigins:      api.AllowedOrigins,
	}, lob)
	lob.Attach(sessionSrv)

	if err := metrics.StartDebugServer(metrics.DebugServerConfig{
		Enabled:    cfg.Debug.Enabled,
		ListenAddr: cfg.Debug.ListenAddr,
	}); err != nil {
		log.Printf("metrics: debug server failed to start: %v", err)
	}

	httpServer := api.NewServer(cfg.ListenAddr, sessionSrv, wallGrid)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatalf("api: server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("api: shutdown error: %v", err)
	}
}

// buildManager installs the overlay for mode, spawns its agent roster, and
// returns a fresh manager ready for a new match. Strategies are paired with
// spawns here, one factory per mode (CTF alternates two factories by spawn
// index), since config cannot hold a Go closure.
func buildManager(cfg config.Config, wallGrid *walls.Grid, mode config.Mode) *arena.Manager {
	fov := arena.FOVConfig{
		Ratio:          cfg.FOV.Ratio,
		Opening:        cfg.FOV.Opening,
		NumRays:        cfg.FOV.NumRays,
		RayStepDivisor: cfg.FOV.RayStepDivisor,
	}
	agentCfg := arena.AgentConfig{
		Health: cfg.Agent.Health, Damage: cfg.Agent.Damage, Speed: cfg.Agent.Speed,
		ShootCooldown: cfg.Agent.ShootCooldown, MagazineSize: cfg.Agent.MagazineSize,
		ReloadDuration: cfg.Agent.ReloadDuration, GunRotationSpeed: cfg.Agent.GunRotationSpeed,
		Radius: cfg.Agent.Radius, BulletSpeed: cfg.Agent.BulletSpeed,
		BulletLifetime: cfg.Agent.BulletLifetime, BulletRadius: cfg.Agent.BulletRadius,
		FireOffset: cfg.Agent.FireOffset,
	}

	switch mode {
	case config.ModeKOTH:
		overlayCfg := arena.KOTHConfig{
			Shape:                  kothShape(cfg.KOTH.Shape),
			CenterX:                cfg.KOTH.CenterX,
			CenterY:                cfg.KOTH.CenterY,
			Radius:                 cfg.KOTH.Radius,
			RectX:                  cfg.KOTH.RectX,
			RectY:                  cfg.KOTH.RectY,
			RectWidth:              cfg.KOTH.RectWidth,
			RectHeight:             cfg.KOTH.RectHeight,
			PointsPerSecond:        cfg.KOTH.PointsPerSecond,
			ScoringInterval:        cfg.KOTH.ScoringInterval,
			ContestedBlocksScoring: cfg.KOTH.ContestedBlocksScoring,
			MaxPoints:              cfg.KOTH.MaxPoints,
			MaxDuration:            cfg.KOTH.MaxDuration,
		}
		overlay := arena.NewKOTHOverlay(overlayCfg)
		m := arena.NewManager(wallGrid, cfg.Sim.DetectionInterval, fov, overlay)

		zone := overlay.ZoneHoldConfig()
		m.SpawnAgents(toArenaSpawns(cfg.Spawns.KOTH, func() strategy.Strategy {
			return strategy.NewKOTHZoneHoldStrategy(zone)
		}), agentCfg, float64(cfg.World.Width))
		return m

	case config.ModeCTF:
		overlayCfg := arena.CTFConfig{
			TeamABase:        arena.CTFFlagConfig{BaseX: cfg.CTF.TeamABaseX, BaseY: cfg.CTF.TeamABaseY},
			TeamBBase:        arena.CTFFlagConfig{BaseX: cfg.CTF.TeamBBaseX, BaseY: cfg.CTF.TeamBBaseY},
			PickupRadius:     cfg.CTF.PickupRadius,
			ReturnRadius:     cfg.CTF.ReturnRadius,
			PointsPerCapture: cfg.CTF.PointsPerCapture,
			DropsOnDeath:     cfg.CTF.DropsOnDeath,
			AutoReturnTime:   cfg.CTF.AutoReturnTime,
			MaxCaptures:      cfg.CTF.MaxCaptures,
			MaxDuration:      cfg.CTF.MaxDuration,
		}
		overlay := arena.NewCTFOverlay(overlayCfg)
		m := arena.NewManager(wallGrid, cfg.Sim.DetectionInterval, fov, overlay)

		// Alternate attacker/defender roles per spawn index so each team
		// fields both a flag-runner and a base guard.
		m.SpawnAgents(toArenaSpawnsIndexed(cfg.Spawns.CTF, func(i int) func() strategy.Strategy {
			if i%2 == 0 {
				return func() strategy.Strategy { return strategy.NewCTFRoleStrategy(overlay) }
			}
			return func() strategy.Strategy { return strategy.NewCTFBaseDefenderStrategy(overlay) }
		}), agentCfg, float64(cfg.World.Width))
		return m

	default: // config.ModeSurvival
		overlay := arena.NewSurvivalOverlay()
		m := arena.NewManager(wallGrid, cfg.Sim.DetectionInterval, fov, overlay)
		m.SpawnAgents(toArenaSpawns(cfg.Spawns.Survival, func() strategy.Strategy {
			return strategy.NewAggressiveStrategy()
		}), agentCfg, float64(cfg.World.Width))
		return m
	}
}

func kothShape(s string) arena.KOTHZoneShape {
	if s == "rect" {
		return arena.ZoneRectangle
	}
	return arena.ZoneCircle
}

func toArenaSpawns(points []config.SpawnPoint, mk func() strategy.Strategy) []arena.SpawnPoint {
	out := make([]arena.SpawnPoint, len(points))
	for i, p := range points {
		out[i] = arena.SpawnPoint{X: p.X, Y: p.Y, Team: p.Team, Strategy: mk}
	}
	return out
}

func toArenaSpawnsIndexed(points []config.SpawnPoint, mk func(i int) func() strategy.Strategy) []arena.SpawnPoint {
	out := make([]arena.SpawnPoint, len(points))
	for i, p := range points {
		out[i] = arena.SpawnPoint{X: p.X, Y: p.Y, Team: p.Team, Strategy: mk(i)}
	}
	return out
}
