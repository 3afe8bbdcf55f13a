// Package config is the single source of truth for server configuration:
// world geometry, tick/broadcast rates, FOV tunables, agent defaults,
// per-mode configs, spawn tables, and the wall-map path. Each section has a
// Default constructor; the world, sim, FOV, agent and debug sections also
// have a FromEnv overlay that only touches keys the environment actually
// sets, while the KOTH, CTF and spawn sections use their defaults only.
package config

import (
	"os"
	"strconv"
	"time"
)

// WorldConfig is the arena's pixel rectangle and wall-grid cell size.
type WorldConfig struct {
	Width    int
	Height   int
	GridUnit int
}

// DefaultWorld returns the default arena geometry.
func DefaultWorld() WorldConfig {
	return WorldConfig{Width: 1280, Height: 720, GridUnit: 32}
}

// WorldFromEnv overlays environment variables onto DefaultWorld.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()
	if w := getEnvInt("WORLD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("WORLD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if g := getEnvInt("WORLD_GRID_UNIT", 0); g > 0 {
		cfg.GridUnit = g
	}
	return cfg
}

// SimConfig groups the tick driver's rates and lobby/end-of-match tunables.
type SimConfig struct {
	SimHz             float64
	NetHz             float64
	DetectionInterval uint64
	RequiredClients   int
	GracePeriod       time.Duration
}

// DefaultSim returns the standard rate band.
func DefaultSim() SimConfig {
	return SimConfig{
		SimHz:             60,
		NetHz:             20,
		DetectionInterval: 3,
		RequiredClients:   2,
		GracePeriod:       5 * time.Second,
	}
}

// SimFromEnv overlays environment variables onto DefaultSim.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()
	if v := getEnvFloat("SIM_HZ", -1); v > 0 {
		cfg.SimHz = v
	}
	if v := getEnvFloat("NET_HZ", -1); v > 0 {
		cfg.NetHz = v
	}
	if v := getEnvInt("DETECTION_INTERVAL", -1); v >= 0 {
		cfg.DetectionInterval = uint64(v)
	}
	if v := getEnvInt("REQUIRED_CLIENTS", 0); v > 0 {
		cfg.RequiredClients = v
	}
	if v := getEnvFloat("GAME_END_GRACE_SECONDS", -1); v >= 0 {
		cfg.GracePeriod = time.Duration(v * float64(time.Second))
	}
	return cfg
}

// FOVConfig groups the detection-cone tunables: rho (radius ratio), phi
// (cone opening), N (ray count), k (step-divisor).
type FOVConfig struct {
	Ratio          float64
	Opening        float64
	NumRays        int
	RayStepDivisor float64
}

// DefaultFOV returns a 90-degree cone, 8 rays, half-cell stepping.
func DefaultFOV() FOVConfig {
	return FOVConfig{Ratio: 25, Opening: 1.5708, NumRays: 8, RayStepDivisor: 2}
}

// FOVFromEnv overlays environment variables onto DefaultFOV.
func FOVFromEnv() FOVConfig {
	cfg := DefaultFOV()
	if v := getEnvFloat("FOV_RATIO", -1); v > 0 {
		cfg.Ratio = v
	}
	if v := getEnvFloat("FOV_OPENING", -1); v > 0 {
		cfg.Opening = v
	}
	if v := getEnvInt("FOV_NUM_RAYS", -1); v > 0 {
		cfg.NumRays = v
	}
	if v := getEnvFloat("FOV_STEP_DIVISOR", -1); v >= 2 {
		cfg.RayStepDivisor = v
	}
	return cfg
}

// AgentDefaults groups per-agent spawn-time tunables shared by every mode.
type AgentDefaults struct {
	Health           float64
	Damage           float64
	Speed            float64
	ShootCooldown    float64
	MagazineSize     int
	ReloadDuration   float64
	GunRotationSpeed float64
	Radius           float64
	BulletSpeed      float64
	BulletLifetime   float64
	BulletRadius     float64
	FireOffset       float64
}

// DefaultAgent returns the baseline agent loadout.
func DefaultAgent() AgentDefaults {
	return AgentDefaults{
		Health: 100, Damage: 25, Speed: 120, ShootCooldown: 0.8,
		MagazineSize: 6, ReloadDuration: 1.5, GunRotationSpeed: 6.28,
		Radius: 16, BulletSpeed: 400, BulletLifetime: 2, BulletRadius: 4,
		FireOffset: 4,
	}
}

// AgentFromEnv overlays environment variables onto DefaultAgent.
func AgentFromEnv() AgentDefaults {
	cfg := DefaultAgent()
	if v := getEnvFloat("AGENT_HEALTH", -1); v > 0 {
		cfg.Health = v
	}
	if v := getEnvFloat("AGENT_DAMAGE", -1); v > 0 {
		cfg.Damage = v
	}
	if v := getEnvFloat("AGENT_SPEED", -1); v > 0 {
		cfg.Speed = v
	}
	if v := getEnvFloat("AGENT_SHOOT_COOLDOWN", -1); v > 0 {
		cfg.ShootCooldown = v
	}
	if v := getEnvInt("AGENT_MAGAZINE_SIZE", -1); v >= 0 {
		cfg.MagazineSize = v
	}
	if v := getEnvFloat("AGENT_RELOAD_DURATION", -1); v > 0 {
		cfg.ReloadDuration = v
	}
	return cfg
}

// Mode identifies a game mode; its byte value is exactly the wire
// SELECT_MODE/MODE_SELECTED payload.
type Mode uint8

const (
	ModeSurvival Mode = iota
	ModeKOTH
	ModeCTF
)

func (m Mode) Valid() bool { return m == ModeSurvival || m == ModeKOTH || m == ModeCTF }

// SpawnPoint is one team-spawn table entry. The strategy factory paired
// with each spawn is a Go closure config cannot express, so main.go
// attaches it per mode+team at startup.
type SpawnPoint struct {
	X, Y float64
	Team uint8
}

// ModeSpawns groups each mode's spawn table.
type ModeSpawns struct {
	Survival []SpawnPoint
	KOTH     []SpawnPoint
	CTF      []SpawnPoint
}

// DefaultSpawns lays two small teams out on either side of a 1280x720 arena.
func DefaultSpawns() ModeSpawns {
	teamA := []SpawnPoint{{X: 100, Y: 260}, {X: 100, Y: 360}, {X: 100, Y: 460}}
	teamB := []SpawnPoint{{X: 1180, Y: 260}, {X: 1180, Y: 360}, {X: 1180, Y: 460}}
	mk := func(team uint8, pts []SpawnPoint) []SpawnPoint {
		out := make([]SpawnPoint, len(pts))
		for i, p := range pts {
			out[i] = SpawnPoint{X: p.X, Y: p.Y, Team: team}
		}
		return out
	}
	var all []SpawnPoint
	all = append(all, mk(1, teamA)...)
	all = append(all, mk(2, teamB)...)
	return ModeSpawns{Survival: all, KOTH: all, CTF: all}
}

// KOTHModeConfig groups King of the Hill's tunables.
type KOTHModeConfig struct {
	Shape                  string // "circle" or "rect"
	CenterX, CenterY       float64
	Radius                 float64
	RectX, RectY           float64
	RectWidth, RectHeight  float64
	PointsPerSecond        float64
	ScoringInterval        float64
	ContestedBlocksScoring bool
	MaxPoints              float64
	MaxDuration            float64
}

// DefaultKOTH returns a central circular hill.
func DefaultKOTH(world WorldConfig) KOTHModeConfig {
	return KOTHModeConfig{
		Shape:                  "circle",
		CenterX:                float64(world.Width) / 2,
		CenterY:                float64(world.Height) / 2,
		Radius:                 100,
		PointsPerSecond:        10,
		ScoringInterval:        0.5,
		ContestedBlocksScoring: true,
		MaxPoints:              500,
		MaxDuration:            0,
	}
}

// CTFModeConfig groups Capture the Flag's tunables.
type CTFModeConfig struct {
	TeamABaseX, TeamABaseY float64
	TeamBBaseX, TeamBBaseY float64
	PickupRadius           float64
	ReturnRadius           float64
	PointsPerCapture       int
	DropsOnDeath           bool
	AutoReturnTime         float64
	MaxCaptures            int
	MaxDuration            float64
}

// DefaultCTF places bases at either end of the arena.
func DefaultCTF(world WorldConfig) CTFModeConfig {
	return CTFModeConfig{
		TeamABaseX: 60, TeamABaseY: float64(world.Height) / 2,
		TeamBBaseX: float64(world.Width) - 60, TeamBBaseY: float64(world.Height) / 2,
		PickupRadius: 30, ReturnRadius: 30, PointsPerCapture: 1,
		DropsOnDeath: true, AutoReturnTime: 10, MaxCaptures: 3, MaxDuration: 0,
	}
}

// DebugConfig configures the localhost-only pprof/metrics/health server.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultDebug returns the safe localhost-only default.
func DefaultDebug() DebugConfig {
	return DebugConfig{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// DebugFromEnv overlays environment variables onto DefaultDebug.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	return cfg
}

// Config is the complete application configuration.
type Config struct {
	World        WorldConfig
	Sim          SimConfig
	FOV          FOVConfig
	Agent        AgentDefaults
	KOTH         KOTHModeConfig
	CTF          CTFModeConfig
	Spawns       ModeSpawns
	WallMapPath  string
	ListenAddr   string
	Debug        DebugConfig
	EventLogPath string
}

// Load returns the complete configuration with environment overrides.
func Load() Config {
	world := WorldFromEnv()
	return Config{
		World:        world,
		Sim:          SimFromEnv(),
		FOV:          FOVFromEnv(),
		Agent:        AgentFromEnv(),
		KOTH:         DefaultKOTH(world),
		CTF:          DefaultCTF(world),
		Spawns:       DefaultSpawns(),
		WallMapPath:  getEnvString("WALL_MAP_PATH", ""),
		ListenAddr:   ":" + strconv.Itoa(getEnvInt("PORT", 8765)),
		Debug:        DebugFromEnv(),
		EventLogPath: getEnvString("EVENT_LOG_PATH", "events.jsonl"),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
