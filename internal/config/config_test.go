package config

import (
	"os"
	"testing"
)

func TestModeValid(t *testing.T) {
	if !ModeSurvival.Valid() || !ModeKOTH.Valid() || !ModeCTF.Valid() {
		t.Fatal("all three defined modes must be valid")
	}
	if Mode(99).Valid() {
		t.Fatal("out-of-range mode byte must be invalid")
	}
}

func TestSimFromEnvOverridesOnlySetKeys(t *testing.T) {
	os.Setenv("SIM_HZ", "120")
	defer os.Unsetenv("SIM_HZ")

	cfg := SimFromEnv()
	if cfg.SimHz != 120 {
		t.Fatalf("SimHz = %v, want 120", cfg.SimHz)
	}
	if cfg.NetHz != DefaultSim().NetHz {
		t.Fatalf("NetHz changed unexpectedly: %v", cfg.NetHz)
	}
}

func TestWorldFromEnvIgnoresInvalidValues(t *testing.T) {
	os.Setenv("WORLD_WIDTH", "not-a-number")
	defer os.Unsetenv("WORLD_WIDTH")

	cfg := WorldFromEnv()
	if cfg.Width != DefaultWorld().Width {
		t.Fatalf("Width = %v, want default %v", cfg.Width, DefaultWorld().Width)
	}
}

func TestDefaultSpawnsSplitsTeamsAcrossArena(t *testing.T) {
	spawns := DefaultSpawns()
	if len(spawns.Survival) == 0 {
		t.Fatal("expected a non-empty default spawn table")
	}
	for _, p := range spawns.Survival {
		if p.Team != 1 && p.Team != 2 {
			t.Fatalf("unexpected team %d in default spawn table", p.Team)
		}
	}
}

func TestLoadProducesConsistentModeConfigs(t *testing.T) {
	cfg := Load()
	if cfg.KOTH.CenterX != float64(cfg.World.Width)/2 {
		t.Fatalf("KOTH hill should default to arena center, got %v for width %v", cfg.KOTH.CenterX, cfg.World.Width)
	}
	if cfg.CTF.TeamABaseX >= cfg.CTF.TeamBBaseX {
		t.Fatal("CTF bases should sit at opposite ends of the arena")
	}
}
