package wire

import (
	"reflect"
	"testing"
)

func TestEntitiesRoundTrip(t *testing.T) {
	entities := []Entity{
		{ID: 1, X: 10.5, Y: -3.25, Radius: 12, GunAngle: 1.5, Team: uint8(TeamA), Health: 100, Ammo: 30},
		{ID: 65535, X: 0, Y: 0, Radius: 1, GunAngle: -3.14, Team: uint8(TeamB), Health: 0, Ammo: AmmoInfinite},
	}
	packed, err := EncodeEntities(entities)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(packed) != 2+len(entities)*entityRecordSize {
		t.Fatalf("unexpected packed length %d", len(packed))
	}
	got, err := DecodeEntities(packed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, entities) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, entities)
	}
}

func TestEntitiesBadLength(t *testing.T) {
	if _, err := DecodeEntities([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected BadPacket on short entity payload")
	}
}

func TestEntitiesInvalidRadius(t *testing.T) {
	packed, _ := EncodeEntities([]Entity{{ID: 1, Radius: -1, Team: uint8(TeamA)}})
	if _, err := DecodeEntities(packed); err == nil {
		t.Fatal("expected BadPacket on non-positive radius")
	}
}

func TestBulletsRoundTrip(t *testing.T) {
	bullets := []Bullet{
		{ID: 7, X: 1, Y: 2, Radius: 5, Owner: 3, Team: uint8(TeamA)},
	}
	packed, err := EncodeBullets(bullets)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBullets(packed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, bullets) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, bullets)
	}
}

func TestWallChangesRoundTrip(t *testing.T) {
	changes := []WallChange{
		{Op: WallAdd, CX: 3, CY: 4},
		{Op: WallAdd, CX: 3, CY: 5},
		{Op: WallRemove, CX: 3, CY: 4},
	}
	packed, err := EncodeWallChanges(changes)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeWallChanges(packed, func(cx, cy uint16) bool { return cx < 100 && cy < 100 })
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, changes) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, changes)
	}
}

func TestWallChangesOutOfBoundsRejected(t *testing.T) {
	packed, _ := EncodeWallChanges([]WallChange{{Op: WallAdd, CX: 500, CY: 0}})
	_, err := DecodeWallChanges(packed, func(cx, cy uint16) bool { return cx < 100 })
	if err == nil {
		t.Fatal("expected BadPacket for out-of-bounds cell")
	}
}

func TestKOTHStateRoundTrip(t *testing.T) {
	s := KOTHState{ScoreA: 20, ScoreB: 15, ZoneStatus: 2, TimeElapsed: 2.5, GameOver: 0, Winner: 0}
	packed := EncodeKOTHState(s)
	if len(packed) != kothStateSize {
		t.Fatalf("expected %d bytes, got %d", kothStateSize, len(packed))
	}
	got, err := DecodeKOTHState(packed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, s)
	}
}

func TestCTFStateRoundTrip(t *testing.T) {
	carrier := uint16(4)
	s := CTFState{
		TeamACaptures: 1,
		FlagTeamA:     CTFFlagState{X: 10, Y: 20, Carrier: &carrier, AtBase: false},
		FlagTeamB:     CTFFlagState{X: 1, Y: 2, AtBase: true},
		TimeElapsed:   12.5,
		MaxTime:       300,
		MaxCaptures:   3,
	}
	packed, err := EncodeCTFState(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeCTFState(packed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FlagTeamA.Carrier == nil || *got.FlagTeamA.Carrier != carrier {
		t.Fatalf("carrier mismatch: %+v", got.FlagTeamA)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := EncodeFrame(MsgEntities, []byte{1, 2, 3})
	typ, payload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typ != MsgEntities || !reflect.DeepEqual(payload, []byte{1, 2, 3}) {
		t.Fatalf("got (%v, %v)", typ, payload)
	}
}

func TestDecodeFrameEmpty(t *testing.T) {
	if _, _, err := DecodeFrame(nil); err == nil {
		t.Fatal("expected BadPacket for empty frame")
	}
}
