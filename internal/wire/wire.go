// Package wire implements the binary and JSON codecs for the server->client
// and client->server protocol: fixed-size entity/bullet/wall-change records,
// KOTH's fixed-size state record, CTF's JSON state object, and the single
// leading-type-byte message framing shared by all of them.
//
// All multi-byte integers are big-endian; floats are 32-bit IEEE-754.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// ErrBadPacket is the sentinel for every decode failure in this package.
// Callers compare with errors.Is / errors.Cause and drop the offending
// message; a bad packet never drops the connection.
var ErrBadPacket = errors.New("wire: bad packet")

// Team mirrors the wire-level team byte. NEUTRAL agents/bullets are
// unaffiliated; they exist for KOTH zone math and lobby bookkeeping.
type Team uint8

const (
	TeamNeutral Team = 0
	TeamA       Team = 1
	TeamB       Team = 2
)

func (t Team) Valid() bool {
	return t == TeamNeutral || t == TeamA || t == TeamB
}

// AmmoInfinite is the wire sentinel for an agent with unlimited ammunition.
const AmmoInfinite uint16 = 0xFFFF

// MsgType is the leading byte of every framed message.
type MsgType uint8

const (
	MsgEntities MsgType = iota + 1
	MsgWalls
	MsgBullets
	MsgCTFState
	MsgKOTHState
	MsgClientReady
	MsgStartGame
	MsgGameEnd
	MsgSelectMode
	MsgModeSelected
)

const (
	entityRecordSize = 25
	bulletRecordSize = 17
	wallChangeSize   = 5
	kothStateSize    = 18
)

// Entity is one record of the entities snapshot: an agent as the client sees it.
type Entity struct {
	ID        uint16
	X, Y      float32
	Radius    float32
	GunAngle  float32
	Team      uint8
	Health    float32
	Ammo      uint16
}

// EncodeEntities packs a full (non-delta) entity snapshot.
func EncodeEntities(entities []Entity) ([]byte, error) {
	if len(entities) > 0xFFFF {
		return nil, errors.Wrap(ErrBadPacket, "too many entities")
	}
	buf := make([]byte, 2+len(entities)*entityRecordSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(entities)))
	off := 2
	for _, e := range entities {
		binary.BigEndian.PutUint16(buf[off:], e.ID)
		putFloat32(buf[off+2:], e.X)
		putFloat32(buf[off+6:], e.Y)
		putFloat32(buf[off+10:], e.Radius)
		putFloat32(buf[off+14:], e.GunAngle)
		buf[off+18] = e.Team
		putFloat32(buf[off+19:], e.Health)
		binary.BigEndian.PutUint16(buf[off+23:], e.Ammo)
		off += entityRecordSize
	}
	return buf, nil
}

// DecodeEntities unpacks an entities snapshot, validating exact payload
// length, positive radius, and a known team id.
func DecodeEntities(data []byte) ([]Entity, error) {
	if len(data) < 2 {
		return nil, errors.Wrap(ErrBadPacket, "entities: short header")
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	want := 2 + count*entityRecordSize
	if len(data) != want {
		return nil, errors.Wrapf(ErrBadPacket, "entities: expected %d bytes, got %d", want, len(data))
	}
	out := make([]Entity, count)
	off := 2
	for i := 0; i < count; i++ {
		e := Entity{
			ID:       binary.BigEndian.Uint16(data[off:]),
			X:        getFloat32(data[off+2:]),
			Y:        getFloat32(data[off+6:]),
			Radius:   getFloat32(data[off+10:]),
			GunAngle: getFloat32(data[off+14:]),
			Team:     data[off+18],
			Health:   getFloat32(data[off+19:]),
			Ammo:     binary.BigEndian.Uint16(data[off+23:]),
		}
		if e.Radius <= 0 {
			return nil, errors.Wrapf(ErrBadPacket, "entities: invalid radius %v", e.Radius)
		}
		if !Team(e.Team).Valid() {
			return nil, errors.Wrapf(ErrBadPacket, "entities: invalid team %d", e.Team)
		}
		out[i] = e
		off += entityRecordSize
	}
	return out, nil
}

// Bullet is one record of the bullets snapshot.
type Bullet struct {
	ID     uint16
	X, Y   float32
	Radius float32
	Owner  uint16
	Team   uint8
}

func EncodeBullets(bullets []Bullet) ([]byte, error) {
	if len(bullets) > 0xFFFF {
		return nil, errors.Wrap(ErrBadPacket, "too many bullets")
	}
	buf := make([]byte, 2+len(bullets)*bulletRecordSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(bullets)))
	off := 2
	for _, b := range bullets {
		binary.BigEndian.PutUint16(buf[off:], b.ID)
		putFloat32(buf[off+2:], b.X)
		putFloat32(buf[off+6:], b.Y)
		putFloat32(buf[off+10:], b.Radius)
		binary.BigEndian.PutUint16(buf[off+14:], b.Owner)
		buf[off+16] = b.Team
		off += bulletRecordSize
	}
	return buf, nil
}

func DecodeBullets(data []byte) ([]Bullet, error) {
	if len(data) < 2 {
		return nil, errors.Wrap(ErrBadPacket, "bullets: short header")
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	want := 2 + count*bulletRecordSize
	if len(data) != want {
		return nil, errors.Wrapf(ErrBadPacket, "bullets: expected %d bytes, got %d", want, len(data))
	}
	out := make([]Bullet, count)
	off := 2
	for i := 0; i < count; i++ {
		b := Bullet{
			ID:     binary.BigEndian.Uint16(data[off:]),
			X:      getFloat32(data[off+2:]),
			Y:      getFloat32(data[off+6:]),
			Radius: getFloat32(data[off+10:]),
			Owner:  binary.BigEndian.Uint16(data[off+14:]),
			Team:   data[off+16],
		}
		if b.Radius <= 0 {
			return nil, errors.Wrapf(ErrBadPacket, "bullets: invalid radius %v", b.Radius)
		}
		if !Team(b.Team).Valid() {
			return nil, errors.Wrapf(ErrBadPacket, "bullets: invalid team %d", b.Team)
		}
		out[i] = b
		off += bulletRecordSize
	}
	return out, nil
}

// WallOp is the wall-change operation byte.
type WallOp uint8

const (
	WallAdd    WallOp = 1
	WallRemove WallOp = 2
)

// WallChange is one record of a wall delta.
type WallChange struct {
	Op     WallOp
	CX, CY uint16
}

func EncodeWallChanges(changes []WallChange) ([]byte, error) {
	if len(changes) > 0xFFFF {
		return nil, errors.Wrap(ErrBadPacket, "too many wall changes")
	}
	buf := make([]byte, 2+len(changes)*wallChangeSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(changes)))
	off := 2
	for _, c := range changes {
		buf[off] = byte(c.Op)
		binary.BigEndian.PutUint16(buf[off+1:], c.CX)
		binary.BigEndian.PutUint16(buf[off+3:], c.CY)
		off += wallChangeSize
	}
	return buf, nil
}

// DecodeWallChanges unpacks a wall delta. boundsOK validates a decoded cell
// against the receiver's grid; cells it rejects fail the whole packet with
// ErrBadPacket.
func DecodeWallChanges(data []byte, boundsOK func(cx, cy uint16) bool) ([]WallChange, error) {
	if len(data) < 2 {
		return nil, errors.Wrap(ErrBadPacket, "wall changes: short header")
	}
	count := int(binary.BigEndian.Uint16(data[0:2]))
	want := 2 + count*wallChangeSize
	if len(data) != want {
		return nil, errors.Wrapf(ErrBadPacket, "wall changes: expected %d bytes, got %d", want, len(data))
	}
	out := make([]WallChange, count)
	off := 2
	for i := 0; i < count; i++ {
		op := WallOp(data[off])
		if op != WallAdd && op != WallRemove {
			return nil, errors.Wrapf(ErrBadPacket, "wall changes: invalid op %d", op)
		}
		cx := binary.BigEndian.Uint16(data[off+1:])
		cy := binary.BigEndian.Uint16(data[off+3:])
		if boundsOK != nil && !boundsOK(cx, cy) {
			return nil, errors.Wrapf(ErrBadPacket, "wall changes: out of bounds cell (%d,%d)", cx, cy)
		}
		out[i] = WallChange{Op: op, CX: cx, CY: cy}
		off += wallChangeSize
	}
	return out, nil
}

// KOTHState is the fixed-size KOTH mode packet.
type KOTHState struct {
	ScoreA, ScoreB float32
	ZoneStatus     uint8
	TimeElapsed    float32
	GameOver       uint8
	Winner         uint8
}

// EncodeKOTHState packs the fixed 18-byte KOTH record. The payload fields
// only span 15 bytes (4+4+1+4+1+1); the remaining 3 bytes are reserved and
// always zero so the record size never changes.
func EncodeKOTHState(s KOTHState) []byte {
	buf := make([]byte, kothStateSize)
	putFloat32(buf[0:], s.ScoreA)
	putFloat32(buf[4:], s.ScoreB)
	buf[8] = s.ZoneStatus
	putFloat32(buf[9:], s.TimeElapsed)
	buf[13] = s.GameOver
	buf[14] = s.Winner
	return buf
}

// DecodeKOTHState is the inverse of EncodeKOTHState; the server never
// receives this record, but the round-trip keeps the layout honest.
func DecodeKOTHState(data []byte) (KOTHState, error) {
	if len(data) != kothStateSize {
		return KOTHState{}, errors.Wrapf(ErrBadPacket, "koth state: expected %d bytes, got %d", kothStateSize, len(data))
	}
	return KOTHState{
		ScoreA:      getFloat32(data[0:]),
		ScoreB:      getFloat32(data[4:]),
		ZoneStatus:  data[8],
		TimeElapsed: getFloat32(data[9:]),
		GameOver:    data[13],
		Winner:      data[14],
	}, nil
}

// CTFFlagState is the per-flag JSON shape inside CTFState.
type CTFFlagState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Carrier *uint16 `json:"carrier"`
	AtBase  bool    `json:"at_base"`
}

// CTFState is the JSON-encoded CTF mode packet, the one message where
// readability beats binary compactness.
type CTFState struct {
	TeamACaptures int          `json:"team_a_captures"`
	TeamBCaptures int          `json:"team_b_captures"`
	FlagTeamA     CTFFlagState `json:"flag_team_a"`
	FlagTeamB     CTFFlagState `json:"flag_team_b"`
	TimeElapsed   float64      `json:"time_elapsed"`
	TimeRemaining float64      `json:"time_remaining"`
	MaxTime       float64      `json:"max_time"`
	MaxCaptures   int          `json:"max_captures"`
	GameOver      bool         `json:"game_over"`
	WinnerTeam    uint8        `json:"winner_team"`
}

func EncodeCTFState(s CTFState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "ctf state: marshal")
	}
	return data, nil
}

func DecodeCTFState(data []byte) (CTFState, error) {
	var s CTFState
	if err := json.Unmarshal(data, &s); err != nil {
		return CTFState{}, errors.Wrap(ErrBadPacket, err.Error())
	}
	return s, nil
}

// EncodeFrame prepends the single leading type byte shared by every
// server->client (and client->server) message.
func EncodeFrame(t MsgType, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = byte(t)
	copy(buf[1:], payload)
	return buf
}

// DecodeFrame splits a raw message into its type byte and payload.
func DecodeFrame(data []byte) (MsgType, []byte, error) {
	if len(data) < 1 {
		return 0, nil, errors.Wrap(ErrBadPacket, "frame: empty message")
	}
	return MsgType(data[0]), data[1:], nil
}

// GameEndPayload is GAME_END's single-byte body: the winning team id, 0 for
// a tie/neutral outcome.
func GameEndPayload(winner Team) []byte {
	return []byte{byte(winner)}
}

// SelectModePayload builds the 1-byte mode-id body used by both SELECT_MODE
// and MODE_SELECTED in the lobby consensus protocol.
func SelectModePayload(mode uint8) []byte { return []byte{mode} }

func DecodeModeByte(payload []byte) (uint8, error) {
	if len(payload) != 1 {
		return 0, errors.Wrap(ErrBadPacket, "select_mode: expected 1 byte payload")
	}
	return payload[0], nil
}

func putFloat32(buf []byte, f float32) {
	binary.BigEndian.PutUint32(buf, math.Float32bits(f))
}

func getFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(buf))
}
