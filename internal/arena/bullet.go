package arena

import "math"

// maxBulletID is the top of the 16-bit wire id space; ids wrap modulo
// this+1. A realistic match never holds enough live bullets to collide.
const maxBulletID = 65535

// Bullet is the server-authoritative projectile state.
type Bullet struct {
	ID     uint16
	X, Y   float64
	Radius float64
	Owner  uint16
	Team   uint8
	Damage float64

	vx, vy   float64
	age      float64
	lifetime float64
}

var nextBulletID uint32

func allocBulletID() uint16 {
	id := uint16(nextBulletID % (maxBulletID + 1))
	nextBulletID++
	return id
}

// NewBullet constructs a bullet fired at angle theta (radians) from (x,y)
// with the given speed. vx/vy follow the Y-inverted angle convention shared
// with Agent.PointGunAt and the FOV ray-cast.
func NewBullet(x, y, speed, theta float64, owner uint16, team uint8, damage, lifetime, radius float64) *Bullet {
	return &Bullet{
		ID:       allocBulletID(),
		X:        x,
		Y:        y,
		Radius:   radius,
		Owner:    owner,
		Team:     team,
		Damage:   damage,
		lifetime: lifetime,
		vx:       speed * math.Cos(theta),
		vy:       -speed * math.Sin(theta),
	}
}

// Advance moves the bullet one tick forward and ages it.
func (b *Bullet) Advance(dt float64) {
	b.X += b.vx * dt
	b.Y += b.vy * dt
	b.age += dt
}

// Alive reports whether the bullet's age has not yet reached its lifetime.
func (b *Bullet) Alive() bool {
	return b.age < b.lifetime
}
