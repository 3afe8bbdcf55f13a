package strategy

import "math/rand"

// directionChangeInterval is how often RandomWalkStrategy picks a fresh heading.
const directionChangeInterval = 2.0

// RandomWalkStrategy wanders in a random direction, re-rolled on a fixed
// interval, and shoots whatever it detects.
type RandomWalkStrategy struct {
	dir   Direction
	timer float64
}

// NewRandomWalkStrategy constructs a RandomWalkStrategy with a random
// initial heading.
func NewRandomWalkStrategy() *RandomWalkStrategy {
	return &RandomWalkStrategy{dir: allDirections[rand.Intn(len(allDirections))]}
}

func (s *RandomWalkStrategy) Step(agent AgentAPI, dt float64) {
	s.timer += dt
	if s.timer >= directionChangeInterval {
		s.dir = allDirections[rand.Intn(len(allDirections))]
		s.timer = 0
	}

	agent.Move(dt, s.dir)

	if target, ok := agent.ClosestEnemy(); ok {
		for _, a := range agent.Agents() {
			if a.ID() == target {
				agent.PointGunAt(a.X(), a.Y())
				agent.RequestFire()
				break
			}
		}
	}
}
