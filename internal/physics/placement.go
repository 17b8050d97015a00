package physics

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// PlaceBalls creates cfg.BallCount balls at random, non-overlapping positions
// on the table surface, each with a random horizontal velocity in
// [-MaxInitialSpeed/2, MaxInitialSpeed/2] per axis. Returned order is creation
// order and serves as the ball identity for collision pairing.
//
// Each ball gets at most cfg.MaxPlacementAttempts candidate positions; if none
// of them is free the call fails with ErrUnplaceable.
func PlaceBalls(cfg Config, rng *rand.Rand) ([]*Ball, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	attempts := cfg.MaxPlacementAttempts
	if attempts <= 0 {
		attempts = DefaultPlacementAttempts
	}
	maxX, maxZ := cfg.Bounds()

	balls := make([]*Ball, 0, cfg.BallCount)
	for i := 0; i < cfg.BallCount; i++ {
		var candidate mgl64.Vec3
		placed := false
		for n := 0; n < attempts; n++ {
			candidate = mgl64.Vec3{uniform(rng, maxX), cfg.SurfaceY + cfg.Radius, uniform(rng, maxZ)}
			if !overlapsAny(candidate, balls, cfg.Radius) {
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("%w: ball %d of %d not placed after %d attempts", ErrUnplaceable, i+1, cfg.BallCount, attempts)
		}

		b := NewBall(i, candidate.X(), candidate.Z(), cfg)
		if cfg.TextureCount > 0 {
			b.TextureIndex = i % cfg.TextureCount
		}
		b.Velocity = randomVelocity(rng, cfg.MaxInitialSpeed)
		balls = append(balls, b)
	}
	return balls, nil
}

// RandomizeVelocities assigns every ball a fresh random horizontal velocity
// drawn the same way as at placement.
func RandomizeVelocities(balls []*Ball, maxSpeed float64, rng *rand.Rand) {
	for _, b := range balls {
		b.Velocity = randomVelocity(rng, maxSpeed)
	}
}

func randomVelocity(rng *rand.Rand, maxSpeed float64) mgl64.Vec3 {
	return mgl64.Vec3{uniform(rng, maxSpeed/2), 0, uniform(rng, maxSpeed/2)}
}

// uniform samples from [-half, half].
func uniform(rng *rand.Rand, half float64) float64 {
	return (2*rng.Float64() - 1) * half
}

func overlapsAny(p mgl64.Vec3, balls []*Ball, r float64) bool {
	for _, b := range balls {
		if Overlaps(p, b.Position, r) {
			return true
		}
	}
	return false
}
