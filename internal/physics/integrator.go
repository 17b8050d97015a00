package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// minRollSpeed is the speed below which the rolling axis is left untouched.
const minRollSpeed = 1e-12

// StepStats summarises what happened during one Step.
type StepStats struct {
	Collisions int `json:"collisions"`
	WallHits   int `json:"wall_hits"`
}

// Step advances every ball by one time increment dt (seconds of wall-clock
// time since the previous step). Balls are processed in slice order; for each
// ball, pair collisions against later balls are resolved first, then wall
// reflection, friction, translation and the rolling rotation.
//
// Step mutates the balls in place and does nothing else. dt must not be
// negative, NaN or infinite; dt == 0 moves nothing but still resolves
// touching pairs.
func Step(balls []*Ball, dt float64, cfg Config) (StepStats, error) {
	var stats StepStats
	if !(dt >= 0) || math.IsInf(dt, 1) {
		return stats, fmt.Errorf("%w: %g", ErrNegativeTimeStep, dt)
	}
	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	for _, b := range balls {
		b.collided = false
	}

	for i, ball := range balls {
		for j := i + 1; j < len(balls); j++ {
			if resolvePair(ball, balls[j], cfg) {
				stats.Collisions++
			}
		}

		stats.WallHits += reflectWalls(ball, cfg)
		applyFriction(ball, dt, cfg.Friction)
		ball.Position = ball.Position.Add(ball.Velocity.Mul(dt))
		stats.WallHits += confine(ball, cfg)
		roll(ball, dt, cfg)
	}
	return stats, nil
}

// resolvePair applies the equal-mass elastic impulse along the line of
// centres when a and b touch or overlap and are converging. Touching pairs
// that are already separating are deliberately left alone and not marked
// collided, which narrows the plain distance trigger. A pair is skipped if
// either ball already resolved a collision this step.
func resolvePair(a, b *Ball, cfg Config) bool {
	if a.collided || b.collided {
		return false
	}

	d := mgl64.Vec3{a.Position.X() - b.Position.X(), 0, a.Position.Z() - b.Position.Z()}
	dist2 := d.Dot(d)
	contact := 2 * cfg.Radius
	if dist2 == 0 || dist2 > contact*contact {
		return false
	}

	dv := a.Velocity.Sub(b.Velocity)
	approach := d.Dot(dv)
	if approach >= 0 {
		// separating or sliding past each other
		return false
	}

	impulse := d.Mul(approach / dist2)
	a.Velocity = a.Velocity.Sub(impulse)
	b.Velocity = b.Velocity.Add(impulse)

	if cfg.CollisionRestitution != 1 {
		a.Velocity = a.Velocity.Mul(cfg.CollisionRestitution)
		b.Velocity = b.Velocity.Mul(cfg.CollisionRestitution)
	}

	a.collided = true
	b.collided = true
	return true
}

// reflectWalls flips each velocity component whose ball has crossed the
// matching table edge while still heading outward. Axes are independent, so
// a corner hit reflects both.
func reflectWalls(b *Ball, cfg Config) int {
	halfW, halfL := cfg.TableWidth/2, cfg.TableLength/2
	r := cfg.Radius
	hits := 0

	if reflectAxis(&b.Velocity[0], b.Position.X(), r, halfW, cfg.WallRestitution) {
		hits++
	}
	if reflectAxis(&b.Velocity[2], b.Position.Z(), r, halfL, cfg.WallRestitution) {
		hits++
	}
	return hits
}

func reflectAxis(v *float64, pos, r, half, restitution float64) bool {
	switch {
	case pos+r > half && *v > 0:
		*v = -*v * restitution
		return true
	case pos-r < -half && *v < 0:
		*v = -*v * restitution
		return true
	}
	return false
}

// applyFriction decays the velocity by (1 - k*dt), floored at a full stop so
// a long frame can never reverse the direction of travel.
func applyFriction(b *Ball, dt, k float64) {
	factor := 1 - k*dt
	if factor < 0 {
		factor = 0
	}
	b.Velocity = b.Velocity.Mul(factor)
}

// confine pulls a ball that a long frame carried past an edge back onto the
// table, bouncing it if it is still heading out.
func confine(b *Ball, cfg Config) int {
	maxX, maxZ := cfg.Bounds()
	hits := 0
	if clampAxis(&b.Position[0], &b.Velocity[0], maxX, cfg.WallRestitution) {
		hits++
	}
	if clampAxis(&b.Position[2], &b.Velocity[2], maxZ, cfg.WallRestitution) {
		hits++
	}
	return hits
}

func clampAxis(pos, v *float64, limit, restitution float64) bool {
	switch {
	case *pos > limit:
		*pos = limit
		if *v > 0 {
			*v = -*v * restitution
			return true
		}
	case *pos < -limit:
		*pos = -limit
		if *v < 0 {
			*v = -*v * restitution
			return true
		}
	}
	return false
}

// roll updates the rolling-without-slipping rotation from the current
// velocity. The increment is applied in world space (left-multiplied).
func roll(b *Ball, dt float64, cfg Config) {
	speed := b.Velocity.Len()
	if speed < minRollSpeed {
		b.AngularSpeed = 0
		return
	}

	axis := Up.Cross(b.Velocity)
	axisLen := axis.Len()
	if axisLen < minRollSpeed {
		b.AngularSpeed = 0
		return
	}
	b.RotationAxis = axis.Mul(1 / axisLen)
	b.AngularSpeed = speed / cfg.Radius

	angle := b.AngularSpeed * cfg.RotationDamping * dt
	if angle == 0 {
		return
	}
	if b.Orientation.Len() == 0 {
		b.Orientation = mgl64.QuatIdent()
	}
	b.Orientation = mgl64.QuatRotate(angle, b.RotationAxis).Mul(b.Orientation).Normalize()
}
