package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the table normal. Motion is confined to the x/z plane.
var Up = mgl64.Vec3{0, 1, 0}

// Ball represents a single ball's physics state.
type Ball struct {
	ID           int        `json:"id"`
	TextureIndex int        `json:"texture_index"`
	Position     mgl64.Vec3 `json:"position"`
	Velocity     mgl64.Vec3 `json:"velocity"`
	RotationAxis mgl64.Vec3 `json:"rotation_axis"`
	AngularSpeed float64    `json:"angular_speed"`
	Orientation  mgl64.Quat `json:"orientation"`

	collided bool // resolved a pair collision in the current step
}

// NewBall creates a ball at rest on the table surface with identity orientation.
func NewBall(id int, x, z float64, cfg Config) *Ball {
	return &Ball{
		ID:          id,
		Position:    mgl64.Vec3{x, cfg.SurfaceY + cfg.Radius, z},
		Orientation: mgl64.QuatIdent(),
	}
}

// Speed returns the magnitude of the ball's velocity.
func (b *Ball) Speed() float64 {
	return b.Velocity.Len()
}

// AtRest reports whether the ball's speed is at or below eps.
func (b *Ball) AtRest(eps float64) bool {
	return b.Speed() <= eps
}

// Collided reports whether the ball took part in a pair collision during the
// most recent step.
func (b *Ball) Collided() bool {
	return b.collided
}

// Overlaps is the axis-aligned bounding box test used at placement, with r as
// the half extent on both x and z.
func Overlaps(a, b mgl64.Vec3, r float64) bool {
	return math.Abs(a.X()-b.X()) < 2*r && math.Abs(a.Z()-b.Z()) < 2*r
}

// AllAtRest returns true if every ball's speed is at or below eps.
func AllAtRest(balls []*Ball, eps float64) bool {
	for _, b := range balls {
		if !b.AtRest(eps) {
			return false
		}
	}
	return true
}

// KineticEnergy returns the total kinetic energy of the balls, taking each
// ball as unit mass.
func KineticEnergy(balls []*Ball) float64 {
	e := 0.0
	for _, b := range balls {
		e += 0.5 * b.Velocity.Dot(b.Velocity)
	}
	return e
}
