package physics

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid simulation config")
	// ErrNegativeTimeStep is returned by Step for a negative, NaN or infinite dt.
	ErrNegativeTimeStep = errors.New("invalid time step")
	// ErrUnplaceable is returned by PlaceBalls when a ball cannot be placed
	// within the attempt budget.
	ErrUnplaceable = errors.New("unplaceable configuration")
)

// Config holds the table geometry and the coefficients used by the integrator.
type Config struct {
	BallCount   int     `json:"ball_count"`
	Radius      float64 `json:"radius"`
	TableWidth  float64 `json:"table_width"`  // extent along x
	TableLength float64 `json:"table_length"` // extent along z
	SurfaceY    float64 `json:"surface_y"`

	MaxInitialSpeed      float64 `json:"max_initial_speed"`
	Friction             float64 `json:"friction"`
	WallRestitution      float64 `json:"wall_restitution"`
	CollisionRestitution float64 `json:"collision_restitution"`
	RotationDamping      float64 `json:"rotation_damping"`

	MaxPlacementAttempts int `json:"max_placement_attempts"`
	TextureCount         int `json:"texture_count"`
}

// DefaultConfig returns the standard 8-ball table configuration.
func DefaultConfig() Config {
	return Config{
		BallCount:            DefaultBallCount,
		Radius:               DefaultBallRadius,
		TableWidth:           DefaultTableWidth,
		TableLength:          DefaultTableLength,
		SurfaceY:             DefaultSurfaceY,
		MaxInitialSpeed:      DefaultMaxInitialSpeed,
		Friction:             DefaultFriction,
		WallRestitution:      DefaultWallRestitution,
		CollisionRestitution: DefaultCollisionRestitution,
		RotationDamping:      DefaultRotationDamping,
		MaxPlacementAttempts: DefaultPlacementAttempts,
		TextureCount:         DefaultTextureCount,
	}
}

// Validate checks the geometric and coefficient preconditions.
func (c Config) Validate() error {
	switch {
	case !finite(c.Radius, c.TableWidth, c.TableLength, c.SurfaceY, c.MaxInitialSpeed,
		c.Friction, c.WallRestitution, c.CollisionRestitution, c.RotationDamping):
		return fmt.Errorf("%w: geometry and coefficients must be finite numbers", ErrInvalidConfig)
	case c.Radius <= 0:
		return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidConfig, c.Radius)
	case c.TableWidth <= 0 || c.TableLength <= 0:
		return fmt.Errorf("%w: table extents must be positive, got %gx%g", ErrInvalidConfig, c.TableWidth, c.TableLength)
	case 2*c.Radius > c.TableWidth || 2*c.Radius > c.TableLength:
		return fmt.Errorf("%w: ball diameter %g does not fit a %gx%g table", ErrInvalidConfig, 2*c.Radius, c.TableWidth, c.TableLength)
	case c.BallCount < 0 || c.BallCount > MaxBallCount:
		return fmt.Errorf("%w: ball count must be in [0,%d], got %d", ErrInvalidConfig, MaxBallCount, c.BallCount)
	case c.MaxPlacementAttempts > MaxPlacementAttempts:
		return fmt.Errorf("%w: at most %d placement attempts per ball, got %d", ErrInvalidConfig, MaxPlacementAttempts, c.MaxPlacementAttempts)
	case c.MaxInitialSpeed < 0:
		return fmt.Errorf("%w: max initial speed must not be negative", ErrInvalidConfig)
	case c.Friction < 0:
		return fmt.Errorf("%w: friction must not be negative", ErrInvalidConfig)
	case c.WallRestitution < 0 || c.WallRestitution > 1:
		return fmt.Errorf("%w: wall restitution must be in [0,1], got %g", ErrInvalidConfig, c.WallRestitution)
	case c.CollisionRestitution < 0 || c.CollisionRestitution > 1:
		return fmt.Errorf("%w: collision restitution must be in [0,1], got %g", ErrInvalidConfig, c.CollisionRestitution)
	case c.RotationDamping < 0:
		return fmt.Errorf("%w: rotation damping must not be negative", ErrInvalidConfig)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Bounds returns the half extents within which a ball centre may lie.
func (c Config) Bounds() (maxX, maxZ float64) {
	return c.TableWidth/2 - c.Radius, c.TableLength/2 - c.Radius
}
