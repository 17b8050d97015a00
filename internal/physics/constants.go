package physics

// Defaults for the standard table. Units are arbitrary scene units and
// seconds; the table is 45 x 90 with balls of radius 1.
const (
	DefaultTableWidth           = 45.0
	DefaultTableLength          = 90.0
	DefaultSurfaceY             = 0.0
	DefaultBallCount            = 8
	DefaultBallRadius           = 1.0
	DefaultMaxInitialSpeed      = 30.0
	DefaultFriction             = 0.2 // fraction of speed lost per second
	DefaultWallRestitution      = 0.8
	DefaultCollisionRestitution = 1.0
	DefaultRotationDamping      = 0.8
	DefaultPlacementAttempts    = 10000
	DefaultTextureCount         = 8
)

// Upper limits accepted by Validate. Step checks every pair each frame, so
// the ball count bounds the cost of a frame.
const (
	MaxBallCount         = 64
	MaxPlacementAttempts = 100000
)
