package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/billiards/internal/physics"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Security
	JWTSecret             string
	ViewerTokenTTLMinutes int

	// Table
	TableWidth    float64
	TableLength   float64
	TableSurfaceY float64

	// Balls
	BallCount            int
	BallRadius           float64
	MaxInitialSpeed      float64
	PlacementMaxAttempts int

	// Coefficients
	FrictionCoefficient  float64
	WallRestitution      float64
	CollisionRestitution float64
	RotationDamping      float64

	// Simulation loop
	TickHz                  int
	MaxFrameSeconds         float64
	RestSpeed               float64
	IdleStopSeconds         int
	IdleWorkerPollSeconds   int
	SnapshotIntervalSeconds int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database; empty runs tables without persistence
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnv("MIGRATE_ON_START", "false") == "true",

		// Redis; empty delivers frames to local viewers only
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Security
		JWTSecret:             getEnv("JWT_SECRET", "change-me-in-production"),
		ViewerTokenTTLMinutes: getEnvInt("VIEWER_TOKEN_TTL_MINUTES", 60),

		// Table
		TableWidth:    getEnvFloat("TABLE_WIDTH", physics.DefaultTableWidth),
		TableLength:   getEnvFloat("TABLE_LENGTH", physics.DefaultTableLength),
		TableSurfaceY: getEnvFloat("TABLE_SURFACE_Y", physics.DefaultSurfaceY),

		// Balls
		BallCount:            getEnvInt("BALL_COUNT", physics.DefaultBallCount),
		BallRadius:           getEnvFloat("BALL_RADIUS", physics.DefaultBallRadius),
		MaxInitialSpeed:      getEnvFloat("BALL_MAX_INITIAL_SPEED", physics.DefaultMaxInitialSpeed),
		PlacementMaxAttempts: getEnvInt("PLACEMENT_MAX_ATTEMPTS", physics.DefaultPlacementAttempts),

		// Coefficients
		FrictionCoefficient:  getEnvFloat("FRICTION_COEFFICIENT", physics.DefaultFriction),
		WallRestitution:      getEnvFloat("WALL_RESTITUTION", physics.DefaultWallRestitution),
		CollisionRestitution: getEnvFloat("COLLISION_RESTITUTION", physics.DefaultCollisionRestitution),
		RotationDamping:      getEnvFloat("ROTATION_DAMPING", physics.DefaultRotationDamping),

		// Simulation loop
		TickHz:                  getEnvInt("SIM_TICK_HZ", 60),
		MaxFrameSeconds:         getEnvFloat("SIM_MAX_FRAME_SECONDS", 0.1),
		RestSpeed:               getEnvFloat("SIM_REST_SPEED", 0.01),
		IdleStopSeconds:         getEnvInt("SIM_IDLE_STOP_SECONDS", 30),
		IdleWorkerPollSeconds:   getEnvInt("IDLE_WORKER_POLL_SECONDS", 5),
		SnapshotIntervalSeconds: getEnvInt("SNAPSHOT_INTERVAL_SECONDS", 10),
	}
}

// Physics returns the integrator configuration for a new table.
func (c *Config) Physics() physics.Config {
	return physics.Config{
		BallCount:            c.BallCount,
		Radius:               c.BallRadius,
		TableWidth:           c.TableWidth,
		TableLength:          c.TableLength,
		SurfaceY:             c.TableSurfaceY,
		MaxInitialSpeed:      c.MaxInitialSpeed,
		Friction:             c.FrictionCoefficient,
		WallRestitution:      c.WallRestitution,
		CollisionRestitution: c.CollisionRestitution,
		RotationDamping:      c.RotationDamping,
		MaxPlacementAttempts: c.PlacementMaxAttempts,
		TextureCount:         physics.DefaultTextureCount,
	}
}

// TickInterval is the host loop period derived from TickHz.
func (c *Config) TickInterval() time.Duration {
	hz := c.TickHz
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}

// ViewerTokenTTL is the lifetime of a viewer token.
func (c *Config) ViewerTokenTTL() time.Duration {
	return time.Duration(c.ViewerTokenTTLMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
