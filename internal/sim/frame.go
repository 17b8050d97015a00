package sim

import (
	"github.com/playmatatu/billiards/internal/physics"
)

// Status is the lifecycle state of a table session.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusStopped Status = "STOPPED"
)

// Stop reasons recorded with a stopped session.
const (
	StopReasonRequested = "requested"
	StopReasonAtRest    = "at_rest"
	StopReasonShutdown  = "shutdown"
)

// BallState is the render-facing view of one ball.
type BallState struct {
	ID           int        `json:"id"`
	TextureIndex int        `json:"texture_index"`
	Position     [3]float64 `json:"position"`
	Velocity     [3]float64 `json:"velocity"`
	Orientation  [4]float64 `json:"orientation"` // x, y, z, w
	AngularSpeed float64    `json:"angular_speed"`
}

// Frame is what the host hands to a renderer after each step.
type Frame struct {
	Type          string      `json:"type"`
	TableToken    string      `json:"table_token"`
	Status        Status      `json:"status"`
	Frame         int64       `json:"frame"`
	SimTime       float64     `json:"sim_time"`
	DT            float64     `json:"dt"`
	Collisions    int         `json:"collisions"`
	WallHits      int         `json:"wall_hits"`
	KineticEnergy float64     `json:"kinetic_energy"`
	AtRest        bool        `json:"at_rest"`
	Balls         []BallState `json:"balls"`
}

func ballStates(balls []*physics.Ball) []BallState {
	out := make([]BallState, len(balls))
	for i, b := range balls {
		q := b.Orientation
		out[i] = BallState{
			ID:           b.ID,
			TextureIndex: b.TextureIndex,
			Position:     b.Position,
			Velocity:     b.Velocity,
			Orientation:  [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W},
			AngularSpeed: b.AngularSpeed,
		}
	}
	return out
}
