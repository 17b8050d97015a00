package models

import (
	"database/sql"
	"time"
)

// SimulationSession is one table run, from placement until it is stopped
type SimulationSession struct {
	ID         int          `db:"id" json:"id"`
	TableToken string       `db:"table_token" json:"table_token"`
	Config     string       `db:"config" json:"config"` // JSONB physics config
	Seed       int64        `db:"seed" json:"seed"`
	Status     string       `db:"status" json:"status"`
	Frames     int64        `db:"frames" json:"frames"`
	SimTime    float64      `db:"sim_time" json:"sim_time"`
	StopReason string       `db:"stop_reason" json:"stop_reason,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	StoppedAt  sql.NullTime `db:"stopped_at" json:"stopped_at,omitempty"`
}

// SimulationSnapshot stores the full ball state of a session at one frame
type SimulationSnapshot struct {
	ID            int       `db:"id" json:"id"`
	SessionID     int       `db:"session_id" json:"session_id"`
	Frame         int64     `db:"frame" json:"frame"`
	SimTime       float64   `db:"sim_time" json:"sim_time"`
	KineticEnergy float64   `db:"kinetic_energy" json:"kinetic_energy"`
	Balls         string    `db:"balls" json:"balls"` // JSONB ball array
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
