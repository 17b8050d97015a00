package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/billiards/internal/models"
)

// DefaultSnapshotLimit caps ListSnapshots when the caller passes no limit.
const DefaultSnapshotLimit = 50

// Store reads and writes simulation records in PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreateSession inserts a new session row and returns its id.
func (s *Store) CreateSession(ctx context.Context, sess *models.SimulationSession) (int, error) {
	var id int
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO simulation_sessions (table_token, config, seed, status, created_at)
		VALUES ($1, $2::jsonb, $3, $4, $5)
		RETURNING id`,
		sess.TableToken, sess.Config, sess.Seed, sess.Status, sess.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	sess.ID = id
	return id, nil
}

// FinishSession marks a session stopped and records how far it ran.
func (s *Store) FinishSession(ctx context.Context, id int, frames int64, simTime float64, reason string, stoppedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE simulation_sessions
		SET status = 'STOPPED', frames = $2, sim_time = $3, stop_reason = $4, stopped_at = $5
		WHERE id = $1`,
		id, frames, simTime, reason, stoppedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d not found", id)
	}
	return nil
}

// SaveSnapshot stores one snapshot of a session's ball state.
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.SimulationSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_snapshots (session_id, frame, sim_time, kinetic_energy, balls, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		snap.SessionID, snap.Frame, snap.SimTime, snap.KineticEnergy, snap.Balls, snap.CreatedAt)
	return err
}

// GetSessionByToken retrieves a session by table token. Returns
// sql.ErrNoRows if missing.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (*models.SimulationSession, error) {
	var sess models.SimulationSession
	err := s.db.GetContext(ctx, &sess, `
		SELECT id, table_token, config, seed, status, frames, sim_time, stop_reason, created_at, stopped_at
		FROM simulation_sessions WHERE table_token = $1`, token)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSnapshots returns a session's snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, sessionID, limit int) ([]models.SimulationSnapshot, error) {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	snaps := []models.SimulationSnapshot{}
	err := s.db.SelectContext(ctx, &snaps, `
		SELECT id, session_id, frame, sim_time, kinetic_energy, balls, created_at
		FROM simulation_snapshots
		WHERE session_id = $1
		ORDER BY frame DESC, id DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return snaps, nil
}
