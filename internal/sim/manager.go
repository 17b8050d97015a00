package sim

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/models"
	"github.com/playmatatu/billiards/internal/physics"
)

// Store persists session records and snapshots.
type Store interface {
	CreateSession(ctx context.Context, s *models.SimulationSession) (int, error)
	FinishSession(ctx context.Context, id int, frames int64, simTime float64, reason string, stoppedAt time.Time) error
	SaveSnapshot(ctx context.Context, snap *models.SimulationSnapshot) error
	GetSessionByToken(ctx context.Context, token string) (*models.SimulationSession, error)
	ListSnapshots(ctx context.Context, sessionID, limit int) ([]models.SimulationSnapshot, error)
}

// Manager manages all running tables
type Manager struct {
	tables map[string]*Session // keyed by table token
	store  Store
	pub    Publisher
	config *config.Config
	opts   Options
	ctx    context.Context // parent of every table loop
	mu     sync.RWMutex
}

// OptionsFromConfig derives the host loop options from the app config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TickInterval:     cfg.TickInterval(),
		MaxFrame:         cfg.MaxFrameSeconds,
		RestSpeed:        cfg.RestSpeed,
		IdleStop:         time.Duration(cfg.IdleStopSeconds) * time.Second,
		SnapshotInterval: time.Duration(cfg.SnapshotIntervalSeconds) * time.Second,
	}
}

// NewManager creates a table manager. store and pub may be nil, in which
// case nothing is persisted or published.
func NewManager(ctx context.Context, cfg *config.Config, store Store, pub Publisher) *Manager {
	return &Manager{
		tables: make(map[string]*Session),
		store:  store,
		pub:    pub,
		config: cfg,
		opts:   OptionsFromConfig(cfg),
		ctx:    ctx,
	}
}

// GetConfig returns the app config the manager was built with.
func (m *Manager) GetConfig() *config.Config {
	return m.config
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// CreateTable places the balls for a new table, records it and starts its
// host loop. A nil override uses the configured physics; a nil seed picks one
// from the clock.
func (m *Manager) CreateTable(ctx context.Context, override *physics.Config, seed *int64) (*Session, error) {
	physCfg := m.config.Physics()
	if override != nil {
		physCfg = *override
	}
	s0 := time.Now().UnixNano()
	if seed != nil {
		s0 = *seed
	}

	token := "tbl_" + generateToken(8)
	s, err := NewSession(token, physCfg, s0, m.opts)
	if err != nil {
		return nil, err
	}

	if m.store != nil {
		cfgJSON, err := json.Marshal(physCfg)
		if err != nil {
			return nil, err
		}
		id, err := m.store.CreateSession(ctx, &models.SimulationSession{
			TableToken: token,
			Config:     string(cfgJSON),
			Seed:       s0,
			Status:     string(StatusRunning),
			CreatedAt:  s.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("record table %s: %w", token, err)
		}
		s.ID = id
	}

	m.mu.Lock()
	m.tables[token] = s
	m.mu.Unlock()

	s.start(m.ctx, m.pub)
	log.Printf("[SIM] Table created: %s (session=%d seed=%d balls=%d)", token, s.ID, s0, physCfg.BallCount)
	return s, nil
}

// GetTable returns a running table by token.
func (m *Manager) GetTable(token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.tables[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Tables returns every running table.
func (m *Manager) Tables() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.tables))
	for _, s := range m.tables {
		out = append(out, s)
	}
	return out
}

// StopTable stops a table's loop, persists its final state and publishes a
// last frame so viewers see it stop.
func (m *Manager) StopTable(ctx context.Context, token, reason string) error {
	m.mu.Lock()
	s, ok := m.tables[token]
	if ok {
		delete(m.tables, token)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if !s.stop(reason) {
		return ErrSessionStopped
	}

	final := s.Frame()
	if m.pub != nil {
		if err := m.pub.PublishFrame(ctx, final); err != nil {
			log.Printf("[SIM] final frame publish failed for %s: %v", token, err)
		}
	}
	if m.store != nil && s.ID > 0 {
		m.saveSnapshot(ctx, s)
		if err := m.store.FinishSession(ctx, s.ID, final.Frame, final.SimTime, reason, time.Now()); err != nil {
			log.Printf("[DB] Failed to finish session %d: %v", s.ID, err)
		}
	}
	log.Printf("[SIM] Table stopped: %s (reason=%s frames=%d sim_time=%.2fs)", token, reason, final.Frame, final.SimTime)
	return nil
}

// Shutdown stops every running table.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, s := range m.Tables() {
		if err := m.StopTable(ctx, s.Token, StopReasonShutdown); err != nil {
			log.Printf("[SIM] shutdown stop failed for %s: %v", s.Token, err)
		}
	}
}

// Snapshots lists persisted snapshots for a running or finished table.
func (m *Manager) Snapshots(ctx context.Context, token string, limit int) ([]models.SimulationSnapshot, error) {
	if m.store == nil {
		return nil, nil
	}
	sessionID := 0
	if s, err := m.GetTable(token); err == nil {
		sessionID = s.ID
	} else {
		rec, err := m.store.GetSessionByToken(ctx, token)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, err
		}
		sessionID = rec.ID
	}
	return m.store.ListSnapshots(ctx, sessionID, limit)
}

func (m *Manager) saveSnapshot(ctx context.Context, s *Session) {
	snap, err := s.Snapshot()
	if err != nil {
		log.Printf("[SIM] snapshot failed for %s: %v", s.Token, err)
		return
	}
	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		log.Printf("[DB] Failed to save snapshot for session %d: %v", s.ID, err)
	}
}
