package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/playmatatu/billiards/internal/models"
	"github.com/playmatatu/billiards/internal/physics"
)

var (
	ErrSessionNotFound = errors.New("table not found")
	ErrSessionStopped  = errors.New("table is stopped")
)

// Options controls the host loop that drives a session.
type Options struct {
	TickInterval     time.Duration
	MaxFrame         float64 // seconds; longer gaps between ticks are clamped
	RestSpeed        float64 // a ball at or below this speed counts as at rest
	IdleStop         time.Duration
	SnapshotInterval time.Duration
}

// Session owns one table: its balls, a single shared clock and the frame
// counter. All access goes through the session lock; the physics package
// itself is not safe for concurrent use.
type Session struct {
	ID        int // database id, 0 when not persisted
	Token     string
	Seed      int64
	CreatedAt time.Time

	cfg  physics.Config
	opts Options
	now  func() time.Time

	mu           sync.RWMutex
	balls        []*physics.Ball
	rng          *rand.Rand
	frame        int64
	simTime      float64
	lastDT       float64
	lastStats    physics.StepStats
	status       Status
	stopReason   string
	restingSince time.Time
	lastSnapshot time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession places the balls for a new table using a random source seeded
// with seed, so the same seed always produces the same opening layout.
func NewSession(token string, cfg physics.Config, seed int64, opts Options) (*Session, error) {
	rng := rand.New(rand.NewSource(seed))
	balls, err := physics.PlaceBalls(cfg, rng)
	if err != nil {
		return nil, fmt.Errorf("place balls: %w", err)
	}
	now := time.Now()
	return &Session{
		Token:        token,
		Seed:         seed,
		CreatedAt:    now,
		cfg:          cfg,
		opts:         opts,
		now:          time.Now,
		balls:        balls,
		rng:          rng,
		status:       StatusRunning,
		lastSnapshot: now,
	}, nil
}

// Config returns the physics configuration of the table.
func (s *Session) Config() physics.Config {
	return s.cfg
}

// Status returns the session status and, once stopped, the stop reason.
func (s *Session) Status() (Status, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.stopReason
}

// Advance runs one integrator step with the elapsed time dt (seconds) and
// returns the resulting frame. dt is clamped to [0, MaxFrame].
func (s *Session) Advance(dt float64) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return Frame{}, ErrSessionStopped
	}
	if !(dt > 0) {
		dt = 0
	}
	if s.opts.MaxFrame > 0 && dt > s.opts.MaxFrame {
		dt = s.opts.MaxFrame
	}

	stats, err := physics.Step(s.balls, dt, s.cfg)
	if err != nil {
		return Frame{}, fmt.Errorf("step table %s: %w", s.Token, err)
	}
	s.frame++
	s.simTime += dt
	s.lastDT = dt
	s.lastStats = stats

	if physics.AllAtRest(s.balls, s.opts.RestSpeed) {
		if s.restingSince.IsZero() {
			s.restingSince = s.now()
		}
	} else {
		s.restingSince = time.Time{}
	}

	return s.frameLocked(), nil
}

// Kick gives every ball a fresh random velocity, as at placement.
func (s *Session) Kick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return ErrSessionStopped
	}
	physics.RandomizeVelocities(s.balls, s.cfg.MaxInitialSpeed, s.rng)
	s.restingSince = time.Time{}
	return nil
}

// Frame returns the current state without stepping.
func (s *Session) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameLocked()
}

// RestingFor reports how long every ball has been at rest, or zero while
// anything is moving.
func (s *Session) RestingFor(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.restingSince.IsZero() {
		return 0
	}
	return now.Sub(s.restingSince)
}

func (s *Session) frameLocked() Frame {
	return Frame{
		Type:          "frame",
		TableToken:    s.Token,
		Status:        s.status,
		Frame:         s.frame,
		SimTime:       s.simTime,
		DT:            s.lastDT,
		Collisions:    s.lastStats.Collisions,
		WallHits:      s.lastStats.WallHits,
		KineticEnergy: physics.KineticEnergy(s.balls),
		AtRest:        physics.AllAtRest(s.balls, s.opts.RestSpeed),
		Balls:         ballStates(s.balls),
	}
}

// Snapshot captures the full ball state for persistence.
func (s *Session) Snapshot() (*models.SimulationSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.balls)
	if err != nil {
		return nil, fmt.Errorf("marshal balls: %w", err)
	}
	s.lastSnapshot = s.now()
	return &models.SimulationSnapshot{
		SessionID:     s.ID,
		Frame:         s.frame,
		SimTime:       s.simTime,
		KineticEnergy: physics.KineticEnergy(s.balls),
		Balls:         string(data),
		CreatedAt:     s.lastSnapshot,
	}, nil
}

// snapshotDue reports whether interval has passed since the last snapshot.
func (s *Session) snapshotDue(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSnapshot) >= interval
}

// Run is the host loop: once per tick it measures the wall-clock time since
// the previous tick, advances the table by exactly that much and publishes
// the frame. It returns when ctx is cancelled or the session stops.
func (s *Session) Run(ctx context.Context, pub Publisher) {
	interval := s.opts.TickInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	log.Printf("[SIM] table %s running (tick=%s balls=%d)", s.Token, interval, s.cfg.BallCount)
	last := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			frame, err := s.Advance(dt)
			if errors.Is(err, ErrSessionStopped) {
				return
			}
			if err != nil {
				log.Printf("[SIM] table %s step failed: %v", s.Token, err)
				continue
			}
			if pub == nil {
				continue
			}
			if err := pub.PublishFrame(ctx, frame); err != nil && ctx.Err() == nil {
				log.Printf("[SIM] table %s publish failed: %v", s.Token, err)
			}
		}
	}
}

// start launches Run in its own goroutine under a cancellable context.
func (s *Session) start(parent context.Context, pub Publisher) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Run(ctx, pub)
	}()
}

// stop marks the session stopped and waits for its loop to exit. It reports
// false if the session was already stopped.
func (s *Session) stop(reason string) bool {
	s.mu.Lock()
	if s.status == StatusStopped {
		s.mu.Unlock()
		return false
	}
	s.status = StatusStopped
	s.stopReason = reason
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return true
}
