package sim

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/models"
	"github.com/playmatatu/billiards/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	sessions  map[int]*models.SimulationSession
	snapshots []models.SimulationSnapshot
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[int]*models.SimulationSession)}
}

func (f *fakeStore) CreateSession(ctx context.Context, s *models.SimulationSession) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec := *s
	rec.ID = f.nextID
	f.sessions[rec.ID] = &rec
	return rec.ID, nil
}

func (f *fakeStore) FinishSession(ctx context.Context, id int, frames int64, simTime float64, reason string, stoppedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.sessions[id]
	if !ok {
		return sql.ErrNoRows
	}
	rec.Status = string(StatusStopped)
	rec.Frames = frames
	rec.SimTime = simTime
	rec.StopReason = reason
	rec.StoppedAt = sql.NullTime{Time: stoppedAt, Valid: true}
	return nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, snap *models.SimulationSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, *snap)
	return nil
}

func (f *fakeStore) GetSessionByToken(ctx context.Context, token string) (*models.SimulationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.sessions {
		if rec.TableToken == token {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ListSnapshots(ctx context.Context, sessionID, limit int) ([]models.SimulationSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SimulationSnapshot
	for _, s := range f.snapshots {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	frames []Frame
}

func (p *fakePublisher) PublishFrame(ctx context.Context, f Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return nil
}

func (p *fakePublisher) published() []Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Frame(nil), p.frames...)
}

func testConfig() *config.Config {
	return &config.Config{
		TableWidth:              physics.DefaultTableWidth,
		TableLength:             physics.DefaultTableLength,
		BallCount:               physics.DefaultBallCount,
		BallRadius:              physics.DefaultBallRadius,
		MaxInitialSpeed:         physics.DefaultMaxInitialSpeed,
		PlacementMaxAttempts:    physics.DefaultPlacementAttempts,
		FrictionCoefficient:     physics.DefaultFriction,
		WallRestitution:         physics.DefaultWallRestitution,
		CollisionRestitution:    physics.DefaultCollisionRestitution,
		RotationDamping:         physics.DefaultRotationDamping,
		TickHz:                  60,
		MaxFrameSeconds:         0.1,
		RestSpeed:               0.01,
		IdleStopSeconds:         30,
		IdleWorkerPollSeconds:   5,
		SnapshotIntervalSeconds: 10,
	}
}

// newTestManager returns a manager whose table loops never tick on their own.
func newTestManager(t *testing.T, store Store, pub Publisher) *Manager {
	t.Helper()
	m := NewManager(context.Background(), testConfig(), store, pub)
	m.opts.TickInterval = time.Hour
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m
}

func testOptions() Options {
	return OptionsFromConfig(testConfig())
}

func TestNewSessionIsReproducible(t *testing.T) {
	cfg := testConfig().Physics()
	a, err := NewSession("a", cfg, 1234, testOptions())
	require.NoError(t, err)
	b, err := NewSession("b", cfg, 1234, testOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Frame().Balls, b.Frame().Balls)
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig().Physics()
	cfg.Radius = -1

	_, err := NewSession("bad", cfg, 1, testOptions())
	assert.True(t, errors.Is(err, physics.ErrInvalidConfig))
}

func TestAdvanceClampsElapsedTime(t *testing.T) {
	s, err := NewSession("t", testConfig().Physics(), 1, testOptions())
	require.NoError(t, err)

	f, err := s.Advance(-0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.DT)
	assert.Equal(t, int64(1), f.Frame)

	f, err = s.Advance(5)
	require.NoError(t, err)
	assert.Equal(t, 0.1, f.DT)
	assert.InDelta(t, 0.1, f.SimTime, 1e-12)

	f, err = s.Advance(0.02)
	require.NoError(t, err)
	assert.Equal(t, 0.02, f.DT)
	assert.Equal(t, int64(3), f.Frame)
	assert.Len(t, f.Balls, physics.DefaultBallCount)
	assert.Equal(t, "frame", f.Type)
}

func TestAdvanceAfterStop(t *testing.T) {
	s, err := NewSession("t", testConfig().Physics(), 1, testOptions())
	require.NoError(t, err)

	require.True(t, s.stop(StopReasonRequested))
	assert.False(t, s.stop(StopReasonRequested))

	_, err = s.Advance(0.01)
	assert.ErrorIs(t, err, ErrSessionStopped)
	assert.ErrorIs(t, s.Kick(), ErrSessionStopped)

	status, reason := s.Status()
	assert.Equal(t, StatusStopped, status)
	assert.Equal(t, StopReasonRequested, reason)
}

func TestRestTrackingAndKick(t *testing.T) {
	cfg := testConfig().Physics()
	cfg.MaxInitialSpeed = 0
	s, err := NewSession("t", cfg, 1, testOptions())
	require.NoError(t, err)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	assert.Zero(t, s.RestingFor(clock))
	f, err := s.Advance(0.01)
	require.NoError(t, err)
	assert.True(t, f.AtRest)
	assert.Equal(t, 45*time.Second, s.RestingFor(clock.Add(45*time.Second)))

	// restingSince keeps its first value while the table stays still
	clock = clock.Add(10 * time.Second)
	_, err = s.Advance(0.01)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, s.RestingFor(clock.Add(35*time.Second)))

	s.cfg.MaxInitialSpeed = 20
	require.NoError(t, s.Kick())
	assert.Zero(t, s.RestingFor(clock))
	f, err = s.Advance(0.01)
	require.NoError(t, err)
	assert.False(t, f.AtRest)
	assert.Greater(t, f.KineticEnergy, 0.0)
}

func TestSnapshotCarriesBallState(t *testing.T) {
	s, err := NewSession("t", testConfig().Physics(), 9, testOptions())
	require.NoError(t, err)
	s.ID = 42
	_, err = s.Advance(0.05)
	require.NoError(t, err)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 42, snap.SessionID)
	assert.Equal(t, int64(1), snap.Frame)

	var balls []physics.Ball
	require.NoError(t, json.Unmarshal([]byte(snap.Balls), &balls))
	require.Len(t, balls, physics.DefaultBallCount)
	assert.Equal(t, s.Frame().Balls[3].Position, [3]float64(balls[3].Position))
}

func TestManagerCreateAndStop(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	m := newTestManager(t, store, pub)

	seed := int64(77)
	s, err := m.CreateTable(context.Background(), nil, &seed)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)
	assert.Equal(t, int64(77), s.Seed)

	got, err := m.GetTable(s.Token)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = s.Advance(0.016)
	require.NoError(t, err)

	require.NoError(t, m.StopTable(context.Background(), s.Token, StopReasonRequested))

	_, err = m.GetTable(s.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.StopTable(context.Background(), s.Token, StopReasonRequested), ErrSessionNotFound)

	frames := pub.published()
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, StatusStopped, last.Status)
	assert.Equal(t, int64(1), last.Frame)

	rec, err := store.GetSessionByToken(context.Background(), s.Token)
	require.NoError(t, err)
	assert.Equal(t, string(StatusStopped), rec.Status)
	assert.Equal(t, StopReasonRequested, rec.StopReason)
	assert.Equal(t, int64(1), rec.Frames)

	snaps, err := m.Snapshots(context.Background(), s.Token, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(1), snaps[0].Frame)
}

func TestManagerCreateWithOverride(t *testing.T) {
	m := newTestManager(t, nil, nil)

	override := physics.DefaultConfig()
	override.BallCount = 3
	s, err := m.CreateTable(context.Background(), &override, nil)
	require.NoError(t, err)
	assert.Len(t, s.Frame().Balls, 3)
	assert.Zero(t, s.ID)

	override.Radius = 100
	_, err = m.CreateTable(context.Background(), &override, nil)
	assert.ErrorIs(t, err, physics.ErrInvalidConfig)
}

func TestManagerSnapshotsUnknownTable(t *testing.T) {
	m := newTestManager(t, newFakeStore(), nil)

	_, err := m.Snapshots(context.Background(), "tbl_missing", 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepStopsRestingTables(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, store, &fakePublisher{})

	still := physics.DefaultConfig()
	still.MaxInitialSpeed = 0
	resting, err := m.CreateTable(context.Background(), &still, nil)
	require.NoError(t, err)
	moving, err := m.CreateTable(context.Background(), nil, nil)
	require.NoError(t, err)

	start := time.Now()
	resting.now = func() time.Time { return start }
	_, err = resting.Advance(0.01)
	require.NoError(t, err)
	_, err = moving.Advance(0.01)
	require.NoError(t, err)

	// not yet idle long enough, and no snapshot due
	assert.Empty(t, m.sweep(context.Background(), start.Add(5*time.Second)))

	stopped := m.sweep(context.Background(), start.Add(31*time.Second))
	assert.Equal(t, []string{resting.Token}, stopped)

	_, err = m.GetTable(resting.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.GetTable(moving.Token)
	assert.NoError(t, err)

	rec, err := store.GetSessionByToken(context.Background(), resting.Token)
	require.NoError(t, err)
	assert.Equal(t, StopReasonAtRest, rec.StopReason)

	// the moving table was snapshotted because the interval elapsed
	snaps, err := m.Snapshots(context.Background(), moving.Token, 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRunPublishesFrames(t *testing.T) {
	pub := &fakePublisher{}
	opts := testOptions()
	opts.TickInterval = 5 * time.Millisecond
	s, err := NewSession("run", testConfig().Physics(), 3, opts)
	require.NoError(t, err)

	s.start(context.Background(), pub)
	require.Eventually(t, func() bool { return len(pub.published()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, s.stop(StopReasonRequested))

	frames := pub.published()
	for i, f := range frames {
		assert.Equal(t, int64(i+1), f.Frame)
		assert.Greater(t, f.DT, 0.0)
		assert.LessOrEqual(t, f.DT, opts.MaxFrame)
	}

	// nothing is published once the loop has exited
	n := len(frames)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, pub.published(), n)
}
