package sim

import (
	"context"
	"log"
	"time"
)

// StartIdleWorker starts a background worker that stops tables whose balls
// have all been at rest for longer than the idle timeout, and snapshots the
// others on the configured interval.
func (m *Manager) StartIdleWorker(ctx context.Context) {
	poll := time.Duration(m.config.IdleWorkerPollSeconds) * time.Second
	if poll <= 0 {
		log.Println("[IDLE] Poll interval not set; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				m.sweep(ctx, now)
			}
		}
	}()
}

// sweep runs one idle pass and returns the tokens of the tables it stopped.
func (m *Manager) sweep(ctx context.Context, now time.Time) []string {
	var stopped []string
	for _, s := range m.Tables() {
		if m.opts.IdleStop > 0 && s.RestingFor(now) >= m.opts.IdleStop {
			log.Printf("[IDLE] Table %s at rest for %s; stopping", s.Token, s.RestingFor(now).Round(time.Second))
			if err := m.StopTable(ctx, s.Token, StopReasonAtRest); err != nil {
				log.Printf("[IDLE] stop failed for %s: %v", s.Token, err)
				continue
			}
			stopped = append(stopped, s.Token)
			continue
		}

		if m.store != nil && s.ID > 0 && s.snapshotDue(now, m.opts.SnapshotInterval) {
			m.saveSnapshot(ctx, s)
		}
	}
	return stopped
}
