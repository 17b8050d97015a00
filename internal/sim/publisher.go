package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FrameChannel is the Redis pub/sub channel carrying every published frame.
const FrameChannel = "sim_frames"

// Publisher hands frames to whatever renders them.
type Publisher interface {
	PublishFrame(ctx context.Context, f Frame) error
}

// RedisPublisher caches the latest frame per table and fans frames out over
// Redis pub/sub so any server instance can relay them to viewers.
type RedisPublisher struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPublisher creates a publisher whose cached frames expire after ttl.
func NewRedisPublisher(rdb *redis.Client, ttl time.Duration) *RedisPublisher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisPublisher{rdb: rdb, ttl: ttl}
}

func frameKey(token string) string {
	return "table:" + token + ":frame"
}

// PublishFrame stores the frame as the table's latest and publishes it.
func (p *RedisPublisher) PublishFrame(ctx context.Context, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	pipe := p.rdb.Pipeline()
	pipe.SetEx(ctx, frameKey(f.TableToken), data, p.ttl)
	pipe.Publish(ctx, FrameChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish frame for %s: %w", f.TableToken, err)
	}
	return nil
}

// LatestFrame returns the most recently published frame for a table.
func (p *RedisPublisher) LatestFrame(ctx context.Context, token string) (Frame, error) {
	var f Frame
	data, err := p.rdb.Get(ctx, frameKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return f, ErrSessionNotFound
	}
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode frame for %s: %w", token, err)
	}
	return f, nil
}
