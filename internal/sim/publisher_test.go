package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisPublisherCachesLatestFrame(t *testing.T) {
	mr, rdb := newTestRedis(t)
	pub := NewRedisPublisher(rdb, 5*time.Minute)
	ctx := context.Background()

	s, err := NewSession("tbl_cache", testConfig().Physics(), 3, testOptions())
	require.NoError(t, err)
	first, err := s.Advance(0.02)
	require.NoError(t, err)
	second, err := s.Advance(0.02)
	require.NoError(t, err)

	require.NoError(t, pub.PublishFrame(ctx, first))
	require.NoError(t, pub.PublishFrame(ctx, second))

	got, err := pub.LatestFrame(ctx, "tbl_cache")
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Equal(t, 5*time.Minute, mr.TTL(frameKey("tbl_cache")))
}

func TestRedisPublisherPublishesOnFrameChannel(t *testing.T) {
	_, rdb := newTestRedis(t)
	pub := NewRedisPublisher(rdb, 0)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, FrameChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	f := Frame{Type: "frame", TableToken: "tbl_pub", Status: StatusRunning, Frame: 7}
	require.NoError(t, pub.PublishFrame(ctx, f))

	select {
	case msg := <-ch:
		assert.Equal(t, FrameChannel, msg.Channel)
		assert.Contains(t, msg.Payload, `"table_token":"tbl_pub"`)
		assert.Contains(t, msg.Payload, `"frame":7`)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received on " + FrameChannel)
	}
}

func TestRedisPublisherLatestFrameErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	pub := NewRedisPublisher(rdb, time.Minute)
	ctx := context.Background()

	_, err := pub.LatestFrame(ctx, "tbl_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, mr.Set(frameKey("tbl_garbled"), "{not json"))
	_, err = pub.LatestFrame(ctx, "tbl_garbled")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionNotFound))

}

func TestRedisPublisherServerDown(t *testing.T) {
	down, err := miniredis.Run()
	require.NoError(t, err)
	addr := down.Addr()
	down.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()
	pub := NewRedisPublisher(rdb, time.Minute)
	ctx := context.Background()

	assert.Error(t, pub.PublishFrame(ctx, Frame{TableToken: "tbl_down"}))
	_, err = pub.LatestFrame(ctx, "tbl_down")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionNotFound))
}
