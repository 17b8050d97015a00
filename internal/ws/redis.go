package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/billiards/internal/sim"
	"github.com/redis/go-redis/v9"
)

// StartFrameSubscriber relays frames published on sim.FrameChannel by any
// server instance to the viewers connected here.
func StartFrameSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; frame subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, sim.FrameChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", sim.FrameChannel)
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WS] %s subscriber stopping", sim.FrameChannel)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				relayFrame(hub, []byte(msg.Payload))
			}
		}
	}()
}

// relayFrame forwards an encoded frame to its table's room untouched.
func relayFrame(hub *Hub, payload []byte) {
	var head struct {
		Type       string `json:"type"`
		TableToken string `json:"table_token"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		log.Printf("[WS] invalid frame payload: %v", err)
		return
	}
	if head.TableToken == "" {
		log.Printf("[WS] frame without table_token dropped")
		return
	}
	hub.BroadcastRaw(head.TableToken, payload)
}
