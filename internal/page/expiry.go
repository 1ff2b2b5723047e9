package page

import (
	"context"
	"fmt"
	"ms-groups/internal/logger"
	"strings"

	"github.com/go-redis/redis/v8"
)

// EnableExpiryEvents turns on Redis keyspace notifications for expired keys.
func EnableExpiryEvents(ctx context.Context, client *redis.Client) error {
	return client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// PageIDFromExpiredKey returns the page whose alive key expired, if key is one.
func PageIDFromExpiredKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "page:") || !strings.HasSuffix(key, ":alive") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, "page:"), ":alive")
	if id == "" {
		return "", false
	}
	return id, true
}

// WatchExpiry calls onExpire for every Redis page that times out, until ctx
// is done.
func WatchExpiry(ctx context.Context, client *redis.Client, log *logger.Logger, onExpire func(pageID string)) {
	if log == nil {
		log = logger.Discard()
	}
	pubsub := client.PSubscribe(ctx, fmt.Sprintf("__keyevent@%d__:expired", client.Options().DB))
	log.Info("REDIS", fmt.Sprintf("Subscribed to expired key events (DB %d)", client.Options().DB))

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				pageID, ok := PageIDFromExpiredKey(msg.Payload)
				if !ok {
					continue
				}
				log.LogPage(pageID, "page expired")
				onExpire(pageID)
			}
		}
	}()
}
