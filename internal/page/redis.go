package page

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-groups/internal/models"
	"time"

	"github.com/go-redis/redis/v8"
)

// appendScript pushes onto the fragment list only while the page is alive, so
// a teardown between the liveness check and the push cannot resurrect it.
var appendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
local n = redis.call("RPUSH", KEYS[2], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[2], ttl)
	redis.call("PEXPIRE", KEYS[1], ttl)
end
return n
`)

// openScript marks the page alive and moves the fragment list to the same
// deadline, so reopening a live page never strands its fragments.
var openScript = redis.NewScript(`
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
	if redis.call("EXISTS", KEYS[2]) == 1 then
		redis.call("PEXPIRE", KEYS[2], ttl)
	end
else
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("PERSIST", KEYS[2])
end
return 1
`)

// Redis keeps a page container in two keys: page:{id}:alive marks the page
// open and page:{id}:{selector} holds the JSON-encoded fragments in order.
type Redis struct {
	Client   *redis.Client
	PageID   string
	selector string
	ttl      time.Duration
}

func NewRedis(client *redis.Client, pageID, selector string, ttl time.Duration) *Redis {
	if selector == "" {
		selector = GroupsSelector
	}
	return &Redis{
		Client:   client,
		PageID:   pageID,
		selector: selector,
		ttl:      ttl,
	}
}

func (r *Redis) aliveKey() string {
	return fmt.Sprintf("page:%s:alive", r.PageID)
}

func (r *Redis) listKey() string {
	return fmt.Sprintf("page:%s:%s", r.PageID, r.selector)
}

func (r *Redis) Selector() string {
	return r.selector
}

// Open marks the page alive. Opening an open page refreshes the TTL of both
// keys and keeps the fragments already appended.
func (r *Redis) Open(ctx context.Context) error {
	keys := []string{r.aliveKey(), r.listKey()}
	if err := openScript.Run(ctx, r.Client, keys, time.Now().UTC().Format(time.RFC3339), r.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("open page %s: %w", r.PageID, err)
	}
	return nil
}

func (r *Redis) Alive(ctx context.Context) (bool, error) {
	n, err := r.Client.Exists(ctx, r.aliveKey()).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Append(ctx context.Context, f models.Fragment) error {
	value, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	n, err := appendScript.Run(ctx, r.Client, []string{r.aliveKey(), r.listKey()}, value, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("append to page %s: %w", r.PageID, err)
	}
	if n < 0 {
		return ErrContainerGone
	}
	return nil
}

func (r *Redis) Fragments(ctx context.Context) ([]models.Fragment, error) {
	alive, err := r.Alive(ctx)
	if err != nil {
		return nil, fmt.Errorf("check page %s: %w", r.PageID, err)
	}
	if !alive {
		return nil, ErrContainerGone
	}

	values, err := r.Client.LRange(ctx, r.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read page %s: %w", r.PageID, err)
	}

	fragments := make([]models.Fragment, 0, len(values))
	for _, v := range values {
		var f models.Fragment
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, fmt.Errorf("decode fragment of page %s: %w", r.PageID, err)
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

// Close deletes both keys.
func (r *Redis) Close(ctx context.Context) error {
	return r.Client.Del(ctx, r.aliveKey(), r.listKey()).Err()
}

// RedisPages hands out Redis containers sharing one client.
type RedisPages struct {
	Client   *redis.Client
	Selector string
	TTL      time.Duration
}

func NewRedisPages(client *redis.Client, selector string, ttl time.Duration) *RedisPages {
	return &RedisPages{Client: client, Selector: selector, TTL: ttl}
}

func (p *RedisPages) container(pageID string) *Redis {
	return NewRedis(p.Client, pageID, p.Selector, p.TTL)
}

func (p *RedisPages) Open(ctx context.Context, pageID string) (Container, error) {
	c := p.container(pageID)
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *RedisPages) Lookup(ctx context.Context, pageID string) (Container, error) {
	c := p.container(pageID)
	alive, err := c.Alive(ctx)
	if err != nil {
		return nil, fmt.Errorf("check page %s: %w", pageID, err)
	}
	if !alive {
		return nil, ErrContainerGone
	}
	return c, nil
}

func (p *RedisPages) Close(ctx context.Context, pageID string) error {
	c := p.container(pageID)
	alive, err := c.Alive(ctx)
	if err != nil {
		return fmt.Errorf("check page %s: %w", pageID, err)
	}
	if !alive {
		return ErrContainerGone
	}
	return c.Close(ctx)
}
