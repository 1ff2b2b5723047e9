package page

import (
	"context"
	"ms-groups/internal/models"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory Redis so the tests need no server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedis_AppendAndRead(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, "page-1", "", time.Minute)
	require.NoError(t, c.Open(ctx))

	require.NoError(t, c.Append(ctx, models.Fragment{BatchID: "b1", GroupKey: "2", Seq: 0, HTML: "<li>2</li>"}))
	require.NoError(t, c.Append(ctx, models.Fragment{BatchID: "b1", GroupKey: "1", Seq: 1, HTML: "<li>1</li>"}))

	fragments, err := c.Fragments(ctx)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "<li>2</li>", fragments[0].HTML)
	assert.Equal(t, "1", fragments[1].GroupKey)
	assert.Equal(t, 1, fragments[1].Seq)

	n, err := client.LLen(ctx, "page:page-1:#groups").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedis_AppendToUnopenedPageIsGone(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, "never-opened", GroupsSelector, time.Minute)
	assert.ErrorIs(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}), ErrContainerGone)

	exists, err := client.Exists(ctx, "page:never-opened:#groups").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists, "a gone page must not get a fragment list")
}

func TestRedis_CloseTearsDown(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, "page-2", GroupsSelector, time.Minute)
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}))
	require.NoError(t, c.Close(ctx))

	assert.ErrorIs(t, c.Append(ctx, models.Fragment{HTML: "<li>2</li>"}), ErrContainerGone)
	_, err := c.Fragments(ctx)
	assert.ErrorIs(t, err, ErrContainerGone)
}

func TestRedis_PageExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, "page-3", GroupsSelector, time.Minute)
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}))

	mr.FastForward(2 * time.Minute)

	alive, err := c.Alive(ctx)
	require.NoError(t, err)
	assert.False(t, alive)
	assert.ErrorIs(t, c.Append(ctx, models.Fragment{HTML: "<li>2</li>"}), ErrContainerGone)
}

func TestRedis_ReopenKeepsFragments(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	pages := NewRedisPages(client, GroupsSelector, time.Minute)

	c, err := pages.Open(ctx, "page-5")
	require.NoError(t, err)
	require.NoError(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}))

	mr.FastForward(40 * time.Second)
	_, err = pages.Open(ctx, "page-5")
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)

	found, err := pages.Lookup(ctx, "page-5")
	require.NoError(t, err)
	fragments, err := found.Fragments(ctx)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "<li>1</li>", fragments[0].HTML)

	assert.Equal(t, mr.TTL("page:page-5:alive"), mr.TTL("page:page-5:#groups"))
}

func TestRedis_NoTTLKeepsPage(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	c := NewRedis(client, "page-4", GroupsSelector, 0)
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}))

	mr.FastForward(24 * time.Hour)

	fragments, err := c.Fragments(ctx)
	require.NoError(t, err)
	assert.Len(t, fragments, 1)
}

func TestRedisPages_Lifecycle(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	pages := NewRedisPages(client, GroupsSelector, time.Minute)

	_, err := pages.Lookup(ctx, "p")
	assert.ErrorIs(t, err, ErrContainerGone)

	c, err := pages.Open(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, c.Append(ctx, models.Fragment{HTML: "<li>1</li>"}))

	found, err := pages.Lookup(ctx, "p")
	require.NoError(t, err)
	fragments, err := found.Fragments(ctx)
	require.NoError(t, err)
	assert.Len(t, fragments, 1)

	require.NoError(t, pages.Close(ctx, "p"))
	assert.ErrorIs(t, pages.Close(ctx, "p"), ErrContainerGone)
}
