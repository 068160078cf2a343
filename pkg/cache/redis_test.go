package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	opts := &redis.Options{
		Addr: mr.Addr(),
	}
	redisClient := redis.NewClient(opts)

	client := &Client{
		Redis: redisClient,
	}

	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, "funnel:report:30", `{"days":30}`, 5*time.Minute)
	require.NoError(t, err)

	val, err := client.Get(ctx, "funnel:report:30")
	require.NoError(t, err)
	assert.Equal(t, `{"days":30}`, val)
}

func TestClient_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "funnel:report:7", "data1", 5*time.Minute)
	_ = client.Set(ctx, "funnel:report:30", "data2", 5*time.Minute)

	err := client.Delete(ctx, "funnel:report:7")
	require.NoError(t, err)

	_, err = client.Get(ctx, "funnel:report:7")
	assert.Error(t, err) // Should be redis.Nil error

	val, err := client.Get(ctx, "funnel:report:30")
	require.NoError(t, err)
	assert.Equal(t, "data2", val)
}

func TestClient_Exists(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "funnel:report:30", "data", 5*time.Minute)

	exists, err := client.Exists(ctx, "funnel:report:30")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.Exists(ctx, "funnel:report:90")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_Expiration(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()

	err := client.Set(ctx, "funnel:report:30", "data", 5*time.Minute)
	require.NoError(t, err)

	// miniredis requires explicit time travel
	mr.FastForward(6 * time.Minute)

	_, err = client.Get(ctx, "funnel:report:30")
	assert.Error(t, err)
}
