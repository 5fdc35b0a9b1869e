package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	val := []byte("summary")
	c.Set(ctx, "k", val, 0)
	val[0] = 'X'

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "summary", string(got), "stored value is a copy")
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 9, 7, 12, 0, 0, 0, time.UTC)
	c := &memory{m: make(map[string]entry), now: func() time.Time { return now }}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, c.m)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	type summary struct {
		BreachRate float64 `json:"breach_rate"`
	}
	require.NoError(t, SetJSON(ctx, c, "s", summary{BreachRate: 0.25}, 0))

	var got summary
	require.True(t, GetJSON(ctx, c, "s", &got))
	assert.Equal(t, 0.25, got.BreachRate)

	c.Set(ctx, "bad", []byte("{"), 0)
	assert.False(t, GetJSON(ctx, c, "bad", &got))
}

func TestNew_FallsBackToMemory(t *testing.T) {
	_, ok := New("", "optionflight:").(*memory)
	assert.True(t, ok)
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "mc:9f86d081:breakout:42:100:200", SummaryKey("9f86d081", "breakout", 42, 100, 200))
}

func TestRedis_UnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	c := New("127.0.0.1:1", "optionflight:")
	_, isRedis := c.(*redisCache)
	require.True(t, isRedis)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_PrefixedSetAndGet(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "optionflight:")

	mock.ExpectSet("optionflight:mc:abc", []byte(`{"breach_rate":0.5}`), 90*time.Second).SetVal("OK")
	mock.ExpectGet("optionflight:mc:abc").SetVal(`{"breach_rate":0.5}`)
	mock.ExpectGet("optionflight:mc:missing").RedisNil()
	mock.ExpectGet("optionflight:mc:broken").SetErr(errors.New("connection reset"))

	c.Set(ctx, "mc:abc", []byte(`{"breach_rate":0.5}`), 90*time.Second)

	got, ok := c.Get(ctx, "mc:abc")
	require.True(t, ok)
	assert.JSONEq(t, `{"breach_rate":0.5}`, string(got))

	_, ok = c.Get(ctx, "mc:missing")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "mc:broken")
	assert.False(t, ok, "redis errors degrade to a miss")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "p:")

	type summary struct {
		Runs int `json:"runs"`
	}
	mock.ExpectSet("p:k", []byte(`{"runs":4}`), time.Hour).SetVal("OK")
	mock.ExpectGet("p:k").SetVal(`{"runs":4}`)

	require.NoError(t, SetJSON(ctx, c, "k", summary{Runs: 4}, time.Hour))
	var got summary
	require.True(t, GetJSON(ctx, c, "k", &got))
	assert.Equal(t, 4, got.Runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
