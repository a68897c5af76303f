package dashboard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/dashgw/internal/cache"
	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

func newRedisResponseCache(t *testing.T) (*ResponseCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := cache.New(&config.CacheConfig{
		Enabled: true,
		Type:    config.CacheTypeRedis,
		TTL:     config.Duration(600 * time.Second),
		Redis:   config.RedisCacheConfig{URL: "redis://" + mr.Addr()},
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewResponseCache(store, 600*time.Second, observability.NopLogger()), mr
}

func sampleComposite() Composite {
	return Composite{
		User:       []byte(userJSON),
		Attendance: []byte(attendanceJSON),
		Leaves:     []byte(leavesJSON),
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	k := NewKey("123", "01")
	assert.Equal(t, "dashboard:123:01", k.String())
	assert.Equal(t, "123", k.Params().SubjectID)
	assert.Equal(t, "01", k.Params().Period)

	assert.Equal(t, k, NewKey("123", "01"))
	assert.NotEqual(t, k, NewKey("123", "1"))
	assert.NotEqual(t, k, NewKey("0123", "01"))
}

func TestComposite_Complete(t *testing.T) {
	t.Parallel()

	assert.True(t, sampleComposite().Complete())
	assert.False(t, Composite{}.Complete())

	partial := sampleComposite()
	partial.Leaves = nil
	assert.False(t, partial.Complete())
}

func TestComposite_JSONShape(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(sampleComposite())
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":`+userJSON+`,"attendance":`+attendanceJSON+`,"leaves":`+leavesJSON+`}`, string(b))
}

func TestResponseCache_RoundTrip(t *testing.T) {
	t.Parallel()

	rc, mr := newRedisResponseCache(t)
	ctx := context.Background()
	key := NewKey("123", "01")

	_, ok := rc.Get(ctx, key)
	assert.False(t, ok)

	rc.Put(ctx, key, sampleComposite(), 0)

	got, ok := rc.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, userJSON, string(got.User))
	assert.JSONEq(t, attendanceJSON, string(got.Attendance))
	assert.JSONEq(t, leavesJSON, string(got.Leaves))

	assert.True(t, mr.Exists("dashboard:123:01"))
	assert.Equal(t, 600*time.Second, mr.TTL("dashboard:123:01"))
}

func TestResponseCache_Expiry(t *testing.T) {
	t.Parallel()

	rc, mr := newRedisResponseCache(t)
	ctx := context.Background()
	key := NewKey("123", "01")

	rc.Put(ctx, key, sampleComposite(), 30*time.Second)
	assert.Equal(t, 30*time.Second, mr.TTL(key.String()))

	mr.FastForward(31 * time.Second)
	_, ok := rc.Get(ctx, key)
	assert.False(t, ok)
}

func TestResponseCache_Overwrite(t *testing.T) {
	t.Parallel()

	rc, _ := newRedisResponseCache(t)
	ctx := context.Background()
	key := NewKey("123", "01")

	rc.Put(ctx, key, sampleComposite(), 0)
	updated := sampleComposite()
	updated.User = []byte(`{"user_id":123,"name":"B"}`)
	rc.Put(ctx, key, updated, 0)

	got, ok := rc.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"user_id":123,"name":"B"}`, string(got.User))
}

func TestResponseCache_RefusesIncomplete(t *testing.T) {
	t.Parallel()

	rc, mr := newRedisResponseCache(t)
	partial := sampleComposite()
	partial.Attendance = nil

	rc.Put(context.Background(), NewKey("1", "01"), partial, 0)
	assert.False(t, mr.Exists("dashboard:1:01"))
}

func TestResponseCache_UndecodableEntryIsMiss(t *testing.T) {
	t.Parallel()

	rc, mr := newRedisResponseCache(t)
	require.NoError(t, mr.Set("dashboard:1:01", "not json"))
	require.NoError(t, mr.Set("dashboard:2:01", `{"user":{}}`))

	_, ok := rc.Get(context.Background(), NewKey("1", "01"))
	assert.False(t, ok)
	_, ok = rc.Get(context.Background(), NewKey("2", "01"))
	assert.False(t, ok)
}

func TestResponseCache_StoreDown(t *testing.T) {
	t.Parallel()

	rc, mr := newRedisResponseCache(t)
	mr.Close()

	assert.NotPanics(t, func() {
		rc.Put(context.Background(), NewKey("1", "01"), sampleComposite(), 0)
	})
	_, ok := rc.Get(context.Background(), NewKey("1", "01"))
	assert.False(t, ok)
}
