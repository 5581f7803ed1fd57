package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Lock(ctx, "1700000000000-photo")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, km.Len(), "entries should be dropped once released")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := km.Lock(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_ContextCancelWhileWaiting(t *testing.T) {
	km := NewKeyedMutex()

	release, err := km.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "busy")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	release()
	release()
	assert.Equal(t, 0, km.Len())
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisLocker_Key(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Minute, nil)
	assert.Equal(t, "gallery:lock:1700000000000-photo", l.Key("1700000000000-photo"))
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Minute, nil)

	release, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)
	assert.True(t, mr.Exists("gallery:lock:asset"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "asset")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	release()
	assert.False(t, mr.Exists("gallery:lock:asset"))

	release2, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ExpiredLeaseIsNotDeletedByOldHolder(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Second, nil)

	staleRelease, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("gallery:lock:asset"))

	release, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)
	defer release()

	staleRelease()
	assert.True(t, mr.Exists("gallery:lock:asset"), "a stale holder must not release someone else's lease")
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, time.Minute, nil)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.Lock(ctx, "asset")
	assert.Error(t, err)
}

func TestRedisLocker_RenewsLeaseWhileHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, 300*time.Millisecond, nil)

	release, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)

	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("gallery:lock:asset") > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond, "lease should be extended back to the full ttl")

	// held well beyond the original ttl
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("gallery:lock:asset") > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, mr.Exists("gallery:lock:asset"))

	release()
	assert.False(t, mr.Exists("gallery:lock:asset"))
}

func TestRedisLocker_StopsRenewingAfterTakeover(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLocker(client, 300*time.Millisecond, nil)

	release, err := l.Lock(context.Background(), "asset")
	require.NoError(t, err)
	defer release()

	require.NoError(t, mr.Set("gallery:lock:asset", "someone-else"))
	mr.SetTTL("gallery:lock:asset", 50*time.Millisecond)

	time.Sleep(250 * time.Millisecond)
	assert.LessOrEqual(t, mr.TTL("gallery:lock:asset"), 50*time.Millisecond, "another holder's lease is never extended")
}
