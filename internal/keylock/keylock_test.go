package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "stock:1:2")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLocalDistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLocalUnlockIsIdempotent(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock2, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	unlock2()
}

type recordingLocker struct {
	name string
	log  *[]string
	fail bool
}

func (r recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	if r.fail {
		return nil, errors.New("unavailable")
	}
	*r.log = append(*r.log, "lock "+r.name)
	return func() { *r.log = append(*r.log, "unlock "+r.name) }, nil
}

func TestChainOrder(t *testing.T) {
	var log []string
	c := Chain{recordingLocker{name: "a", log: &log}, recordingLocker{name: "b", log: &log}}

	unlock, err := c.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()

	assert.Equal(t, []string{"lock a", "lock b", "unlock b", "unlock a"}, log)
}

func TestChainReleasesOnFailure(t *testing.T) {
	var log []string
	c := Chain{recordingLocker{name: "a", log: &log}, recordingLocker{name: "b", log: &log, fail: true}}

	_, err := c.Lock(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, []string{"lock a", "unlock a"}, log)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "ledger:42", GuildKey("ledger", 42))
	assert.Equal(t, "stock:42:7", AdminKey("stock", 42, 7))
}

func TestKeepAliveRenewsUntilStopped(t *testing.T) {
	var renewals atomic.Int32
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		keepAlive(stop, time.Millisecond, "ledger:1", func() (bool, error) {
			renewals.Add(1)
			return true, nil
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return renewals.Load() >= 3 }, time.Second, time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not stop")
	}
}

func TestKeepAliveStopsWhenLockIsLost(t *testing.T) {
	var renewals atomic.Int32
	done := make(chan struct{})
	go func() {
		keepAlive(make(chan struct{}), time.Millisecond, "ledger:1", func() (bool, error) {
			if renewals.Add(1) == 1 {
				return false, errors.New("redis timeout")
			}
			return false, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after the lock was lost")
	}
	assert.EqualValues(t, 2, renewals.Load())
}
