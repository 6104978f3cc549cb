package spin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTASLockMutualExclusion(t *testing.T) {
	var lock TTASLock
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock.Lock()
			defer lock.Unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestTTASLockTryLock(t *testing.T) {
	var lock TTASLock
	assert.True(t, lock.TryLock())
	assert.False(t, lock.TryLock())
	lock.Unlock()
	assert.True(t, lock.TryLock())
}

func TestBackoffExponentialCapReset(t *testing.T) {
	b := NewBackoff(1*time.Second, 60*time.Second)
	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, 1*time.Second, b.Next())
}

func TestBackoffCapsAtMax(t *testing.T) {
	b := NewBackoff(30*time.Second, 60*time.Second)
	b.Next()             // 30s, advances to 60s
	assert.Equal(t, 60*time.Second, b.Next())
	assert.Equal(t, 60*time.Second, b.Next())
}

func TestWaiterProgressesThroughStages(t *testing.T) {
	var w Waiter
	for i := 0; i < spinThreshold+1; i++ {
		w.Wait()
	}
	w.Reset()
	assert.Equal(t, 0, w.attempts)
}
