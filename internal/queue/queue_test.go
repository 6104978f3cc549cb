package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSCQueueLosslessFIFO(t *testing.T) {
	q := NewSPSCQueue[int](8)

	var produced, consumed []int
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			for !q.Push(i) {
			}
			produced = append(produced, i)
		}
	}()

	for len(consumed) < 1000 {
		if v, ok := q.Pop(); ok {
			consumed = append(consumed, v)
		}
	}
	<-done

	require.Equal(t, len(produced), len(consumed))
	for i := range produced {
		assert.Equal(t, produced[i], consumed[i])
	}
}

func TestSPSCQueueFullAndEmptyAreSignalsNotErrors(t *testing.T) {
	q := NewSPSCQueue[int](2)
	assert.True(t, q.Push(1))
	assert.True(t, q.Push(2))
	assert.False(t, q.Push(3)) // full

	v, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = q.Pop()
	assert.False(t, ok) // empty
}

func TestNewSPSCQueuePanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewSPSCQueue[int](3) })
}

func TestMPSCQueueLosslessAcrossProducers(t *testing.T) {
	q := NewMPSCQueue[int](1024)
	const producers = 4
	const perProducer = 2000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.Push(base*perProducer + i) {
				}
			}
		}(p)
	}

	seen := make(map[int]bool)
	total := producers * perProducer
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for len(seen) < total {
		if v, ok := q.Pop(); ok {
			assert.False(t, seen[v], "duplicate item %d", v)
			seen[v] = true
		}
	}
	<-done
	assert.Len(t, seen, total)
}

func TestMPSCQueueFullReturnsFalse(t *testing.T) {
	q := NewMPSCQueue[int](2)
	assert.True(t, q.Push(1))
	assert.True(t, q.Push(2))
	assert.False(t, q.Push(3))
}
