package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type widget struct {
	Value int
}

func TestPoolGetPutRecyclesSlab(t *testing.T) {
	p := NewPool(4, func() widget { return widget{} })

	v, tok := p.Get()
	assert.Equal(t, int64(0), tok)
	v.Value = 42
	p.Put(v, tok)

	assert.Equal(t, uint64(1), p.Hits())
	assert.Equal(t, uint64(0), p.Exhaustions())
}

func TestPoolFallsBackToHeapOnExhaustion(t *testing.T) {
	p := NewPool(2, func() widget { return widget{} })

	_, t1 := p.Get()
	_, t2 := p.Get()
	assert.NotEqual(t, t1, t2)

	// slab is now empty; third Get must still succeed via heap fallback.
	v3, t3 := p.Get()
	assert.Equal(t, int64(-1), t3)
	assert.NotNil(t, &v3)
	assert.Equal(t, uint64(1), p.Exhaustions())

	// returning a heap item is a no-op, not a corruption of the free list.
	p.Put(v3, t3)
	assert.Equal(t, 2, p.Cap())
}
