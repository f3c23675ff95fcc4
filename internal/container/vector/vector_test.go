package vector

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushBackGrowsByDoubling(t *testing.T) {
	v := New[int]()
	require.Equal(t, 1, v.Cap())

	wantCaps := []int{1, 2, 4, 4, 8, 8, 8, 8, 16}
	for i, want := range wantCaps {
		require.NoError(t, v.PushBack(i))
		assert.Equal(t, want, v.Cap(), "capacity after %d pushes", i+1)
	}
	for i := range wantCaps {
		assert.Equal(t, i, v.At(i))
	}
}

func TestPopBackShrinks(t *testing.T) {
	v := New[int]()
	for i := 0; i < 4; i++ {
		require.NoError(t, v.PushBack(i))
	}
	require.Equal(t, 4, v.Cap())

	got, ok := v.PopBack()
	require.True(t, ok)
	assert.Equal(t, 3, got)
	assert.Equal(t, 4, v.Cap())

	// length 3 > 4/2: no shrink
	_, _ = v.PopBack()
	assert.Equal(t, 4, v.Cap())

	// length 2 <= 4/2: shrink to 2 before removing
	_, _ = v.PopBack()
	assert.Equal(t, 2, v.Cap())
	assert.Equal(t, 1, v.Len())

	_, _ = v.PopBack()
	assert.Equal(t, 1, v.Cap())
	assert.Equal(t, 0, v.Len())

	_, ok = v.PopBack()
	assert.False(t, ok)
	assert.Equal(t, 1, v.Cap())
}

func TestCapacityStaysPowerOfTwo(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	v := New[int]()
	for step := 0; step < 5000; step++ {
		if rng.Intn(3) == 0 {
			v.PopBack()
		} else {
			require.NoError(t, v.PushBack(step))
		}
		require.LessOrEqual(t, v.Len(), v.Cap())
		require.Equal(t, 1, bits.OnesCount(uint(v.Cap())), "capacity %d is not a power of two", v.Cap())
	}
}

func TestPushBackAllocationFailureKeepsState(t *testing.T) {
	v := New[string](WithMaxCapacity(2))
	require.NoError(t, v.PushBack("a"))
	require.NoError(t, v.PushBack("b"))

	err := v.PushBack("c")
	require.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 2, v.Cap())
	assert.Equal(t, "b", v.At(1))
}

func TestDefaultLimitFitsInt32(t *testing.T) {
	var limit int32 = DefaultMaxCapacity
	v := New[byte]()
	require.ErrorIs(t, v.Reserve(int(limit)+1), ErrAllocation)
	assert.Equal(t, 1, v.Cap())
	assert.Zero(t, v.Len())
}

func TestReserveAndShrinkToFit(t *testing.T) {
	v := New[int]()
	require.NoError(t, v.Reserve(16))
	assert.Equal(t, 16, v.Cap())
	require.NoError(t, v.Reserve(8))
	assert.Equal(t, 16, v.Cap(), "Reserve must not shrink")

	for i := 0; i < 3; i++ {
		require.NoError(t, v.PushBack(i))
	}
	v.ShrinkToFit()
	assert.Equal(t, 4, v.Cap())
	assert.Equal(t, []int{0, 1, 2}, []int{v.At(0), v.At(1), v.At(2)})

	empty := New[int]()
	require.NoError(t, empty.Reserve(8))
	empty.ShrinkToFit()
	assert.Equal(t, 1, empty.Cap())
}

func TestAtOutOfRangePanics(t *testing.T) {
	v := New[int]()
	assert.Panics(t, func() { v.At(0) })
	require.NoError(t, v.PushBack(1))
	assert.Panics(t, func() { v.At(1) })
	assert.Panics(t, func() { v.At(-1) })
}
