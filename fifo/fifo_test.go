package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesPutGetOrdering(t *testing.T) {
	f := NewBytes(4)
	assert.True(t, f.Empty())
	assert.True(t, f.Put(1))
	assert.True(t, f.Put(2))
	assert.True(t, f.Put(3))

	b, ok := f.Get()
	assert.True(t, ok)
	assert.Equal(t, byte(1), b)
	assert.Equal(t, 2, f.Len())
}

func TestBytesFullRejectsPut(t *testing.T) {
	f := NewBytes(3) // rounds up to next power of two minus one usable slot
	for f.Put(0xFF) {
	}
	assert.True(t, f.Full())
	assert.False(t, f.Put(0xAA))
}

func TestBytesGetOnEmptyReportsFalse(t *testing.T) {
	f := NewBytes(2)
	_, ok := f.Get()
	assert.False(t, ok)
}

func TestBytesPeekDoesNotConsume(t *testing.T) {
	f := NewBytes(4)
	f.Put(0x42)
	b, ok := f.Peek()
	assert.True(t, ok)
	assert.Equal(t, byte(0x42), b)
	assert.Equal(t, 1, f.Len())
}

func TestRingWrapsAroundCapacity(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 3; i++ {
		assert.True(t, r.Put(i))
	}
	v, ok := r.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, r.Put(99))

	var got []int
	for {
		v, ok := r.Get()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 99}, got)
}

func TestRingFullAndEmpty(t *testing.T) {
	r := NewRing[string](1)
	assert.True(t, r.Empty())
	assert.True(t, r.Put("a"))
	assert.True(t, r.Full())
	assert.False(t, r.Put("b"))
}
