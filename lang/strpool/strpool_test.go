package strpool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/strpool"
)

func TestPersistentSlotsStable(t *testing.T) {
	p := strpool.New()
	a := p.NewSlot([]byte("hello"))
	b := p.NewSlot([]byte("world"))
	assert.Equal(t, "hello", string(p.Bytes(a)))
	assert.Equal(t, "world", string(p.Bytes(b)))

	require.NoError(t, p.Assign(a, []byte("changed")))
	assert.Equal(t, "changed", string(p.Bytes(a)))
	assert.Equal(t, "world", string(p.Bytes(b)), "assigning a must not disturb b")
}

func TestConcatGrows(t *testing.T) {
	p := strpool.New()
	a := p.NewSlot([]byte("ab"))
	require.NoError(t, p.Concat(a, []byte("cd")))
	assert.Equal(t, "abcd", string(p.Bytes(a)))
}

func TestReleaseFrameRewindsHighWaterMark(t *testing.T) {
	p := strpool.New()
	_ = p.NewSlot([]byte("one"))
	_ = p.NewSlot([]byte("two"))
	require.NoError(t, p.ReleaseFrame(1))

	// the rewound slot id is reused, and its backing storage survives.
	c := p.NewSlot([]byte("three"))
	assert.Equal(t, "three", string(p.Bytes(c)))

	assert.Error(t, p.ReleaseFrame(10), "cannot release more than are in use")
}

func TestTmpSlotPooling(t *testing.T) {
	p := strpool.New()
	t1 := p.NewTmpSlot([]byte("x"))
	t2 := p.NewTmpSlot([]byte("y"))
	assert.NotEqual(t, t1, t2)
	assert.True(t, p.TmpActive(t1))

	require.NoError(t, p.Consume(t1))
	assert.False(t, p.TmpActive(t1))

	// t1 is inactive now, so the next NewTmpSlot call must reuse it.
	t3 := p.NewTmpSlot([]byte("z"))
	assert.Equal(t, t1, t3)
}

func TestConsumeInactiveTempIsInvariantViolation(t *testing.T) {
	p := strpool.New()
	t1 := p.NewTmpSlot([]byte("x"))
	require.NoError(t, p.Consume(t1))
	assert.Error(t, p.Consume(t1), "consuming an already-inactive temp must fail")
}

func TestDeactivateAllTemps(t *testing.T) {
	p := strpool.New()
	t1 := p.NewTmpSlot(nil)
	t2 := p.NewTmpSlot(nil)
	p.DeactivateAllTemps()
	assert.False(t, p.TmpActive(t1))
	assert.False(t, p.TmpActive(t2))
}

func TestMoveTmpToSlot(t *testing.T) {
	p := strpool.New()
	dst := p.NewSlot(nil)
	tmp := p.NewTmpSlot([]byte("returned"))

	require.NoError(t, p.MoveTmpToSlot(dst, tmp))
	assert.Equal(t, "returned", string(p.Bytes(dst)))
	assert.False(t, p.TmpActive(tmp))
}
