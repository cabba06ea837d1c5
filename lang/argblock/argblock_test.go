package argblock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/argblock"
)

func TestNewAndGet(t *testing.T) {
	p := argblock.NewPool()
	id := p.New(2, false, []int{0, 1})
	b, err := p.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, b.FuncIndex)
	assert.Equal(t, []int{0, 1}, b.ArgSlots)
}

func TestPatchForwardReference(t *testing.T) {
	p := argblock.NewPool()
	id := p.New(-1, false, nil)
	require.NoError(t, p.PatchFunc(id, 5))
	b, err := p.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 5, b.FuncIndex)
}

func TestGetInvalidID(t *testing.T) {
	p := argblock.NewPool()
	_, err := p.Get(0)
	assert.Error(t, err)
}
