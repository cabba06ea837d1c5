package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/symbols"
)

func TestDeclareAndLookup(t *testing.T) {
	tbl := symbols.NewTable()
	idx, err := tbl.Declare("x", symbols.Int, 0, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	s, got, ok := tbl.Lookup("x", symbols.Int)
	require.True(t, ok)
	assert.Equal(t, 0, got)
	assert.Equal(t, "x", s.Name)
}

func TestRedeclareFails(t *testing.T) {
	tbl := symbols.NewTable()
	_, err := tbl.Declare("x", symbols.Int, 0, false, 0)
	require.NoError(t, err)
	_, err = tbl.Declare("x", symbols.Int, 0, false, 0)
	assert.Error(t, err)
}

func TestArrayDeclaration(t *testing.T) {
	tbl := symbols.NewTable()
	idx, err := tbl.Declare("a", symbols.Byte, 10, false, 0)
	require.NoError(t, err)
	s, _, ok := tbl.Lookup("a", symbols.Byte)
	require.True(t, ok)
	assert.True(t, s.IsArray)
	assert.Equal(t, 10, s.ArraySize)
	assert.Equal(t, 0, idx)
}

func TestLookupAnyKind(t *testing.T) {
	tbl := symbols.NewTable()
	_, err := tbl.Declare("s", symbols.Str, 0, false, 0)
	require.NoError(t, err)

	s, _, kind, ok := tbl.LookupAnyKind("s")
	require.True(t, ok)
	assert.Equal(t, symbols.Str, kind)
	assert.Equal(t, "s", s.Name)

	_, _, _, ok = tbl.LookupAnyKind("nope")
	assert.False(t, ok)
}

func TestConstTable(t *testing.T) {
	c := symbols.NewConstTable()
	require.NoError(t, c.DeclareInt("MAX", 100))
	v, ok := c.LookupInt("MAX")
	require.True(t, ok)
	assert.Equal(t, 100, v)

	assert.Error(t, c.DeclareInt("MAX", 200))
}

func TestFunctionTableForwardReference(t *testing.T) {
	ft := symbols.NewFunctionTable()
	ft.RecordUndefined("helper", 3, 0)
	ft.RecordUndefined("helper", 5, 1)

	_, ok := ft.Lookup("helper")
	assert.False(t, ok)
	assert.Contains(t, ft.RemainingUndefined(), "helper")

	idx, err := ft.Declare(&symbols.Function{Name: "helper", ReturnKind: symbols.Int})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	refs := ft.Resolve("helper")
	assert.Len(t, refs, 2)
	assert.Empty(t, ft.RemainingUndefined())
}

func TestFunctionRedeclareFails(t *testing.T) {
	ft := symbols.NewFunctionTable()
	_, err := ft.Declare(&symbols.Function{Name: "f"})
	require.NoError(t, err)
	_, err = ft.Declare(&symbols.Function{Name: "f"})
	assert.Error(t, err)
}
