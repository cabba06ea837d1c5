package postfix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/expr"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/strpool"
)

func TestBuildSimpleArithmetic(t *testing.T) {
	// 2 + 3 * 4  ->  2 3 4 * +
	list := &expr.ExpressionList{Content: []expr.ExpressionContent{
		{Type: expr.ContentIntConst, Value: 2, FipSlot: -1, TrailingOperator: '+'},
		{Type: expr.ContentIntConst, Value: 3, FipSlot: -1, TrailingOperator: '*'},
		{Type: expr.ContentIntConst, Value: 4, FipSlot: -1},
	}}

	pool := postfix.NewPool()
	id, err := postfix.Build(list, pool, strpool.New())
	require.NoError(t, err)

	slot, err := pool.Get(id)
	require.NoError(t, err)

	want := []postfix.Tag{postfix.IntConst, postfix.IntConst, postfix.IntConst, postfix.Operator, postfix.Operator, postfix.End}
	got := make([]postfix.Tag, len(slot))
	for i, e := range slot {
		got[i] = e.Tag
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int32('*'), slot[3].Value)
	assert.Equal(t, int32('+'), slot[4].Value)
}

func TestBuildParenthesizedGroupsFirst(t *testing.T) {
	// (2 + 3) * 4 -> 2 3 + 4 *
	list := &expr.ExpressionList{Content: []expr.ExpressionContent{
		{Type: expr.ContentIntConst, Value: 2, FipSlot: -1, OpenBrackets: 1, TrailingOperator: '+'},
		{Type: expr.ContentIntConst, Value: 3, FipSlot: -1, CloseBrackets: 1, TrailingOperator: '*'},
		{Type: expr.ContentIntConst, Value: 4, FipSlot: -1},
	}}

	pool := postfix.NewPool()
	id, err := postfix.Build(list, pool, strpool.New())
	require.NoError(t, err)

	slot, _ := pool.Get(id)
	want := []int32{2, 3, '+', 4, '*'}
	got := make([]int32, 0, len(slot)-1)
	for _, e := range slot {
		if e.Tag == postfix.End {
			continue
		}
		got = append(got, e.Value)
	}
	assert.Equal(t, want, got)
}

func TestBuildInternsFreshStringLiteral(t *testing.T) {
	list := &expr.ExpressionList{Content: []expr.ExpressionContent{
		{Type: expr.ContentStrConst, Str: "hi", Value: -1, FipSlot: -1},
	}}

	pool := postfix.NewPool()
	strs := strpool.New()
	id, err := postfix.Build(list, pool, strs)
	require.NoError(t, err)

	slot, _ := pool.Get(id)
	require.Equal(t, postfix.StrConst, slot[0].Tag)
	assert.Equal(t, []byte("hi"), strs.Bytes(int(slot[0].Value)))
}

func TestBuildUnbalancedBracketErrors(t *testing.T) {
	list := &expr.ExpressionList{Content: []expr.ExpressionContent{
		{Type: expr.ContentIntConst, Value: 1, FipSlot: -1, CloseBrackets: 1},
	}}
	_, err := postfix.Build(list, postfix.NewPool(), strpool.New())
	assert.Error(t, err)
}
