package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/optimizer"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/strpool"
)

func build(elems ...postfix.Element) (*postfix.Pool, int) {
	p := postfix.NewPool()
	return p, p.New(elems)
}

func TestConstantFoldingReducesToSingleIntConst(t *testing.T) {
	// 2 3 4 * + -> 14
	p, id := build(
		postfix.NewOperand(postfix.IntConst, 2),
		postfix.NewOperand(postfix.IntConst, 3),
		postfix.NewOperand(postfix.IntConst, 4),
		postfix.NewOperator('*'),
		postfix.NewOperator('+'),
	)
	hint, err := optimizer.Optimize(p, id, strpool.New())
	require.NoError(t, err)
	assert.Equal(t, optimizer.ConstNoOp, hint)

	slot, _ := p.Get(id)
	require.Len(t, slot, 2) // folded const + End
	assert.Equal(t, postfix.IntConst, slot[0].Tag)
	assert.Equal(t, int32(14), slot[0].Value)
}

func TestConcatFoldsIntAndString(t *testing.T) {
	strs := strpool.New()
	sid := strs.NewSlot([]byte("x="))
	p, id := build(
		postfix.NewOperand(postfix.StrConst, int32(sid)),
		postfix.NewOperand(postfix.IntConst, 7),
		postfix.NewOperator(':'),
	)
	hint, err := optimizer.Optimize(p, id, strs)
	require.NoError(t, err)
	assert.Equal(t, optimizer.ConstNoOp, hint)

	slot, _ := p.Get(id)
	assert.Equal(t, postfix.StrConst, slot[0].Tag)
	assert.Equal(t, "x=7", string(strs.Bytes(int(slot[0].Value))))
}

func TestUnaryNotFoldsViaSyntheticZero(t *testing.T) {
	// 0 ~ 5 -> ^5
	p, id := build(
		postfix.NewOperand(postfix.IntConst, 0),
		postfix.NewOperand(postfix.IntConst, 5),
		postfix.NewOperator('~'),
	)
	_, err := optimizer.Optimize(p, id, strpool.New())
	require.NoError(t, err)
	slot, _ := p.Get(id)
	assert.Equal(t, int32(^int32(5)), slot[0].Value)
}

func TestNonConstOperandPreventsFolding(t *testing.T) {
	p, id := build(
		postfix.NewOperand(postfix.LocalInt, 0),
		postfix.NewOperand(postfix.IntConst, 3),
		postfix.NewOperator('+'),
	)
	hint, err := optimizer.Optimize(p, id, strpool.New())
	require.NoError(t, err)
	assert.Equal(t, optimizer.LocIntConstIntOp, hint)

	slot, _ := p.Get(id)
	require.Len(t, slot, 4)
}

func TestConstantDivisionByZeroErrors(t *testing.T) {
	p, id := build(
		postfix.NewOperand(postfix.IntConst, 1),
		postfix.NewOperand(postfix.IntConst, 0),
		postfix.NewOperator('/'),
	)
	_, err := optimizer.Optimize(p, id, strpool.New())
	assert.Error(t, err)
}

func TestSingleGlobalIntClassifiesNoOp(t *testing.T) {
	p, id := build(postfix.NewOperand(postfix.GlobalInt, 2))
	hint, err := optimizer.Optimize(p, id, strpool.New())
	require.NoError(t, err)
	assert.Equal(t, optimizer.GlobIntNoOp, hint)
}
