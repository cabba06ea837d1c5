package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/compiler"
	"github.com/ukw100/nic/lang/statement"
)

func TestCompileArithmeticAndPrecedence(t *testing.T) {
	src := `
function void main()
  int x = 2 + 3 * 4
  console.println(x)
  x = (2 + 3) * 4
  console.println(x)
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Stmts)
	assert.Equal(t, 0, prog.MainIdx)
}

func TestCompileForBreakContinue(t *testing.T) {
	src := `
function void main()
  int sum = 0
  int i
  for i = 1 to 10
    if i = 5
      continue
    endif
    if i = 8
      break
    endif
    sum = sum + i
  endfor
  console.println(sum)
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)

	var forStmt, endForStmt *statement.Statement
	forIdx, endForIdx := -1, -1
	for i := range prog.Stmts {
		switch prog.Stmts[i].Kind {
		case statement.For:
			forStmt = &prog.Stmts[i]
			forIdx = i
		case statement.EndFor:
			endForStmt = &prog.Stmts[i]
			endForIdx = i
		}
	}
	require.NotNil(t, forStmt)
	require.NotNil(t, endForStmt)
	assert.Equal(t, endForIdx, forStmt.EndForIdx)
	assert.Equal(t, forIdx, endForStmt.ForIdx)
}

func TestCompileForwardFunctionReference(t *testing.T) {
	src := `
function void main()
  console.println(helper(10))
endfunction
function int helper(int x)
  return x * x
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)
	assert.NotEmpty(t, prog.Stmts)
}

func TestCompileRecursionNeedsReturn(t *testing.T) {
	src := `
function int fact(int n)
  if n <= 1
    return 1
  endif
  return n * fact(n - 1)
endfunction
function void main()
  console.println(fact(6))
endfunction
`
	_, err := compiler.New().Compile(src)
	require.NoError(t, err)
}

func TestCompileArrayDeclarationAndAssignment(t *testing.T) {
	src := `
int a[3]
function void main()
  a[0] = 1
  a[1] = 2
  a[2] = 3
  int i
  for i = 0 to 2
    console.println(a[i])
  endfor
endfunction
`
	_, err := compiler.New().Compile(src)
	require.NoError(t, err)
}

func TestCompileNonVoidFunctionMissingReturnIsFatal(t *testing.T) {
	src := `
function int broken()
  int x = 1
endfunction
function void main()
  console.println(broken())
endfunction
`
	_, err := compiler.New().Compile(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must end on a return statement")
}

func TestCompileUndefinedFunctionNeverDeclaredIsFatal(t *testing.T) {
	src := `
function void main()
  console.println(ghost(1))
endfunction
`
	_, err := compiler.New().Compile(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestCompileAssignmentToConstIsFatal(t *testing.T) {
	src := `
const int limit = 10
function void main()
  limit = 5
endfunction
`
	_, err := compiler.New().Compile(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "const")
}

func TestCompileIncrementPeephole(t *testing.T) {
	src := `
function void main()
  int x = 0
  x = x + 1
  console.println(x)
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)

	found := false
	for _, s := range prog.Stmts {
		if s.Kind == statement.Increment {
			found = true
			assert.EqualValues(t, 1, s.Step)
		}
	}
	assert.True(t, found, "expected the x = x + 1 assignment to compile down to an Increment statement")
}

func TestCompileBareExpressionStatementWithNoEffectIsFatal(t *testing.T) {
	src := `
function void main()
  1 + 1
endfunction
`
	_, err := compiler.New().Compile(src)
	require.Error(t, err)
}
