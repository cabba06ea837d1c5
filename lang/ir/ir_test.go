package ir_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/compiler"
	"github.com/ukw100/nic/lang/ir"
	"github.com/ukw100/nic/lang/machine"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/statement"
)

func compileOK(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)
	return prog
}

func roundTrip(t *testing.T, prog *compiler.Program) *compiler.Program {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ir.Write(&buf, prog))
	out, err := ir.Read(&buf)
	require.NoError(t, err)
	return out
}

func TestRoundTripArithmeticProgram(t *testing.T) {
	src := `
function void main()
  int x = 2 + 3 * 4
  console.println(x)
  x = (2 + 3) * 4
  console.println(x)
endfunction
`
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	require.Len(t, out.Stmts, len(prog.Stmts))
	for i := range prog.Stmts {
		assert.Equal(t, prog.Stmts[i].Kind, out.Stmts[i].Kind, "statement %d kind", i)
		assert.Equal(t, prog.Stmts[i].Next, out.Stmts[i].Next, "statement %d next", i)
		assert.Equal(t, prog.Stmts[i].SourceLine, out.Stmts[i].SourceLine, "statement %d source line", i)
	}
	assert.Equal(t, prog.MainIdx, out.MainIdx)
	assert.Equal(t, prog.Postfix.Len(), out.Postfix.Len())
	assert.Equal(t, len(prog.Hints), len(out.Hints))
	for i := range prog.Hints {
		assert.Equal(t, prog.Hints[i], out.Hints[i], "hint %d", i)
	}
}

func TestRoundTripControlFlowStatements(t *testing.T) {
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
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	require.Equal(t, len(prog.Stmts), len(out.Stmts))

	var wantFor, gotFor *statement.Statement
	var wantEndFor, gotEndFor *statement.Statement
	for i := range prog.Stmts {
		switch prog.Stmts[i].Kind {
		case statement.For:
			wantFor, gotFor = &prog.Stmts[i], &out.Stmts[i]
		case statement.EndFor:
			wantEndFor, gotEndFor = &prog.Stmts[i], &out.Stmts[i]
		}
	}
	require.NotNil(t, wantFor)
	require.NotNil(t, wantEndFor)
	assert.Equal(t, wantFor.StartSlot, gotFor.StartSlot)
	assert.Equal(t, wantFor.StopSlot, gotFor.StopSlot)
	assert.Equal(t, wantFor.StepSlot, gotFor.StepSlot)
	assert.Equal(t, wantFor.EndForIdx, gotFor.EndForIdx)
	assert.Equal(t, wantFor.IterVar, gotFor.IterVar)
	assert.Equal(t, wantEndFor.ForIdx, gotEndFor.ForIdx)
	assert.Equal(t, wantEndFor.StopCache, gotEndFor.StopCache)
	assert.Equal(t, wantEndFor.StepCache, gotEndFor.StepCache)
}

func TestRoundTripFunctionsAndCalls(t *testing.T) {
	src := `
function void main()
  console.println(helper(10))
endfunction
function int helper(int x)
  return x * x
endfunction
`
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	require.Equal(t, len(prog.Funcs.Functions), len(out.Funcs.Functions))
	for i, fn := range prog.Funcs.Functions {
		got := out.Funcs.Functions[i]
		assert.Equal(t, fn.FirstStatement, got.FirstStatement, "function %d first statement", i)
		assert.Equal(t, fn.IsVoid, got.IsVoid, "function %d is-void", i)
		assert.Equal(t, fn.ReturnKind, got.ReturnKind, "function %d return kind", i)
		assert.Equal(t, fn.ArgVarIDs, got.ArgVarIDs, "function %d arg var ids", i)
		assert.Equal(t, fn.ArgKinds, got.ArgKinds, "function %d arg kinds", i)
	}

	foundCall := false
	for id := 0; id < out.Postfix.Len(); id++ {
		slot, err := out.Postfix.Get(id)
		require.NoError(t, err)
		for _, el := range slot {
			if el.Tag == postfix.ExternFn || el.Tag == postfix.InternFn {
				foundCall = true
				assert.GreaterOrEqual(t, el.Value, int32(0), "call element must have its func index patched in")
			}
		}
	}
	assert.True(t, foundCall, "expected at least one function-call postfix element")
}

func TestRoundTripArraysAndGlobals(t *testing.T) {
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
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	require.Equal(t, len(prog.Globals.Vars[0]), len(out.Globals.Vars[0]))
	require.Equal(t, len(prog.Globals.Vars[1]), len(out.Globals.Vars[1]))
	require.Equal(t, len(prog.Globals.Vars[2]), len(out.Globals.Vars[2]))

	for k := range prog.Globals.Vars {
		for i, sc := range prog.Globals.Vars[k] {
			got := out.Globals.Vars[k][i]
			assert.Equal(t, sc.IsArray, got.IsArray, "global %d/%d is-array", k, i)
			if sc.IsArray {
				assert.Equal(t, sc.ArraySize, got.ArraySize, "global %d/%d array size", k, i)
			}
		}
	}
}

func TestRoundTripStringConstants(t *testing.T) {
	src := `
function void main()
  string s = "hello world"
  console.println(s)
endfunction
`
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	require.Equal(t, prog.Strs.Len(), out.Strs.Len())
	for i := 0; i < prog.Strs.Len(); i++ {
		assert.Equal(t, string(prog.Strs.Bytes(i)), string(out.Strs.Bytes(i)), "string slot %d", i)
	}
}

// TestRoundTripThenRun exercises the same path nicrun takes: compile, write
// IR, read it back, and run the reloaded program on lang/machine, confirming
// a program survives the wire format with no behavioural difference from
// running it straight off the compiler.
func TestRoundTripThenRun(t *testing.T) {
	src := `
int total[3]
function void main()
  int i
  for i = 0 to 2
    total[i] = fact(i + 1)
    console.println(total[i])
  endfor
  console.println(greet("nic"))
endfunction
function int fact(int n)
  if n <= 1
    return 1
  endif
  return n * fact(n - 1)
endfunction
function string greet(string name)
  string msg = "hi " : name
  return msg
endfunction
`
	prog := compileOK(t, src)
	out := roundTrip(t, prog)

	var buf bytes.Buffer
	th := machine.NewThread(context.Background())
	th.Stdout = &buf
	m := machine.New(out, th)
	require.NoError(t, m.Run(out.MainIdx, nil))
	assert.Equal(t, "1\n2\n6\nhi nic\n", buf.String())
}
