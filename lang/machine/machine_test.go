package machine_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/compiler"
	"github.com/ukw100/nic/lang/machine"
)

func runSrc(t *testing.T, src string, argv ...string) string {
	t.Helper()
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	th := machine.NewThread(context.Background())
	th.Stdout = &out
	m := machine.New(prog, th)
	require.NoError(t, m.Run(prog.MainIdx, argv))
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	src := `
function void main()
  int x = 2 + 3 * 4
  console.println(x)
  x = (2 + 3) * 4
  console.println(x)
endfunction
`
	assert.Equal(t, "14\n20\n", runSrc(t, src))
}

func TestForBreakContinue(t *testing.T) {
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
	// 1+2+3+4 (5 skipped by continue) +6+7 (8 breaks before adding) = 23
	assert.Equal(t, "23\n", runSrc(t, src))
}

func TestForCountsDown(t *testing.T) {
	src := `
function void main()
  int i
  for i = 5 to 1 step -1
    console.println(i)
  endfor
endfunction
`
	assert.Equal(t, "5\n4\n3\n2\n1\n", runSrc(t, src))
}

func TestWhileLoop(t *testing.T) {
	src := `
function void main()
  int n = 3
  while n > 0
    console.println(n)
    n = n - 1
  endwhile
endfunction
`
	assert.Equal(t, "3\n2\n1\n", runSrc(t, src))
}

func TestRepeatLoop(t *testing.T) {
	src := `
function void main()
  int n = 0
  repeat 4
    n = n + 1
    console.println(n)
  endrepeat
endfunction
`
	assert.Equal(t, "1\n2\n3\n4\n", runSrc(t, src))
}

func TestUnconditionalLoopWithBreak(t *testing.T) {
	src := `
function void main()
  int n = 0
  loop
    n = n + 1
    console.println(n)
    if n = 3
      break
    endif
  endloop
endfunction
`
	assert.Equal(t, "1\n2\n3\n", runSrc(t, src))
}

func TestRecursiveFunctionCall(t *testing.T) {
	src := `
function void main()
  console.println(fact(5))
endfunction
function int fact(int n)
  if n <= 1
    return 1
  endif
  return n * fact(n - 1)
endfunction
`
	assert.Equal(t, "120\n", runSrc(t, src))
}

func TestRecursionWithNestedLoopDoesNotCorruptOuterLoopBounds(t *testing.T) {
	// Guards the per-frame forCache/repeatCache design: countUp's own for
	// loop must keep running correctly across a recursive call that runs an
	// identical for loop further down the call stack.
	src := `
function void main()
  countUp(3)
endfunction
function void countUp(int n)
  int i
  for i = 1 to n
    console.println(i)
    if i = 1
      if n > 1
        countUp(n - 1)
      endif
    endif
  endfor
endfunction
`
	want := "1\n" + // countUp(3) i=1
		"1\n" + // countUp(2) i=1
		"1\n" + // countUp(1) i=1, n=1 so no further recursion
		"2\n" + // countUp(2) resumes i=2
		"2\n" + "3\n" // countUp(3) resumes i=2, i=3
	assert.Equal(t, want, runSrc(t, src))
}

func TestStringConcatAndBuiltins(t *testing.T) {
	src := `
function void main()
  string s = "hello" : " " : "world"
  console.println(s)
  console.println(string.len(s))
  console.println(string.left(s, 5))
  console.println(string.right(s, 5))
  console.println(string.mid(s, 6, 5))
endfunction
`
	assert.Equal(t, "hello world\n11\nhello\nworld\nworld\n", runSrc(t, src))
}

func TestGlobalArrayAssignmentAndAccess(t *testing.T) {
	src := `
int a[3]
function void main()
  int i
  for i = 0 to 2
    a[i] = i * i
  endfor
  for i = 0 to 2
    console.println(a[i])
  endfor
endfunction
`
	assert.Equal(t, "0\n1\n4\n", runSrc(t, src))
}

func TestReturnedLocalStringSurvivesFrameTeardown(t *testing.T) {
	// greet's local "msg" slot is released when the function returns; the
	// caller must still see its contents (protectReturn rescues it before
	// release).
	src := `
function void main()
  console.println(greet("nic"))
endfunction
function string greet(string name)
  string msg = "hi " : name
  return msg
endfunction
`
	assert.Equal(t, "hi nic\n", runSrc(t, src))
}

func TestMainArgvBinding(t *testing.T) {
	src := `
function void main(int count, string label)
  int i
  for i = 1 to count
    console.println(label)
  endfor
endfunction
`
	assert.Equal(t, "go\ngo\n", runSrc(t, src, "2", "go"))
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	src := `
function void main()
  int z = 0
  console.println(1 / z)
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)
	m := machine.New(prog, machine.NewThread(context.Background()))
	err = m.Run(prog.MainIdx, nil)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestArrayOutOfRangeIsRuntimeError(t *testing.T) {
	src := `
int a[3]
function void main()
  int i = 5
  console.println(a[i])
endfunction
`
	prog, err := compiler.New().Compile(src)
	require.NoError(t, err)
	m := machine.New(prog, machine.NewThread(context.Background()))
	err = m.Run(prog.MainIdx, nil)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
}
