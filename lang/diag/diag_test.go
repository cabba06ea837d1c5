package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/diag"
)

func TestWarningsDoNotFailBuild(t *testing.T) {
	var l diag.List
	l.Warnf(3, "unused variable %q", "x")
	assert.False(t, l.HasErrors())
	require.NoError(t, l.Err())
}

func TestErrorsFailBuildAndOrderByLine(t *testing.T) {
	var l diag.List
	l.Errorf(10, "undeclared variable %q", "y")
	l.Errorf(2, "unbalanced bracket")
	assert.True(t, l.HasErrors())

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Line)
	assert.Equal(t, 10, items[1].Line)

	err := l.Err()
	require.Error(t, err)
}
