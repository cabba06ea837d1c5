package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ukw100/nic/lang/lexer"
	"github.com/ukw100/nic/lang/token"
)

func scanAll(t *testing.T, line string, signed bool) []token.Token {
	t.Helper()
	l := lexer.New([]byte(line))
	var toks []token.Token
	for {
		tok, err := l.Next(signed)
		require.NoError(t, err)
		if tok.Kind == token.Empty {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestIdentifiersAndOperators(t *testing.T) {
	toks := scanAll(t, "x = a + b.c", false)
	require.Len(t, toks, 5)
	require.Equal(t, token.Identifier, toks[0].Kind)
	require.Equal(t, token.Equal, toks[1].Kind)
	require.Equal(t, token.Identifier, toks[2].Kind)
	require.Equal(t, token.Operator, toks[3].Kind)
	require.Equal(t, "b.c", toks[4].Text)
}

func TestNumberPrefixes(t *testing.T) {
	toks := scanAll(t, "0x1F 0b101 42", false)
	require.Len(t, toks, 3)
	require.Equal(t, 31, toks[0].IntValue)
	require.Equal(t, 5, toks[1].IntValue)
	require.Equal(t, 42, toks[2].IntValue)
}

func TestCompareOperatorsAreDistinctKinds(t *testing.T) {
	toks := scanAll(t, "a != b <= c >= d == e", false)
	kinds := []token.Kind{token.Identifier, token.NotEqual, token.Identifier, token.LessEqual,
		token.Identifier, token.GreaterEqual, token.Identifier}
	for i, k := range kinds {
		require.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestShiftFoldedToLessGreater(t *testing.T) {
	toks := scanAll(t, "a << 2", false)
	require.Equal(t, token.Operator, toks[1].Kind)
	require.Equal(t, "<", toks[1].Text)
}

func TestStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello world"`, false)
	require.Len(t, toks, 1)
	require.Equal(t, token.String, toks[0].Kind)
	require.Equal(t, "hello world", toks[0].Text)
}

func TestUnterminatedStringErrors(t *testing.T) {
	l := lexer.New([]byte(`"oops`))
	_, err := l.Next(false)
	require.Error(t, err)
}

func TestBangAloneIsRejected(t *testing.T) {
	l := lexer.New([]byte(`!`))
	_, err := l.Next(false)
	require.Error(t, err)
}

func TestSymbolicConstants(t *testing.T) {
	toks := scanAll(t, "TRUE FALSE HIGH", false)
	require.Equal(t, token.Int, toks[0].Kind)
	require.Equal(t, 1, toks[0].IntValue)
	require.Equal(t, token.Int, toks[1].Kind)
	require.Equal(t, 0, toks[1].IntValue)
}

func TestLineComment(t *testing.T) {
	toks := scanAll(t, "x = 1 // trailing comment", false)
	require.Len(t, toks, 3)
}

func TestSignedNumber(t *testing.T) {
	toks := scanAll(t, "-5", true)
	require.Len(t, toks, 1)
	require.Equal(t, -5, toks[0].IntValue)
}
