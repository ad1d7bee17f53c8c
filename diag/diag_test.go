package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brix-lang/brix/token"
)

func TestRenderHeadlineAndCaret(t *testing.T) {
	src := "var x := missing"
	errs := []*token.CompileError{{
		Kind:  token.ErrUndefined,
		Token: token.Token{FileName: "main.bx", Line: 1, Column: 10},
		Msg:   "identifier missing is not defined",
	}}

	var buf bytes.Buffer
	NewRenderer(false).Render(&buf, src, errs)
	out := buf.String()

	require.Contains(t, out, "main.bx:1:10: undefined symbol: identifier missing is not defined")
	require.Contains(t, out, "    var x := missing")
	require.Contains(t, out, "    "+"         "+"^")
}

func TestRenderWithoutFileName(t *testing.T) {
	errs := []*token.CompileError{{
		Kind:  token.ErrTypeMismatch,
		Token: token.Token{Line: 2, Column: 1},
		Msg:   "condition must be Int",
	}}

	var buf bytes.Buffer
	NewRenderer(false).Render(&buf, "a\nb", errs)
	require.Contains(t, buf.String(), "2:1: type mismatch: condition must be Int")
}

func TestRenderOutOfRangeLineSkipsSnippet(t *testing.T) {
	errs := []*token.CompileError{{
		Kind:  token.ErrEmit,
		Token: token.Token{Line: 99, Column: 1},
		Msg:   "boom",
	}}

	var buf bytes.Buffer
	NewRenderer(false).Render(&buf, "only one line", errs)
	out := buf.String()
	require.Contains(t, out, "99:1: emission failure: boom")
	require.NotContains(t, out, "only one line")
}

func TestSummary(t *testing.T) {
	require.Equal(t, "1 error", Summary(1))
	require.Equal(t, "3 errors", Summary(3))
}
