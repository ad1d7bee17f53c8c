// Package diag renders compile errors for humans: position, category and
// message, with the offending source line and a caret underneath.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/brix-lang/brix/token"
)

type Renderer struct {
	errColor *color.Color
	posColor *color.Color
}

// NewRenderer builds a renderer. Colors degrade to plain text when
// enableColor is false or the writer is not a terminal (fatih/color
// handles the latter).
func NewRenderer(enableColor bool) *Renderer {
	errC := color.New(color.FgRed, color.Bold)
	posC := color.New(color.Bold)
	if !enableColor {
		errC.DisableColor()
		posC.DisableColor()
	}
	return &Renderer{errColor: errC, posColor: posC}
}

// Render writes every error with its source snippet. src may be empty, in
// which case only the headline prints.
func (r *Renderer) Render(w io.Writer, src string, errs []*token.CompileError) {
	lines := strings.Split(src, "\n")
	for _, e := range errs {
		r.renderOne(w, lines, e)
	}
}

func (r *Renderer) renderOne(w io.Writer, lines []string, e *token.CompileError) {
	pos := fmt.Sprintf("%d:%d", e.Token.Line, e.Token.Column)
	if e.Token.FileName != "" {
		pos = e.Token.FileName + ":" + pos
	}
	fmt.Fprintf(w, "%s: %s: %s\n", r.posColor.Sprint(pos), r.errColor.Sprint(e.Kind.String()), e.Msg)

	// Lines are 1-based in tokens.
	if e.Token.Line < 1 || e.Token.Line > len(lines) {
		return
	}
	src := lines[e.Token.Line-1]
	fmt.Fprintf(w, "    %s\n", src)
	if e.Token.Column >= 1 && e.Token.Column <= len(src)+1 {
		fmt.Fprintf(w, "    %s%s\n", strings.Repeat(" ", e.Token.Column-1), r.errColor.Sprint("^"))
	}
}

// Summary is the one-line tail after all errors print.
func Summary(n int) string {
	if n == 1 {
		return "1 error"
	}
	return fmt.Sprintf("%d errors", n)
}
