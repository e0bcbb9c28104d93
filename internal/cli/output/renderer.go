// Package output renders command output for terminals, pipes and machines.
//
// In auto mode a terminal gets colored text and anything else gets plain
// markdown-friendly text, so logs and CI transcripts stay free of escape codes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Modes lists every accepted mode.
func Modes() []Mode {
	return []Mode{ModeAuto, ModeText, ModeMarkdown, ModeJSON}
}

// Valid reports whether m is a known mode. The empty mode means auto.
func (m Mode) Valid() bool {
	if m == "" {
		return true
	}
	for _, known := range Modes() {
		if m == known {
			return true
		}
	}
	return false
}

// Status line prefixes.
const (
	PrefixSetup   = "[SETUP]"
	PrefixOK      = "[OK]"
	PrefixWarning = "[WARNING]"
	PrefixError   = "[ERROR]"
)

const bannerWidth = 47

// Renderer writes styled output to stdout and diagnostics to stderr.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
	}

	lr := lipgloss.NewRenderer(out)
	if r.colored() {
		lr.SetColorProfile(termenv.ANSI)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}
	r.styles = newStyles(lr)
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

func (r *Renderer) colored() bool {
	return r.isTTY && r.EffectiveMode() == ModeText
}

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the stdout writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line to stdout.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted output to stdout.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Header writes a section header. Level 1 is a title, anything else a subsection.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(strings.Repeat("#", max(level, 1)) + " " + text)
		r.Println("")
		return
	}
	if level <= 1 {
		r.Println(r.styles.Header1.Render(text))
		return
	}
	r.Println(r.styles.Header2.Render(text))
}

// Banner writes a title framed by rules of '='.
func (r *Renderer) Banner(title string) {
	rule := strings.Repeat("=", bannerWidth)
	r.Println(r.styles.Setup.Render(rule))
	r.Println(r.styles.Setup.Render("  " + title))
	r.Println(r.styles.Setup.Render(rule))
	r.Println("")
}

// Status writes a [SETUP] progress line.
func (r *Renderer) Status(msg string) {
	r.prefixed(r.styles.Setup, PrefixSetup, msg)
}

// Success writes an [OK] line.
func (r *Renderer) Success(msg string) {
	r.prefixed(r.styles.Success, PrefixOK, msg)
}

// Warning writes a [WARNING] line.
func (r *Renderer) Warning(msg string) {
	r.prefixed(r.styles.Warning, PrefixWarning, msg)
}

// Error writes an [ERROR] line.
func (r *Renderer) Error(msg string) {
	r.prefixed(r.styles.Error, PrefixError, msg)
}

// Diagnostic writes raw command output to stderr.
func (r *Renderer) Diagnostic(text string) {
	if text == "" {
		return
	}
	_, _ = fmt.Fprintln(r.errOut, strings.TrimRight(text, "\n"))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// StatusLine writes an item with a status icon and optional detail.
// Status is one of "success", "warning" or "error".
func (r *Renderer) StatusLine(name, status, detail string) {
	var icon string
	switch status {
	case "success":
		icon = r.styles.StatusSuccess.String()
	case "warning":
		icon = r.styles.StatusWarning.String()
	default:
		icon = r.styles.StatusFailed.String()
	}
	if r.EffectiveMode() == ModeMarkdown {
		icon = "-"
	}

	line := fmt.Sprintf("  %s %s", icon, name)
	if detail != "" {
		line += " " + r.styles.Muted.Render("("+detail+")")
	}
	r.Println(line)
}

// JSON writes v as indented JSON to stdout.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) prefixed(style lipgloss.Style, prefix, msg string) {
	r.Println(style.Render(prefix) + " " + msg)
}

// Quiet returns a renderer that discards everything except diagnostics.
// JSON mode uses it so the final document is the only thing on stdout.
func (r *Renderer) Quiet() *Renderer {
	return NewRendererWithTTY(io.Discard, r.errOut, false, ModeMarkdown)
}
