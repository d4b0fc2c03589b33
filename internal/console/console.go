// Package console renders the interactive chat on a terminal with lipgloss
// styles. Output to a non-terminal writer is plain text.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	promptText  = "You: Feel free to ask about profiles related queries: "
	botLabel    = "Bot:"
	goodbyeText = "Exiting chat. Goodbye!"
)

type styles struct {
	banner lipgloss.Style
	prompt lipgloss.Style
	bot    lipgloss.Style
	err    lipgloss.Style
	info   lipgloss.Style
	warn   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		banner: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 2),
		prompt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		bot:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		err:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		info:   r.NewStyle().Foreground(lipgloss.Color("245")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// Console writes the conversation to out. It implements session.Display.
type Console struct {
	out    io.Writer
	styles styles
}

// New returns a Console whose colour profile follows out.
func New(out io.Writer) *Console {
	return &Console{out: out, styles: newStyles(lipgloss.NewRenderer(out))}
}

// Banner prints the welcome box.
func (c *Console) Banner(title string) {
	fmt.Fprintln(c.out, c.styles.banner.Render(title))
}

// Info prints a dim informational line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.info.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning line, used for degraded-mode notices.
func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.out, c.styles.warn.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Prompt() {
	fmt.Fprint(c.out, "\n"+c.styles.prompt.Render(promptText))
}

func (c *Console) Reply(text string) {
	fmt.Fprintln(c.out, c.styles.bot.Render(botLabel), text)
}

func (c *Console) StreamStart() {
	fmt.Fprint(c.out, c.styles.bot.Render(botLabel)+" ")
}

// StreamFragment writes the fragment unstyled so partial escape sequences
// never split a token.
func (c *Console) StreamFragment(fragment string) {
	fmt.Fprint(c.out, fragment)
}

func (c *Console) StreamEnd() {
	fmt.Fprintln(c.out)
}

func (c *Console) Error(err error) {
	msg := strings.TrimSpace(err.Error())
	fmt.Fprintln(c.out, c.styles.err.Render("Error during chat completion:"), msg)
}

func (c *Console) Goodbye() {
	fmt.Fprintln(c.out, c.styles.info.Render(goodbyeText))
}
