package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
)

var _ session.Display = (*Console)(nil)

func TestConsole_PlainWriter_NoEscapeCodes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := New(&buf)
	c.Prompt()
	c.Reply("Ana knows ML.")
	c.Error(errors.New("groq chat: status 503: unavailable"))
	c.Goodbye()

	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output contains ANSI escapes: %q", out)
	}
	for _, want := range []string{promptText, "Bot: Ana knows ML.", "status 503", goodbyeText} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestConsole_Stream_ConcatenatesFragments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := New(&buf)
	c.StreamStart()
	for _, f := range []string{"Com", "té", "!"} {
		c.StreamFragment(f)
	}
	c.StreamEnd()

	if got := buf.String(); got != "Bot: Comté!\n" {
		t.Errorf("stream output = %q", got)
	}
}

func TestConsole_Banner_ContainsTitle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf).Banner("Start chatting with the bot (type 'exit' to stop)!")
	if !strings.Contains(buf.String(), "type 'exit' to stop") {
		t.Errorf("banner = %q", buf.String())
	}
}

func TestReadSecret_NonTerminal(t *testing.T) {
	t.Parallel()

	_, err := ReadSecret(strings.NewReader("sk-123\n"), &bytes.Buffer{}, "key: ")
	if !errors.Is(err, ErrNotTerminal) {
		t.Errorf("error = %v; want ErrNotTerminal", err)
	}
	if IsTerminal(strings.NewReader("")) {
		t.Error("strings.Reader reported as terminal")
	}
}

func TestReadLine(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"sk-123\r\nrest": "sk-123",
		"no newline":     "no newline",
		"":               "",
	}
	for in, want := range tests {
		got, err := ReadLine(strings.NewReader(in))
		if err != nil || got != want {
			t.Errorf("ReadLine(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
