package session

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// State is a REPL state.
type State int

const (
	AwaitingInput State = iota
	Sending
	Terminated
)

func (st State) String() string {
	switch st {
	case AwaitingInput:
		return "awaiting_input"
	case Sending:
		return "sending"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Display renders the conversation. The console package implements it.
type Display interface {
	Prompt()
	Reply(text string)
	StreamStart()
	StreamFragment(fragment string)
	StreamEnd()
	Error(err error)
	Goodbye()
}

// REPL drives a Session from a line-oriented input.
type REPL struct {
	session *Session
	display Display
	stream  bool
	state   State
}

// NewREPL returns a REPL in AwaitingInput. With stream set, replies are
// rendered fragment by fragment.
func NewREPL(s *Session, d Display, stream bool) *REPL {
	return &REPL{session: s, display: d, stream: stream, state: AwaitingInput}
}

// State returns the current state.
func (r *REPL) State() State { return r.state }

// Step handles one input line and returns the resulting state. Provider
// errors are displayed and the REPL goes back to AwaitingInput.
func (r *REPL) Step(ctx context.Context, line string) State {
	if r.state == Terminated {
		return r.state
	}
	if IsExit(line) {
		r.terminate()
		return r.state
	}

	r.state = Sending
	var err error
	if r.stream {
		r.display.StreamStart()
		_, err = r.session.SendStream(ctx, line, r.display.StreamFragment)
		r.display.StreamEnd()
	} else {
		var turn Turn
		turn, err = r.session.Send(ctx, line)
		if err == nil {
			r.display.Reply(turn.Content)
		}
	}
	if err != nil {
		r.display.Error(err)
	}
	r.state = AwaitingInput
	return r.state
}

// Run reads lines from in until the exit keyword, end of input or ctx
// cancellation. It returns the input's read error, if any.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for r.state != Terminated {
		if ctx.Err() != nil {
			r.terminate()
			return ctx.Err()
		}
		r.display.Prompt()
		if !sc.Scan() {
			r.terminate()
			return sc.Err()
		}
		r.Step(ctx, strings.TrimRight(sc.Text(), "\r"))
	}
	return nil
}

func (r *REPL) terminate() {
	r.state = Terminated
	r.session.End()
	r.display.Goodbye()
}
