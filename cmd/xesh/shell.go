package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/jscontext"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
)

// shell evaluates one statement per line. Lines starting with ':' are shell
// commands.
type shell struct {
	sc     *jscontext.Context
	rt     *runtime.Runtime
	out    io.Writer
	errOut io.Writer
	prompt bool
	done   bool
}

func newShell(sc *jscontext.Context, rt *runtime.Runtime, out, errOut io.Writer) *shell {
	return &shell{sc: sc, rt: rt, out: out, errOut: errOut}
}

func (s *shell) banner() {
	fmt.Fprintln(s.errOut, "---- XESh: extensions shell ----")
	fmt.Fprintf(s.errOut, "extensions: %s\n", strings.Join(s.sc.Installed(), ", "))
}

func (s *shell) loop(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for !s.done {
		if s.prompt {
			fmt.Fprint(s.errOut, "xesh> ")
		}
		if !scanner.Scan() {
			break
		}
		s.line(scanner.Text())
	}
	return scanner.Err()
}

func (s *shell) line(text string) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
	case strings.HasPrefix(text, ":"):
		s.command(strings.Fields(text[1:]))
	default:
		s.exec(text)
	}
}

// exec runs src and prints its value.
func (s *shell) exec(src string) {
	v, err := s.sc.Run(src)
	if err != nil {
		fmt.Fprintln(s.errOut, err)
		return
	}
	if out := display(v); out != "" {
		fmt.Fprintln(s.out, out)
	}
}

func (s *shell) command(args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "quit", "q":
		s.done = true
	case "extensions":
		for _, name := range s.sc.Installed() {
			fmt.Fprintln(s.out, name)
		}
	case "lifecycle":
		if len(args) != 2 {
			fmt.Fprintln(s.errOut, "usage: :lifecycle start|resume|pause|stop|destroy")
			return
		}
		ev, ok := parseLifecycle(args[1])
		if !ok {
			fmt.Fprintf(s.errOut, "unknown lifecycle event %q\n", args[1])
			return
		}
		s.rt.Lifecycle(ev)
		s.sc.Pump()
	case "help":
		fmt.Fprintln(s.out, ":extensions  list installed extensions")
		fmt.Fprintln(s.out, ":lifecycle E send a lifecycle event to every extension")
		fmt.Fprintln(s.out, ":quit        leave the shell")
	default:
		fmt.Fprintf(s.errOut, "unknown command :%s\n", args[0])
	}
}

func parseLifecycle(name string) (crosswalk.LifecycleEvent, bool) {
	for ev := crosswalk.Start; ev <= crosswalk.Destroy; ev++ {
		if ev.String() == name {
			return ev, true
		}
	}
	return 0, false
}

// display renders a script value; undefined renders as nothing.
func display(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}
