package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/crosswalk-project/crosswalk-sub003/jscontext"
	"github.com/crosswalk-project/crosswalk-sub003/runtime"
)

func TestParseWasmSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    wasmSpec
		wantErr bool
	}{
		{in: "x=a.wasm", want: wasmSpec{name: "x", path: "a.wasm"}},
		{in: "xwalk.demo=a.wasm,api.js", want: wasmSpec{name: "xwalk.demo", path: "a.wasm", api: "api.js"}},
		{in: "a.wasm", wantErr: true},
		{in: "=a.wasm", wantErr: true},
		{in: "x=", wantErr: true},
		{in: "x=,api.js", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWasmSpec(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWasmFlags(t *testing.T) {
	var w wasmFlags
	if err := w.Set("a=1.wasm"); err != nil {
		t.Fatal(err)
	}
	if err := w.Set("b=2.wasm,b.js"); err != nil {
		t.Fatal(err)
	}
	if err := w.Set("bad"); err == nil {
		t.Error("Set accepted a spec without a path")
	}
	if got := w.String(); got != "a=1.wasm b=2.wasm" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	for _, mode := range []string{"", "dev", "prod"} {
		if _, err := newLogger(mode); err != nil {
			t.Errorf("newLogger(%q): %v", mode, err)
		}
	}
	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger accepted an unknown mode")
	}
}

func newTestContext(t *testing.T, console *bytes.Buffer) (*runtime.Runtime, *jscontext.Context) {
	t.Helper()
	ctx := context.Background()
	rt, closeExts, err := newRuntime(ctx, options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(closeExts)
	t.Cleanup(func() { _ = rt.Close(ctx) })
	sc, err := jscontext.New(ctx, rt, jscontext.Config{Console: consoleLogger(console)})
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.Load(); err != nil {
		t.Fatal(err)
	}
	return rt, sc
}

func TestShell(t *testing.T) {
	var out, errOut bytes.Buffer
	rt, sc := newTestContext(t, &out)
	sh := newShell(sc, rt, &out, &errOut)

	input := strings.Join([]string{
		`xwalk.echo.echo("hi")`,
		``,
		`:extensions`,
		`console.log("logged")`,
		`console.warn("careful")`,
		`var x`,
		`missing()`,
		`:lifecycle pause`,
		`:lifecycle sideways`,
		`:nope`,
		`:quit`,
		`xwalk.echo.echo("after quit")`,
	}, "\n")
	if err := sh.loop(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}

	wantOut := "hi\nxwalk.echo\nlogged\nWARN:\tcareful\n"
	if out.String() != wantOut {
		t.Errorf("stdout = %q, want %q", out.String(), wantOut)
	}
	for _, part := range []string{"ReferenceError", `unknown lifecycle event "sideways"`, "unknown command :nope"} {
		if !strings.Contains(errOut.String(), part) {
			t.Errorf("stderr lacks %q:\n%s", part, errOut.String())
		}
	}
	if strings.Contains(out.String()+errOut.String(), "after quit") {
		t.Error("shell kept reading after :quit")
	}
}

func TestShell_Prompt(t *testing.T) {
	var out, errOut bytes.Buffer
	rt, sc := newTestContext(t, &out)
	sh := newShell(sc, rt, &out, &errOut)
	sh.prompt = true
	if err := sh.loop(strings.NewReader("1+1\n")); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(errOut.String(), "xesh> "); got != 2 {
		t.Errorf("prompts = %d, want 2", got)
	}
	if out.String() != "2\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func findItem(t *testing.T, items []item, label string) item {
	t.Helper()
	for _, it := range items {
		if it.label() == label {
			return it
		}
	}
	t.Fatalf("no item %q", label)
	return item{}
}

func TestListItems(t *testing.T) {
	var console bytes.Buffer
	rt, _ := newTestContext(t, &console)
	items := listItems(rt)

	tests := []struct {
		label  string
		params int
	}{
		{"xwalk.echo.echo", 1},
		{"xwalk.echo.echoAsync", 1},
		{"xwalk.echo.prefix", 0},
		{"xwalk.echo.EchoObject", 1},
	}
	for _, tt := range tests {
		it := findItem(t, items, tt.label)
		if len(it.params) != tt.params {
			t.Errorf("%s has %d params, want %d", tt.label, len(it.params), tt.params)
		}
	}
	if got := findItem(t, items, "xwalk.echo.echo").params[0].typeStr; got != "string" {
		t.Errorf("echo param type = %q", got)
	}
}

func TestInteractiveCall(t *testing.T) {
	var console bytes.Buffer
	rt, sc := newTestContext(t, &console)
	m := newInteractiveModel(rt, sc)

	call := func(label string, args ...string) callResultMsg {
		t.Helper()
		for i, it := range m.items {
			if it.label() == label {
				m.selected = i
			}
		}
		m.prepareInputs()
		for i, a := range args {
			m.inputs[i].SetValue(a)
		}
		res, ok := m.call().(callResultMsg)
		if !ok {
			t.Fatal("call did not return a callResultMsg")
		}
		return res
	}

	tests := []struct {
		label string
		args  []string
		want  string
	}{
		{"xwalk.echo.echo", []string{`"yo"`}, `"yo"`},
		{"xwalk.echo.version", nil, `"1.0"`},
		{"xwalk.echo.echoAsync", []string{`"later"`}, `"later"`},
		{"xwalk.echo.shout", []string{`"hey"`}, "undefined"},
		{"xwalk.echo.EchoObject", []string{`"t"`}, `{"tag":"t","count":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			res := call(tt.label, tt.args...)
			if res.err != nil {
				t.Fatal(res.err)
			}
			if res.result != tt.want {
				t.Errorf("result = %s, want %s", res.result, tt.want)
			}
		})
	}
}

func TestModelView(t *testing.T) {
	var console bytes.Buffer
	rt, sc := newTestContext(t, &console)
	m := newInteractiveModel(rt, sc)
	view := m.View()
	for _, part := range []string{"XESh Explorer", "xwalk.echo.echo", "xwalk.echo.EchoObject"} {
		if !strings.Contains(view, part) {
			t.Errorf("view lacks %q", part)
		}
	}

	_, _ = m.Update(callResultMsg{result: "42"})
	if m.state != stateShowResult || !strings.Contains(m.View(), "42") {
		t.Errorf("state = %v, view = %s", m.state, m.View())
	}
}
