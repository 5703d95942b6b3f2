package dispatch

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
	"github.com/crosswalk-project/crosswalk-sub003/reflector"
)

type Counter struct {
	binding.Base
	Value int
	Label string
	Total int

	lastCallback string
}

func (c *Counter) Fail() error { return stderrors.New("boom") }

func (c *Counter) Add(n int) int {
	c.Value += n
	return c.Value
}

func (c *Counter) Feed(payload []byte, callbackID string) int {
	c.lastCallback = callbackID
	return len(payload)
}

type Options struct {
	Level int `json:"level"`
}

type Host struct {
	Prefix string
	Scale  float64

	last *notify.Context
}

func (h *Host) Echo(s string) string  { return h.Prefix + s }
func (h *Host) Add(a int, b int8) int { return a + int(b) }
func (h *Host) Boom()                 { panic("kaboom") }

func (h *Host) Notify(ctx *notify.Context, msg string) string {
	h.last = ctx
	return msg
}

func (h *Host) Configure(o Options, tags []string) string {
	return fmt.Sprintf("%d:%s", o.Level, strings.Join(tags, ","))
}

func (h *Host) NewCounter(start int) *Counter {
	if start < 0 {
		return nil
	}
	return &Counter{Value: start}
}

type poster struct{ msgs []string }

func (p *poster) PostMessage(_ int32, msg string)     { p.msgs = append(p.msgs, msg) }
func (p *poster) PostBinaryMessage(_ int32, _ []byte) {}
func (p *poster) BroadcastMessage(string)             {}

type fixture struct {
	d     *Dispatcher
	root  *descriptor.Descriptor
	host  *Host
	store *binding.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	b := reflector.NewBuilder()
	b.Register(&Host{}, reflector.Class("Host").
		Method("Echo").
		Method("Add").
		Method("Notify", reflector.Static()).
		Method("Boom").
		Method("Configure").
		Property("Prefix", reflector.Writable()).
		Property("Scale").
		Constructor("NewCounter"))
	b.Register(&Counter{}, reflector.Class("Counter").
		Method("Add").
		Method("Fail").
		Method("Feed").
		Property("Value").
		Property("Label", reflector.Writable()).
		Property("Total", reflector.Static()))

	host := &Host{Prefix: "p-"}
	root, err := b.Build(host)
	if err != nil {
		t.Fatal(err)
	}
	p := &poster{}
	store := binding.NewStore(func(id string, obj binding.Object) *notify.Context {
		nested, _ := root.Nested("Counter")
		return notify.ForObject(3, id, nested, p)
	})
	d := New(Config{Root: root, Store: store, InstanceID: 3, Poster: p})
	return &fixture{d: d, root: root, host: host, store: store}
}

func invoke(name string, args ...any) *codec.Request {
	return &codec.Request{Command: codec.CmdInvokeNative, Name: name, Args: args}
}

func parse(t *testing.T, msg string) *codec.Request {
	t.Helper()
	req, err := codec.Parse(msg)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func isKind(err error, phase errors.Phase, kind errors.Kind) bool {
	return stderrors.Is(err, &errors.Error{Phase: phase, Kind: kind})
}

func TestHandle_Invoke(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		req  *codec.Request
		want any
	}{
		{"string arg", invoke("echo", "hi"), "p-hi"},
		{"missing arg is zero", invoke("echo"), "p-"},
		{"extra args ignored", invoke("echo", "a", "b"), "p-a"},
		{"numbers", invoke("add", json.Number("2"), json.Number("3")), 5},
		{"integral float", invoke("add", json.Number("2.0"), json.Number("1")), 3},
		{"composite args", invoke("configure", map[string]any{"level": json.Number("3")}, []any{"a", "b"}), "3:a,b"},
		{"static with context", invoke("notify", "x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.d.Handle(tt.req, f.root, f.host)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestHandle_InvokeErrors(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name   string
		req    *codec.Request
		target any
		kind   errors.Kind
	}{
		{"unknown member", invoke("nope"), f.host, errors.KindNoSuchMember},
		{"property is not invocable", invoke("prefix"), f.host, errors.KindNoSuchMember},
		{"nil target", invoke("echo", "x"), nil, errors.KindInvalidTarget},
		{"foreign target", invoke("echo", "x"), &Counter{}, errors.KindInvalidTarget},
		{"int8 overflow", invoke("add", json.Number("1"), json.Number("300")), f.host, errors.KindTypeMismatch},
		{"fractional int", invoke("add", json.Number("1.5")), f.host, errors.KindTypeMismatch},
		{"string for int", invoke("add", "one"), f.host, errors.KindTypeMismatch},
		{"panic", invoke("boom"), f.host, errors.KindInvocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.d.Handle(tt.req, f.root, tt.target)
			if !isKind(err, errors.PhaseDispatch, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestHandle_StaticContextInjection(t *testing.T) {
	f := setup(t)
	// static members ignore the target
	got, err := f.d.Handle(invoke("notify", "msg"), f.root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "msg" {
		t.Errorf("got %v", got)
	}
	ctx := f.host.last
	if ctx == nil {
		t.Fatal("context not injected")
	}
	if ctx.InstanceID != 3 || ctx.ObjectID != "0" || ctx.ConstructorName != "" || ctx.Descriptor != f.root {
		t.Errorf("context = %+v", ctx)
	}
}

func TestHandle_Properties(t *testing.T) {
	f := setup(t)
	set := &codec.Request{Command: codec.CmdSetProperty, Name: "prefix", Args: []any{"x-"}}
	if _, err := f.d.Handle(set, f.root, f.host); err != nil {
		t.Fatal(err)
	}
	got, err := f.d.Handle(&codec.Request{Command: codec.CmdGetProperty, Name: "prefix"}, f.root, f.host)
	if err != nil {
		t.Fatal(err)
	}
	if got != "x-" {
		t.Errorf("prefix = %v", got)
	}
	if echoed, _ := f.d.Handle(invoke("echo", "hi"), f.root, f.host); echoed != "x-hi" {
		t.Errorf("echo after write = %v", echoed)
	}

	// not declared writable, still assignable from the native side
	set = &codec.Request{Command: codec.CmdSetProperty, Name: "scale", Args: []any{json.Number("1.5")}}
	if _, err := f.d.Handle(set, f.root, f.host); err != nil {
		t.Fatal(err)
	}
	if f.host.Scale != 1.5 {
		t.Errorf("Scale = %v", f.host.Scale)
	}
}

func TestHandle_PropertyErrors(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name string
		req  *codec.Request
		kind errors.Kind
	}{
		{"get method", &codec.Request{Command: codec.CmdGetProperty, Name: "echo"}, errors.KindNoSuchProperty},
		{"set unknown", &codec.Request{Command: codec.CmdSetProperty, Name: "nope", Args: []any{1}}, errors.KindNoSuchProperty},
		{"set without value", &codec.Request{Command: codec.CmdSetProperty, Name: "prefix"}, errors.KindInvalidInput},
		{"set wrong type", &codec.Request{Command: codec.CmdSetProperty, Name: "scale", Args: []any{"fast"}}, errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.d.Handle(tt.req, f.root, f.host)
			if !isKind(err, errors.PhaseDispatch, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestHandle_UnsupportedCommand(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	f := setup(t)
	got, err := f.d.Handle(&codec.Request{Command: "explode", Name: "echo"}, f.root, f.host)
	if got != nil || err != nil {
		t.Errorf("got %v, %v", got, err)
	}
	entries := logs.FilterMessage("unsupported command").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries", len(entries))
	}
	if msg, _ := entries[0].ContextMap()["error"].(string); !strings.Contains(msg, "unsupported: command explode") {
		t.Errorf("error field = %q", msg)
	}
}

func TestHandle_NewInstance(t *testing.T) {
	f := setup(t)
	req := parse(t, `{"cmd":"newInstance","type":"postMessageToExtension","objectId":0,"name":"Counter","args":["id-1",[4]]}`)

	got, err := f.d.Handle(req, f.root, f.host)
	if err != nil {
		t.Fatal(err)
	}
	if got != true {
		t.Fatalf("newInstance = %v", got)
	}
	obj, ok := f.store.Get("id-1")
	if !ok {
		t.Fatal("object not registered")
	}
	c := obj.(*Counter)
	if c.Value != 4 || c.ObjectID() != "id-1" {
		t.Errorf("counter = %+v", c)
	}

	// a second object under the same id is refused
	got, err = f.d.Handle(req, f.root, f.host)
	if err != nil || got != false {
		t.Errorf("duplicate newInstance = %v, %v", got, err)
	}

	bad := parse(t, `{"cmd":"newInstance","type":"postMessageToExtension","name":"Counter","args":["id-2",[-1]]}`)
	if _, err := f.d.Handle(bad, f.root, f.host); !isKind(err, errors.PhaseDispatch, errors.KindTypeMismatch) {
		t.Errorf("nil object err = %v", err)
	}
	notCtor := parse(t, `{"cmd":"newInstance","type":"postMessageToExtension","name":"echo","args":["id-3",[]]}`)
	if _, err := f.d.Handle(notCtor, f.root, f.host); !isKind(err, errors.PhaseDispatch, errors.KindNoSuchMember) {
		t.Errorf("method as constructor err = %v", err)
	}
}

func TestToObject(t *testing.T) {
	f := setup(t)
	if _, err := f.d.Handle(parse(t, `{"cmd":"newInstance","type":"postMessageToExtension","name":"Counter","args":["id-1",[4]]}`), f.root, f.host); err != nil {
		t.Fatal(err)
	}

	got, err := f.d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-1","name":"add","args":[2]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("add = %v", got)
	}

	got, err = f.d.ToObject(parse(t, `{"cmd":"getProperty","type":"postMessageToObject","objectId":"id-1","name":"value","args":[]}`))
	if err != nil || got != 6 {
		t.Errorf("value = %v, %v", got, err)
	}

	if _, err := f.d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-1","name":"fail","args":[]}`)); !isKind(err, errors.PhaseDispatch, errors.KindInvocation) {
		t.Errorf("fail err = %v", err)
	}
	if _, err := f.d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-9","name":"add","args":[1]}`)); !isKind(err, errors.PhaseDispatch, errors.KindNotFound) {
		t.Errorf("unknown object err = %v", err)
	}
	// members of the extension class are not reachable through an object
	if _, err := f.d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-1","name":"echo","args":["x"]}`)); !isKind(err, errors.PhaseDispatch, errors.KindNoSuchMember) {
		t.Errorf("root member via object err = %v", err)
	}
}

func TestToObject_Binary(t *testing.T) {
	f := setup(t)
	if ok, err := f.d.NewInstance(f.root, f.host, "Counter", "7", []any{json.Number("0")}); err != nil || !ok {
		t.Fatalf("NewInstance = %v, %v", ok, err)
	}
	frame := codec.Frame{
		Name:       codec.MsgToObject,
		CallbackID: 12,
		ObjectID:   "7",
		Payload:    codec.EncodeMember("feed", []byte{1, 2, 3}),
	}
	req, err := codec.ParseBinary(frame.Encode())
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.d.ToObject(req)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("feed = %v", got)
	}
	obj, _ := f.store.Get("7")
	if cb := obj.(*Counter).lastCallback; cb != "12" {
		t.Errorf("callback id = %q", cb)
	}
}

func TestToClass(t *testing.T) {
	f := setup(t)
	set := parse(t, `{"cmd":"setProperty","type":"postMessageToClass","objectId":0,"name":"total","args":["Counter",[9]]}`)
	if _, err := f.d.ToClass(set); err != nil {
		t.Fatal(err)
	}
	got, err := f.d.ToClass(parse(t, `{"cmd":"getProperty","type":"postMessageToClass","objectId":0,"name":"total","args":["Counter",[]]}`))
	if err != nil || got != 9 {
		t.Errorf("total = %v, %v", got, err)
	}
	nested, _ := f.root.Nested("Counter")
	if nested.Proto.Interface().(*Counter).Total != 9 {
		t.Error("static property not stored on the class object")
	}

	// instance members need an instance
	if _, err := f.d.ToClass(parse(t, `{"cmd":"invokeNative","type":"postMessageToClass","name":"add","args":["Counter",[1]]}`)); !isKind(err, errors.PhaseDispatch, errors.KindInvalidTarget) {
		t.Errorf("instance member via class err = %v", err)
	}

	// an unknown constructor name falls back to the extension class
	got, err = f.d.ToClass(parse(t, `{"cmd":"invokeNative","type":"postMessageToClass","name":"notify","args":["",["hey"]]}`))
	if err != nil || got != "hey" {
		t.Errorf("notify = %v, %v", got, err)
	}
	if f.host.last.ConstructorName != "" {
		t.Errorf("root static got class context %+v", f.host.last)
	}
}

func TestToClass_Malformed(t *testing.T) {
	f := setup(t)
	req := &codec.Request{Command: codec.CmdInvokeNative, Name: codec.MsgToClass, Args: []any{"add"}}
	if _, err := f.d.ToClass(req); !isKind(err, errors.PhaseDecode, errors.KindMalformed) {
		t.Errorf("err = %v", err)
	}
}

type Child struct {
	binding.Base
	Hits int
}

func (c *Child) Ping() int {
	c.Hits++
	return 42
}

type Hollow struct {
	*binding.Base
}

type Shell struct {
	Child *Child
}

func (s *Shell) NewChild() *Child   { return &Child{} }
func (s *Shell) NewHollow() *Hollow { return &Hollow{} }

func shellDispatcher(t *testing.T, shell *Shell) (*Dispatcher, *descriptor.Descriptor, *binding.Store) {
	t.Helper()
	b := reflector.NewBuilder()
	b.Register(&Shell{}, reflector.Class("Shell").
		Property("Child", reflector.EntryPoint()).
		Constructor("NewChild").
		Constructor("NewHollow"))
	b.Register(&Child{}, reflector.Class("Child").Method("Ping").Property("Hits"))
	b.Register(&Hollow{}, reflector.Class("Hollow"))
	root, err := b.Build(shell)
	if err != nil {
		t.Fatal(err)
	}
	store := binding.NewStore(nil)
	return New(Config{Root: root, Object: shell, Store: store, Poster: &poster{}}), root, store
}

func TestToObject_EntryPointProperty(t *testing.T) {
	shell := &Shell{Child: &Child{}}
	d, _, _ := shellDispatcher(t, shell)

	got, err := d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":0,"name":"ping","args":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 || shell.Child.Hits != 1 {
		t.Errorf("ping = %v, hits = %d", got, shell.Child.Hits)
	}
	got, err = d.ToObject(parse(t, `{"cmd":"getProperty","type":"postMessageToObject","objectId":0,"name":"hits","args":[]}`))
	if err != nil || got != 1 {
		t.Errorf("hits = %v, %v", got, err)
	}

	shell.Child = nil
	if _, err := d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":0,"name":"ping","args":[]}`)); !isKind(err, errors.PhaseDispatch, errors.KindNotFound) {
		t.Errorf("nil entry point err = %v", err)
	}
}

func TestToObject_ZeroWithoutEntryPoint(t *testing.T) {
	f := setup(t)
	if _, err := f.d.ToObject(parse(t, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":0,"name":"add","args":[1]}`)); !isKind(err, errors.PhaseDispatch, errors.KindNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestHandle_NewInstanceNilBase(t *testing.T) {
	d, root, store := shellDispatcher(t, &Shell{})
	ok, err := d.NewInstance(root, &Shell{}, "Hollow", "id-1", nil)
	if err != nil || ok {
		t.Errorf("NewInstance = %v, %v", ok, err)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d objects", store.Len())
	}
}
