package extension

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/binding"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/notify"
	"github.com/crosswalk-project/crosswalk-sub003/reflector"
)

type tracker struct{ seen []crosswalk.LifecycleEvent }

func (t *tracker) OnStart()   { t.seen = append(t.seen, crosswalk.Start) }
func (t *tracker) OnResume()  { t.seen = append(t.seen, crosswalk.Resume) }
func (t *tracker) OnPause()   { t.seen = append(t.seen, crosswalk.Pause) }
func (t *tracker) OnStop()    { t.seen = append(t.seen, crosswalk.Stop) }
func (t *tracker) OnDestroy() { t.seen = append(t.seen, crosswalk.Destroy) }

type echoExt struct {
	tracker
	Prefix string
}

func (e *echoExt) Echo(s string) string           { return e.Prefix + s + "-echoed" }
func (e *echoExt) NewEcho(tag string) *echoObject { return &echoObject{Tag: tag} }

func (e *echoExt) EchoAsync(ctx *notify.Context, s, callbackID string) {
	_ = ctx.InvokeCallback(callbackID, s)
}

func (e *echoExt) Bytes(payload []byte, _ string) []byte {
	out := slices.Clone(payload)
	slices.Reverse(out)
	return out
}

type echoObject struct {
	binding.Base
	tracker
	Tag string
}

func (o *echoObject) Describe() string { return "echo object " + o.ObjectID() + o.Tag }

type posted struct {
	instance int32
	msg      string
}

type recorder struct {
	mu         sync.Mutex
	msgs       []posted
	binary     [][]byte
	broadcasts []string
}

func (r *recorder) PostMessage(id int32, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, posted{id, msg})
}

func (r *recorder) PostBinaryMessage(_ int32, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binary = append(r.binary, msg)
}

func (r *recorder) BroadcastMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
}

func (r *recorder) last(t *testing.T) posted {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		t.Fatal("nothing posted")
	}
	return r.msgs[len(r.msgs)-1]
}

func newBuilder() *reflector.Builder {
	b := reflector.NewBuilder()
	b.Register(&echoExt{}, reflector.Class("EchoExtension").
		Method("Echo").
		Method("EchoAsync", reflector.Static(), reflector.Promise()).
		Method("Bytes").
		Property("Prefix", reflector.Writable()).
		Constructor("NewEcho", reflector.EntryPoint()))
	b.Register(&echoObject{}, reflector.Class("Echo").
		Method("Describe").
		Property("Tag"))
	return b
}

func setup(t *testing.T) (*Extension, *echoExt, *recorder) {
	t.Helper()
	obj := &echoExt{}
	ext, err := New(obj, Config{Name: "xwalk.echo", Builder: newBuilder()})
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	ext.Attach(rec)
	ext.OnInstanceCreated(context.Background(), 1)
	return ext, obj, rec
}

func TestNew(t *testing.T) {
	if _, err := New(&echoExt{}, Config{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := New(nil, Config{Name: "x"}); err == nil {
		t.Error("expected error for nil object")
	}

	ext, err := New(&echoExt{}, Config{Name: "xwalk.echo", Builder: newBuilder(), EntryPoints: []string{"Echo"}})
	if err != nil {
		t.Fatal(err)
	}
	if ext.Name() != "xwalk.echo" {
		t.Errorf("Name() = %q", ext.Name())
	}
	if got := ext.EntryPoints(); len(got) != 1 || got[0] != "Echo" {
		t.Errorf("EntryPoints() = %v", got)
	}
	if api := ext.JavaScriptAPI(); !strings.Contains(api, `helper.invokeNative("postMessageToExtension", "echo"`) {
		t.Errorf("generated API lacks echo:\n%s", api)
	}

	ext, err = New(&echoExt{}, Config{Name: "xwalk.echo", JSAPI: "exports.x = 1;"})
	if err != nil {
		t.Fatal(err)
	}
	if ext.JavaScriptAPI() != "exports.x = 1;" {
		t.Errorf("JSAPI override ignored: %q", ext.JavaScriptAPI())
	}
}

func TestScenario_SimpleCall(t *testing.T) {
	ext, _, rec := setup(t)
	ext.OnMessage(context.Background(), 1, `["echo","7","0","hi"]`)
	got := rec.last(t)
	if got.instance != 1 || got.msg != `["7","hi-echoed"]` {
		t.Errorf("reply = %+v", got)
	}
}

func TestScenario_PropertyWriteThenRead(t *testing.T) {
	ext, obj, rec := setup(t)
	ctx := context.Background()

	set := `{"cmd":"setProperty","type":"postMessageToExtension","objectId":0,"name":"prefix","args":["x-"]}`
	if got := ext.OnSyncMessage(ctx, 1, set); got != "" {
		t.Errorf("setProperty reply = %q", got)
	}
	if obj.Prefix != "x-" {
		t.Errorf("Prefix = %q", obj.Prefix)
	}
	get := `{"cmd":"getProperty","type":"postMessageToExtension","objectId":0,"name":"prefix","args":[]}`
	if got := ext.OnSyncMessage(ctx, 1, get); got != `"x-"` {
		t.Errorf("getProperty reply = %q", got)
	}

	ext.OnMessage(ctx, 1, `["echo","8","0","hi"]`)
	if got := rec.last(t).msg; got != `["8","x-hi-echoed"]` {
		t.Errorf("echo reply = %s", got)
	}
}

func TestScenario_ConstructorFlow(t *testing.T) {
	ext, _, _ := setup(t)
	ctx := context.Background()

	ctor := `{"cmd":"newInstance","type":"postMessageToExtension","objectId":0,"name":"Echo","args":["id-1",[]]}`
	if got := ext.OnSyncMessage(ctx, 1, ctor); got != "true" {
		t.Fatalf("newInstance reply = %q", got)
	}
	call := `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-1","name":"describe","args":[]}`
	if got := ext.OnSyncMessage(ctx, 1, call); got != `"echo object id-1"` {
		t.Errorf("describe reply = %q", got)
	}

	inst, _ := ext.Instance(1)
	obj, ok := inst.Store().Get("id-1")
	if !ok {
		t.Fatal("object not registered")
	}
	c := obj.Binding().Context()
	if c == nil || c.ObjectID != "id-1" || c.ConstructorName != "Echo" || c.InstanceID != 1 {
		t.Errorf("object context = %+v", c)
	}

	// the same id again is refused
	if got := ext.OnSyncMessage(ctx, 1, ctor); got != "false" {
		t.Errorf("duplicate newInstance reply = %q", got)
	}

	collected := `{"cmd":"invokeNative","type":"postMessageToExtension","objectId":"id-1","name":"JSObjectCollected","args":["id-1"]}`
	ext.OnMessage(ctx, 1, collected)
	if inst.Store().Len() != 0 {
		t.Errorf("store still holds %v", inst.Store().IDs())
	}
	if got := ext.OnSyncMessage(ctx, 1, call); got != "" {
		t.Errorf("call on collected object = %q", got)
	}
}

func TestPromiseMethod(t *testing.T) {
	ext, _, rec := setup(t)
	msg := `{"cmd":"invokeNative","type":"postMessageToExtension","objectId":0,"name":"echoAsync","args":["yo","12"]}`
	ext.OnMessage(context.Background(), 1, msg)
	want := `{"cmd":"invokeCallback","callbackId":"12","args":["yo"]}`
	if got := rec.last(t); got.instance != 1 || got.msg != want {
		t.Errorf("posted %+v, want %s", got, want)
	}
}

func TestBinaryMessage(t *testing.T) {
	ext, _, rec := setup(t)
	frame := codec.Frame{Name: "bytes", CallbackID: 5, ObjectID: "0", Payload: []byte{1, 2, 3}}
	ext.OnBinaryMessage(context.Background(), 1, frame.Encode())

	if len(rec.binary) != 1 {
		t.Fatalf("binary replies = %d", len(rec.binary))
	}
	if want := []byte{5, 0, 0, 0, 3, 2, 1}; !bytes.Equal(rec.binary[0], want) {
		t.Errorf("reply = %v, want %v", rec.binary[0], want)
	}

	ext.OnBinaryMessage(context.Background(), 1, []byte{1, 2})
	if len(rec.binary) != 1 {
		t.Error("truncated frame produced a reply")
	}
}

func TestDroppedMessages(t *testing.T) {
	ext, _, rec := setup(t)
	ctx := context.Background()
	tests := []struct {
		name     string
		instance int32
		msg      string
	}{
		{"malformed json", 1, `{"cmd":`},
		{"unknown instance", 9, `["echo","1","0","hi"]`},
		{"unknown member", 1, `["nope","1","0"]`},
		{"bad argument", 1, `{"cmd":"setProperty","type":"postMessageToExtension","name":"prefix","args":[[1]]}`},
		{"unknown object", 1, `{"cmd":"invokeNative","type":"postMessageToObject","objectId":"id-9","name":"describe","args":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext.OnMessage(ctx, tt.instance, tt.msg)
			if got := ext.OnSyncMessage(ctx, tt.instance, tt.msg); got != "" {
				t.Errorf("sync reply = %q", got)
			}
		})
	}
	if len(rec.msgs) != 0 {
		t.Errorf("posted %v", rec.msgs)
	}
}

func TestHandlersCopiedAtCreation(t *testing.T) {
	ext, _, _ := setup(t)
	ctx := context.Background()
	ext.Handle("ping", func(*Instance, *codec.Request) (any, error) { return "pong", nil })
	ext.OnInstanceCreated(ctx, 2)

	if got := ext.OnSyncMessage(ctx, 2, `["ping","1","0"]`); got != `"pong"` {
		t.Errorf("new instance reply = %q", got)
	}
	if got := ext.OnSyncMessage(ctx, 1, `["ping","1","0"]`); got != "" {
		t.Errorf("old instance reply = %q", got)
	}
}

func TestLifecycle(t *testing.T) {
	ext, obj, _ := setup(t)
	ctx := context.Background()
	ext.OnSyncMessage(ctx, 1, `{"cmd":"newInstance","type":"postMessageToExtension","name":"Echo","args":["a",["t"]]}`)

	ext.Lifecycle(crosswalk.Pause)
	ext.Lifecycle(crosswalk.Resume)

	want := []crosswalk.LifecycleEvent{crosswalk.Pause, crosswalk.Resume}
	if !slices.Equal(obj.seen, want) {
		t.Errorf("extension saw %v", obj.seen)
	}
	inst, _ := ext.Instance(1)
	bound, _ := inst.Store().Get("a")
	if got := bound.(*echoObject).seen; !slices.Equal(got, want) {
		t.Errorf("binding object saw %v", got)
	}

	ext.OnInstanceDestroyed(ctx, 1)
	if bound.Binding().Bound() {
		t.Error("object still bound after instance destroyed")
	}
	if _, ok := ext.Instance(1); ok {
		t.Error("instance survived destruction")
	}
}

func TestSendEvent(t *testing.T) {
	ext, _, rec := setup(t)
	if err := ext.SendEvent("tick", map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	want := `{"cmd":"onEvent","type":"tick","event":"{\"n\":1}"}`
	if len(rec.broadcasts) != 1 || rec.broadcasts[0] != want {
		t.Errorf("broadcasts = %v", rec.broadcasts)
	}
}

func TestAttachAfterInstance(t *testing.T) {
	ext, err := New(&echoExt{}, Config{Name: "xwalk.echo", Builder: newBuilder()})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	ext.OnInstanceCreated(ctx, 1)
	ext.OnMessage(ctx, 1, `["echo","1","0","a"]`)

	rec := &recorder{}
	ext.Attach(rec)
	ext.OnMessage(ctx, 1, `["echo","2","0","b"]`)
	if len(rec.msgs) != 1 || rec.msgs[0].msg != `["2","b-echoed"]` {
		t.Errorf("posted %v", rec.msgs)
	}
}
