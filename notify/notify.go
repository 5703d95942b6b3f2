package notify

import (
	"go.uber.org/zap"

	crosswalk "github.com/crosswalk-project/crosswalk-sub003"
	"github.com/crosswalk-project/crosswalk-sub003/codec"
	"github.com/crosswalk-project/crosswalk-sub003/descriptor"
	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Context addresses native-initiated messages to one script-side target: the
// extension object, a class, or a binding object.
type Context struct {
	InstanceID int32
	// ObjectID is "0" for the extension object and for class-level targets.
	ObjectID string
	// ConstructorName is empty for the extension object.
	ConstructorName string
	// Descriptor is the class the target belongs to. Event and property
	// notifications are checked against it.
	Descriptor *descriptor.Descriptor
	Poster     crosswalk.Poster
}

// ForExtension returns a context addressing the extension object itself.
func ForExtension(instanceID int32, d *descriptor.Descriptor, p crosswalk.Poster) *Context {
	return &Context{InstanceID: instanceID, ObjectID: "0", Descriptor: d, Poster: p}
}

// ForClass returns a context addressing a constructor's static side.
func ForClass(instanceID int32, d *descriptor.Descriptor, p crosswalk.Poster) *Context {
	return &Context{InstanceID: instanceID, ObjectID: "0", ConstructorName: d.Name, Descriptor: d, Poster: p}
}

// ForObject returns a context addressing one binding object.
func ForObject(instanceID int32, objectID string, d *descriptor.Descriptor, p crosswalk.Poster) *Context {
	return &Context{InstanceID: instanceID, ObjectID: objectID, ConstructorName: d.Name, Descriptor: d, Poster: p}
}

// Post sends a pre-rendered message to the owning instance.
func (c *Context) Post(msg string) {
	c.Poster.PostMessage(c.InstanceID, msg)
}

// PostBinary sends a binary reply for callbackID.
func (c *Context) PostBinary(callbackID int32, payload []byte) {
	c.Poster.PostBinaryMessage(c.InstanceID, codec.EncodeBinaryReply(callbackID, payload))
}

// InvokeCallback asks the script side to call the callback retained under
// callbackID with args.
func (c *Context) InvokeCallback(callbackID string, args ...any) error {
	normalized, err := codec.NormalizeArgs(args)
	if err != nil {
		return err
	}
	return c.send(codec.InvokeCallback{
		Cmd:        codec.CmdInvokeCallback,
		CallbackID: callbackID,
		Args:       normalized,
	})
}

// DispatchEvent fires typ on the target. Events missing from the class's
// event list are dropped.
func (c *Context) DispatchEvent(typ string, event any) error {
	if !c.Descriptor.SupportsEvent(typ) {
		err := errors.Undeclared(c.Descriptor.Name, "event", typ)
		Logger().Warn("dropping event", zap.String("type", typ), zap.Error(err))
		return err
	}
	text, err := codec.EncodeValue(event)
	if err != nil {
		return err
	}
	return c.send(codec.DispatchEvent{
		Cmd:             codec.CmdDispatchEvent,
		ConstructorName: c.ConstructorName,
		ObjectID:        c.ObjectID,
		Type:            typ,
		Event:           text,
	})
}

// UpdateProperty tells the script side to re-read name. Static properties
// are addressed to the class.
func (c *Context) UpdateProperty(name string) error {
	m, ok := c.Descriptor.Member(name)
	if !ok || m.Kind != descriptor.KindProperty {
		err := errors.Undeclared(c.Descriptor.Name, "property", name)
		Logger().Warn("dropping property update", zap.String("name", name), zap.Error(err))
		return err
	}
	objectID := c.ObjectID
	if m.Static {
		objectID = "0"
	}
	return c.send(codec.UpdateProperty{
		Cmd:             codec.CmdUpdateProperty,
		ObjectID:        objectID,
		ConstructorName: c.ConstructorName,
		Name:            name,
	})
}

// SendEvent broadcasts typ to every instance of the extension.
func (c *Context) SendEvent(typ string, event any) error {
	text, err := codec.EncodeValue(event)
	if err != nil {
		return err
	}
	msg, err := codec.Marshal(codec.OnEvent{Cmd: codec.CmdOnEvent, Type: typ, Event: text})
	if err != nil {
		return err
	}
	c.Poster.BroadcastMessage(msg)
	return nil
}

// Log prints msg on the script console at level ("log", "info", "warn" or
// "error").
func (c *Context) Log(level, msg string) error {
	if level == "" {
		level = "error"
	}
	return c.send(codec.LogMessage{Cmd: codec.CmdLog, Level: level, Msg: msg})
}

func (c *Context) send(v any) error {
	msg, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	c.Post(msg)
	return nil
}
