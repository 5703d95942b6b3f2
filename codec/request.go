package codec

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Shape is the wire form a request arrived in.
type Shape uint8

const (
	ShapeArray Shape = iota
	ShapeObject
	ShapeBinary
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeObject:
		return "object"
	case ShapeBinary:
		return "binary"
	}
	return "unknown"
}

// Inbound commands.
const (
	CmdInvokeNative      = "invokeNative"
	CmdNewInstance       = "newInstance"
	CmdGetProperty       = "getProperty"
	CmdSetProperty       = "setProperty"
	CmdJSObjectCollected = "JSObjectCollected"
)

// Routing discriminators carried in the object form's type field.
const (
	MsgToObject    = "postMessageToObject"
	MsgToClass     = "postMessageToClass"
	MsgToExtension = "postMessageToExtension"
)

// Request is the normalized form of every inbound message.
type Request struct {
	Shape      Shape
	Command    string
	Type       string
	ObjectID   string
	Name       string
	Args       []any
	Binary     []byte
	CallbackID string
}

// Clone returns a copy that shares argument storage with r.
func (r *Request) Clone() *Request {
	c := *r
	return &c
}

// DispatchArgs returns the logical argument list. Binary requests carry the
// payload followed by the callback id.
func (r *Request) DispatchArgs() []any {
	if r.Binary != nil {
		return []any{r.Binary, r.CallbackID}
	}
	return r.Args
}

// Parse decodes a text message, choosing the array or object form from the
// first significant character.
func Parse(msg string) (*Request, error) {
	s := strings.TrimSpace(msg)
	if s == "" {
		return nil, errors.Malformed(errors.PhaseDecode, "empty message", nil)
	}
	switch s[0] {
	case '[':
		return parseArray(s)
	case '{':
		return parseObject(s)
	}
	return nil, errors.Malformed(errors.PhaseDecode, fmt.Sprintf("unexpected leading %q", s[0]), nil)
}

// parseArray handles [memberName, callbackId, objectId, ...args].
func parseArray(s string) (*Request, error) {
	var elems []any
	if err := decodeJSON(s, &elems); err != nil {
		return nil, errors.Malformed(errors.PhaseDecode, "array message", err)
	}
	if len(elems) < 3 {
		return nil, errors.New(errors.PhaseDecode, errors.KindMalformed).
			Detail("array message has %d slots, need 3", len(elems)).
			Build()
	}

	req := &Request{Shape: ShapeArray, Command: CmdInvokeNative}
	var err error
	if req.Name, err = stringOf(elems[0], "memberName"); err != nil {
		return nil, err
	}
	if req.CallbackID, err = stringOf(elems[1], "callbackId"); err != nil {
		return nil, err
	}
	if req.ObjectID, err = stringOf(elems[2], "objectId"); err != nil {
		return nil, err
	}
	req.Args = slices.Clone(elems[3:])
	return req, nil
}

// parseObject handles {cmd, objectId, type, name, args}.
func parseObject(s string) (*Request, error) {
	var m map[string]any
	if err := decodeJSON(s, &m); err != nil {
		return nil, errors.Malformed(errors.PhaseDecode, "object message", err)
	}

	req := &Request{Shape: ShapeObject, CallbackID: "0", ObjectID: "0"}
	var err error
	if req.Command, err = stringField(m, "cmd"); err != nil {
		return nil, err
	}
	if req.Type, err = stringField(m, "type"); err != nil {
		return nil, err
	}
	if raw, ok := m["objectId"]; ok && raw != nil {
		if req.ObjectID, err = stringOf(raw, "objectId"); err != nil {
			return nil, err
		}
	}
	name, err := stringField(m, "name")
	if err != nil {
		return nil, err
	}
	args, err := arrayOf(m["args"], "args")
	if err != nil {
		return nil, err
	}

	if req.Type != MsgToExtension {
		req.Name = req.Type
		req.Args = []any{name, args}
		return req, nil
	}

	req.Name = name
	req.Args = args
	if req.Command == CmdNewInstance {
		if len(args) < 2 {
			return nil, errors.New(errors.PhaseDecode, errors.KindMalformed).
				Path("args").
				Detail("newInstance needs [objectId, args]").
				Build()
		}
		if req.ObjectID, err = stringOf(args[0], "args.0"); err != nil {
			return nil, err
		}
		if req.Args, err = arrayOf(args[1], "args.1"); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// SplitRouted unpacks the [memberName, memberArgs] pair that class and
// object routing wrap around the original call.
func SplitRouted(args []any) (string, []any, error) {
	if len(args) < 2 {
		return "", nil, errors.New(errors.PhaseDecode, errors.KindMalformed).
			Detail("routed message needs [memberName, args]").
			Build()
	}
	name, err := stringOf(args[0], "memberName")
	if err != nil {
		return "", nil, err
	}
	rest, err := arrayOf(args[1], "memberArgs")
	if err != nil {
		return "", nil, err
	}
	return name, rest, nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(v)
}

// ParseJSON decodes a JSON value keeping numbers as json.Number.
func ParseJSON(s string) (any, error) {
	var v any
	if err := decodeJSON(s, &v); err != nil {
		return nil, errors.Malformed(errors.PhaseDecode, "json value", err)
	}
	return v, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New(errors.PhaseDecode, errors.KindMalformed).
			Path(key).
			Detail("missing field").
			Build()
	}
	return stringOf(v, key)
}

// stringOf accepts strings and numbers, the two forms ids take on the wire.
func stringOf(v any, field string) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	}
	return "", errors.TypeMismatch(errors.PhaseDecode, []string{field}, "string", v)
}

func arrayOf(v any, field string) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return t, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseDecode, []string{field}, "[]any", v)
}
