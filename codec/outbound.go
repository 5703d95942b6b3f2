package codec

import (
	"encoding/json"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

// Outbound commands.
const (
	CmdInvokeCallback = "invokeCallback"
	CmdDispatchEvent  = "dispatchEvent"
	CmdUpdateProperty = "updateProperty"
	CmdOnEvent        = "onEvent"
	CmdLog            = "error"
)

// InvokeCallback asks the script side to call a retained callback.
type InvokeCallback struct {
	Cmd        string `json:"cmd"`
	CallbackID string `json:"callbackId"`
	Args       []any  `json:"args"`
}

// DispatchEvent fires a declared event on one script object. Event holds
// the JSON text of the payload.
type DispatchEvent struct {
	Cmd             string `json:"cmd"`
	ConstructorName string `json:"constructorName"`
	ObjectID        string `json:"objectId"`
	Type            string `json:"type"`
	Event           string `json:"event"`
}

// UpdateProperty tells the script side to re-read a property.
type UpdateProperty struct {
	Cmd             string `json:"cmd"`
	ObjectID        string `json:"objectId"`
	ConstructorName string `json:"constructorName"`
	Name            string `json:"name"`
}

// OnEvent is broadcast to every instance of an extension.
type OnEvent struct {
	Cmd   string `json:"cmd"`
	Type  string `json:"type"`
	Event string `json:"event"`
}

// LogMessage prints to the script console.
type LogMessage struct {
	Cmd   string `json:"cmd"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

// Marshal renders an outbound message.
func Marshal(msg any) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "marshal message")
	}
	return string(b), nil
}

// EncodeReply builds the [callbackId, ...results] reply for array-form
// requests.
func EncodeReply(callbackID string, results ...any) (string, error) {
	out := make([]any, 0, len(results)+1)
	out = append(out, callbackID)
	for _, r := range results {
		n, err := Normalize(r)
		if err != nil {
			return "", err
		}
		out = append(out, n)
	}
	return Marshal(out)
}

// NormalizeArgs normalizes each callback argument.
func NormalizeArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		n, err := Normalize(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
