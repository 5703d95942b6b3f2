package codec

import (
	"encoding/binary"
	"strconv"

	"github.com/crosswalk-project/crosswalk-sub003/errors"
)

const wordSize = 4

// Aligned returns the padded size of an n-byte string field. Padding is
// always added, so a length that is already a multiple of four gains a full
// extra word.
func Aligned(n int) int {
	return n + (wordSize - n%wordSize)
}

// Frame is a binary-form request:
//
//	[u32 nameLen][name, aligned][u32 callbackId][u32 objectIdLen][objectId, aligned][payload]
//
// All integers are little-endian.
type Frame struct {
	Name       string
	CallbackID int32
	ObjectID   string
	Payload    []byte
}

// Size returns the encoded length of f.
func (f Frame) Size() int {
	return wordSize + Aligned(len(f.Name)) + 2*wordSize + Aligned(len(f.ObjectID)) + len(f.Payload)
}

// Encode serializes f.
func (f Frame) Encode() []byte {
	buf := make([]byte, f.Size())
	off := putString(buf, 0, f.Name)
	binary.LittleEndian.PutUint32(buf[off:], uint32(f.CallbackID))
	off += wordSize
	off = putString(buf, off, f.ObjectID)
	copy(buf[off:], f.Payload)
	return buf
}

// DecodeFrame parses a binary-form request. The payload aliases b.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	name, off, err := readString(b, 0, "name")
	if err != nil {
		return f, err
	}
	if len(b) < off+wordSize {
		return f, errors.Truncated(errors.PhaseDecode, "callbackId", off+wordSize, len(b))
	}
	f.CallbackID = int32(binary.LittleEndian.Uint32(b[off:]))
	off += wordSize
	objectID, off, err := readString(b, off, "objectId")
	if err != nil {
		return f, err
	}
	f.Name = name
	f.ObjectID = objectID
	f.Payload = b[off:]
	return f, nil
}

// ParseBinary decodes a binary message into a request.
func ParseBinary(b []byte) (*Request, error) {
	f, err := DecodeFrame(b)
	if err != nil {
		return nil, err
	}
	return &Request{
		Shape:      ShapeBinary,
		Command:    CmdInvokeNative,
		Name:       f.Name,
		CallbackID: strconv.FormatInt(int64(f.CallbackID), 10),
		ObjectID:   f.ObjectID,
		Binary:     f.Payload,
	}, nil
}

// EncodeMember prefixes args with an aligned method name, the layout used
// when a binary call is routed to a binding object.
func EncodeMember(name string, args []byte) []byte {
	buf := make([]byte, wordSize+Aligned(len(name))+len(args))
	off := putString(buf, 0, name)
	copy(buf[off:], args)
	return buf
}

// SplitMember is the inverse of EncodeMember. The returned args alias b.
func SplitMember(b []byte) (string, []byte, error) {
	name, off, err := readString(b, 0, "methodName")
	if err != nil {
		return "", nil, err
	}
	return name, b[off:], nil
}

// EncodeBinaryReply builds a binary reply: the callback id followed by the
// payload.
func EncodeBinaryReply(callbackID int32, payload []byte) []byte {
	buf := make([]byte, wordSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(callbackID))
	copy(buf[wordSize:], payload)
	return buf
}

func putString(buf []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
	off += wordSize
	copy(buf[off:], s)
	return off + Aligned(len(s))
}

func readString(b []byte, off int, field string) (string, int, error) {
	if len(b) < off+wordSize {
		return "", 0, errors.Truncated(errors.PhaseDecode, field, off+wordSize, len(b))
	}
	n := int32(binary.LittleEndian.Uint32(b[off:]))
	if n < 0 {
		return "", 0, errors.Misaligned(errors.PhaseDecode, field, int(n))
	}
	off += wordSize
	end := off + Aligned(int(n))
	if len(b) < end {
		return "", 0, errors.Truncated(errors.PhaseDecode, field, end, len(b))
	}
	return string(b[off : off+int(n)]), end, nil
}

// ParseCallbackID converts a callback id back to the int32 carried by
// binary replies.
func ParseCallbackID(id string) (int32, error) {
	n, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return 0, errors.TypeMismatch(errors.PhaseEncode, []string{"callbackId"}, "int32", id)
	}
	return int32(n), nil
}
