package wasmgen

import (
	"github.com/tetratelabs/wazero/api"
)

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		result = append(result, b)
		if v == 0 {
			break
		}
	}
	return result
}

// EncodeSLEB128 encodes a signed value in LEB128 format.
func EncodeSLEB128(v int32) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(result, b)
		}
		result = append(result, b|0x80)
	}
}

func valType(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	}
	return 0x7f
}

func name(s string) []byte {
	return append(EncodeULEB128(uint32(len(s))), s...)
}

func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = append(out, EncodeULEB128(uint32(len(body)))...)
	return append(out, body...)
}

// Instruction encoders for the handful of opcodes guest fixtures need.

func LocalGet(i uint32) []byte  { return append([]byte{0x20}, EncodeULEB128(i)...) }
func GlobalGet(i uint32) []byte { return append([]byte{0x23}, EncodeULEB128(i)...) }
func GlobalSet(i uint32) []byte { return append([]byte{0x24}, EncodeULEB128(i)...) }
func Call(i uint32) []byte      { return append([]byte{0x10}, EncodeULEB128(i)...) }
func I32Const(v int32) []byte   { return append([]byte{0x41}, EncodeSLEB128(v)...) }
func I32Add() []byte            { return []byte{0x6a} }

// Code concatenates instructions into a function body.
func Code(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return out
}
