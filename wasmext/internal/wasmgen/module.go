// Package wasmgen assembles small core WebAssembly modules, enough to build
// guest extensions in tests without a toolchain.
package wasmgen

import (
	"github.com/tetratelabs/wazero/api"
)

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type importFunc struct {
	module string
	name   string
	typ    funcType
}

type defFunc struct {
	export string
	typ    funcType
	body   []byte
}

type global struct {
	export  string
	mutable bool
	init    int32
}

type segment struct {
	offset int32
	data   []byte
}

// Module builds a module with function imports, one exported memory, i32
// globals, data segments and defined functions. Function indices count
// imports first, in the order they were added.
type Module struct {
	imports     []importFunc
	funcs       []defFunc
	globals     []global
	data        []segment
	memoryPages uint32
	hasMemory   bool
}

// Import adds a function import and returns its function index. Imports
// must all be added before the first Func.
func (m *Module) Import(module, name string, params, results []api.ValueType) uint32 {
	m.imports = append(m.imports, importFunc{module: module, name: name, typ: funcType{params, results}})
	return uint32(len(m.imports) - 1)
}

// Func adds a function exported as export ("" keeps it internal) and
// returns its index. body is the instruction stream without the final end.
func (m *Module) Func(export string, params, results []api.ValueType, body []byte) uint32 {
	m.funcs = append(m.funcs, defFunc{export: export, typ: funcType{params, results}, body: body})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module's memory, exported as "memory".
func (m *Module) Memory(pages uint32) {
	m.memoryPages = pages
	m.hasMemory = true
}

// Global adds an i32 global and returns its index.
func (m *Module) Global(export string, mutable bool, init int32) uint32 {
	m.globals = append(m.globals, global{export: export, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

// Data places b in memory at offset.
func (m *Module) Data(offset int32, b []byte) {
	m.data = append(m.data, segment{offset: offset, data: b})
}

// Build generates the module bytes.
func (m *Module) Build() []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// one type per function, imports first
	var types []byte
	types = append(types, EncodeULEB128(uint32(len(m.imports)+len(m.funcs)))...)
	for _, im := range m.imports {
		types = append(types, encodeType(im.typ)...)
	}
	for _, f := range m.funcs {
		types = append(types, encodeType(f.typ)...)
	}
	wasm = append(wasm, section(0x01, types)...)

	if len(m.imports) > 0 {
		body := EncodeULEB128(uint32(len(m.imports)))
		for i, im := range m.imports {
			body = append(body, name(im.module)...)
			body = append(body, name(im.name)...)
			body = append(body, 0x00)
			body = append(body, EncodeULEB128(uint32(i))...)
		}
		wasm = append(wasm, section(0x02, body)...)
	}

	if len(m.funcs) > 0 {
		body := EncodeULEB128(uint32(len(m.funcs)))
		for i := range m.funcs {
			body = append(body, EncodeULEB128(uint32(len(m.imports)+i))...)
		}
		wasm = append(wasm, section(0x03, body)...)
	}

	if m.hasMemory {
		body := []byte{0x01, 0x00}
		body = append(body, EncodeULEB128(m.memoryPages)...)
		wasm = append(wasm, section(0x05, body)...)
	}

	if len(m.globals) > 0 {
		body := EncodeULEB128(uint32(len(m.globals)))
		for _, g := range m.globals {
			mut := byte(0x00)
			if g.mutable {
				mut = 0x01
			}
			body = append(body, 0x7f, mut)
			body = append(body, I32Const(g.init)...)
			body = append(body, 0x0b)
		}
		wasm = append(wasm, section(0x06, body)...)
	}

	wasm = append(wasm, section(0x07, m.exports())...)

	if len(m.funcs) > 0 {
		body := EncodeULEB128(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			code := append([]byte{0x00}, f.body...)
			code = append(code, 0x0b)
			body = append(body, EncodeULEB128(uint32(len(code)))...)
			body = append(body, code...)
		}
		wasm = append(wasm, section(0x0a, body)...)
	}

	if len(m.data) > 0 {
		body := EncodeULEB128(uint32(len(m.data)))
		for _, d := range m.data {
			body = append(body, 0x00)
			body = append(body, I32Const(d.offset)...)
			body = append(body, 0x0b)
			body = append(body, EncodeULEB128(uint32(len(d.data)))...)
			body = append(body, d.data...)
		}
		wasm = append(wasm, section(0x0b, body)...)
	}
	return wasm
}

func (m *Module) exports() []byte {
	var entries [][]byte
	if m.hasMemory {
		entries = append(entries, append(name("memory"), 0x02, 0x00))
	}
	for i, g := range m.globals {
		if g.export != "" {
			entries = append(entries, append(name(g.export), append([]byte{0x03}, EncodeULEB128(uint32(i))...)...))
		}
	}
	for i, f := range m.funcs {
		if f.export != "" {
			idx := EncodeULEB128(uint32(len(m.imports) + i))
			entries = append(entries, append(name(f.export), append([]byte{0x00}, idx...)...))
		}
	}
	body := EncodeULEB128(uint32(len(entries)))
	for _, e := range entries {
		body = append(body, e...)
	}
	return body
}

func encodeType(t funcType) []byte {
	out := []byte{0x60}
	out = append(out, EncodeULEB128(uint32(len(t.params)))...)
	for _, p := range t.params {
		out = append(out, valType(p))
	}
	out = append(out, EncodeULEB128(uint32(len(t.results)))...)
	for _, r := range t.results {
		out = append(out, valType(r))
	}
	return out
}
