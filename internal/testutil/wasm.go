package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Wasm value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

// WasmImport is an imported function.
type WasmImport struct {
	Module, Name    string
	Params, Results []byte
}

// WasmFunc is a defined function. Body is the raw instruction sequence
// including the trailing end (0x0b). An empty Name leaves it unexported.
type WasmFunc struct {
	Name            string
	Params, Results []byte
	Body            []byte
}

// WasmModule assembles a minimal binary module. Functions are indexed after
// imports, in order. Globals are mutable i32s with the given initial values.
type WasmModule struct {
	Imports []WasmImport
	Funcs   []WasmFunc
	Globals []int32
	// Memory exports one page as "memory".
	Memory bool
}

// Bytes encodes the module.
func (m WasmModule) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types [][]byte
	for _, imp := range m.Imports {
		types = append(types, funcType(imp.Params, imp.Results))
	}
	for _, f := range m.Funcs {
		types = append(types, funcType(f.Params, f.Results))
	}
	out = appendSection(out, 1, vec(types))

	if len(m.Imports) > 0 {
		imports := make([][]byte, len(m.Imports))
		for i, imp := range m.Imports {
			b := name(imp.Module)
			b = append(b, name(imp.Name)...)
			b = append(b, 0x00)
			b = append(b, uleb(uint32(i))...)
			imports[i] = b
		}
		out = appendSection(out, 2, vec(imports))
	}

	funcs := make([][]byte, len(m.Funcs))
	for i := range m.Funcs {
		funcs[i] = uleb(uint32(len(m.Imports) + i))
	}
	out = appendSection(out, 3, vec(funcs))

	if m.Memory {
		out = appendSection(out, 5, vec([][]byte{{0x00, 0x01}}))
	}

	if len(m.Globals) > 0 {
		globals := make([][]byte, len(m.Globals))
		for i, v := range m.Globals {
			g := []byte{I32, 0x01, 0x41}
			g = append(g, sleb(v)...)
			globals[i] = append(g, 0x0b)
		}
		out = appendSection(out, 6, vec(globals))
	}

	var exports [][]byte
	if m.Memory {
		exports = append(exports, append(name("memory"), 0x02, 0x00))
	}
	for i, f := range m.Funcs {
		if f.Name == "" {
			continue
		}
		e := append(name(f.Name), 0x00)
		exports = append(exports, append(e, uleb(uint32(len(m.Imports)+i))...))
	}
	out = appendSection(out, 7, vec(exports))

	codes := make([][]byte, len(m.Funcs))
	for i, f := range m.Funcs {
		body := append([]byte{0x00}, f.Body...)
		codes[i] = append(uleb(uint32(len(body))), body...)
	}
	return appendSection(out, 10, vec(codes))
}

// Write stores the module as dir/<module>.wasm and returns the path.
func (m WasmModule) Write(t *testing.T, dir, module string) string {
	t.Helper()
	path := filepath.Join(dir, module+".wasm")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, m.Bytes(), 0o644))
	return path
}

// Instruction snippets shared by the fixtures.
var (
	// global 0 += 1; return 0
	bumpInitCount = []byte{0x23, 0x00, 0x41, 0x01, 0x6a, 0x24, 0x00, 0x41, 0x00, 0x0b}
	// return global 0
	readInitCount = []byte{0x23, 0x00, 0x0b}
	// bump allocator over global 1
	bumpAllocate = []byte{0x23, 0x01, 0x23, 0x01, 0x20, 0x00, 0x6a, 0x24, 0x01, 0x0b}
	// (ptr, len) -> ptr<<32 | len
	packArgs = []byte{0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b}
)

// MyModule is the reference extension used across the test suites. It
// exports:
//
//	Init_mymodule() i32   increments the init counter, returns 0
//	init_count() i32      the init counter
//	add(i32, i32) i32
//	div(i32, i32) i32     traps on division by zero
//	fail()                unreachable
//	scale(f64, f64) f64
//	negate(i64) i64
//	echo(string) string   returns its argument
//	length(bytes) i32     returns the buffer length
//	allocate(i32) i32     bump allocator starting at 1024
func MyModule() WasmModule {
	return WasmModule{
		Memory:  true,
		Globals: []int32{0, 1024},
		Funcs: []WasmFunc{
			{Name: "Init_mymodule", Results: []byte{I32}, Body: bumpInitCount},
			{Name: "init_count", Results: []byte{I32}, Body: readInitCount},
			{Name: "add", Params: []byte{I32, I32}, Results: []byte{I32}, Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}},
			{Name: "div", Params: []byte{I32, I32}, Results: []byte{I32}, Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6d, 0x0b}},
			{Name: "fail", Body: []byte{0x00, 0x0b}},
			{Name: "scale", Params: []byte{F64, F64}, Results: []byte{F64}, Body: []byte{0x20, 0x00, 0x20, 0x01, 0xa2, 0x0b}},
			{Name: "negate", Params: []byte{I64}, Results: []byte{I64}, Body: []byte{0x42, 0x00, 0x20, 0x00, 0x7d, 0x0b}},
			{Name: "echo", Params: []byte{I32, I32}, Results: []byte{I64}, Body: packArgs},
			{Name: "length", Params: []byte{I32, I32}, Results: []byte{I32}, Body: []byte{0x20, 0x01, 0x0b}},
			{Name: "allocate", Params: []byte{I32}, Results: []byte{I32}, Body: bumpAllocate},
		},
	}
}

// MyModuleManifest declares MyModule's operations.
const MyModuleManifest = `name: mymodule
description: arithmetic test extension
init:
  result: i32
operations:
  - name: add
    params: [i32, i32]
    result: i32
  - name: div
    params: [i32, i32]
    result: i32
  - name: fail
  - name: init_count
    result: i32
  - name: scale
    params: [f64, f64]
    result: f64
  - name: negate
    params: [i64]
    result: i64
  - name: echo
    params: [string]
    result: string
    fail_when: empty
  - name: length
    params: [bytes]
    result: i32
`

// FailingInit is MyModule with an entry point that returns 1.
func FailingInit() WasmModule {
	m := MyModule()
	m.Funcs[0].Body = []byte{0x41, 0x01, 0x0b}
	return m
}

// HostCaller imports extbridge_host callbacks:
//
//	Init_hostcaller()
//	platform_len() i32   calls host_platform and returns the response length
//	say()                calls log_message with an empty payload
func HostCaller() WasmModule {
	return WasmModule{
		Memory:  true,
		Globals: []int32{0, 1024},
		Imports: []WasmImport{
			{Module: "extbridge_host", Name: "host_platform", Params: []byte{I64}, Results: []byte{I64}},
			{Module: "extbridge_host", Name: "log_message", Params: []byte{I64}},
		},
		Funcs: []WasmFunc{
			{Name: "Init_hostcaller", Body: []byte{0x0b}},
			{Name: "platform_len", Results: []byte{I32}, Body: []byte{0x42, 0x00, 0x10, 0x00, 0xa7, 0x0b}},
			{Name: "say", Body: []byte{0x42, 0x00, 0x10, 0x01, 0x0b}},
			{Name: "allocate", Params: []byte{I32}, Results: []byte{I32}, Body: bumpAllocate},
		},
	}
}

func funcType(params, results []byte) []byte {
	b := []byte{0x60}
	b = append(b, uleb(uint32(len(params)))...)
	b = append(b, params...)
	b = append(b, uleb(uint32(len(results)))...)
	return append(b, results...)
}

func appendSection(out []byte, id byte, contents []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(contents)))...)
	return append(out, contents...)
}

func vec(items [][]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
