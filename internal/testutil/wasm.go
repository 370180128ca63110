// Package testutil provides hand-assembled WebAssembly fixtures for tests.
//
// Each fixture is a minimal binary module exporting a single `run`
// function. Assembling the bytes by hand keeps the tests free of any
// compiler toolchain dependency.
package testutil

// section assembles one section from its id and contents.
func section(id byte, contents ...byte) []byte {
	out := []byte{id, byte(len(contents))}
	return append(out, contents...)
}

// wasmModule assembles a complete one-function module: the given function
// type, a single function of that type exported as "run", and the given
// body (locals vector included).
func wasmModule(funcType []byte, body []byte) []byte {
	mod := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00} // magic + version

	typeSec := append([]byte{0x01}, funcType...) // vec(1) of functype
	mod = append(mod, section(0x01, typeSec...)...)

	mod = append(mod, section(0x03, 0x01, 0x00)...) // func section: vec(1), type 0

	// export section: vec(1), name "run", kind func, index 0
	mod = append(mod, section(0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x00)...)

	entry := append([]byte{byte(len(body))}, body...)
	codeSec := append([]byte{0x01}, entry...) // vec(1) of code entries
	mod = append(mod, section(0x0a, codeSec...)...)

	return mod
}

var (
	typeI64ToI32    = []byte{0x60, 0x01, 0x7e, 0x01, 0x7f}       // (i64) -> i32
	typeI64I64ToI32 = []byte{0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7f} // (i64, i64) -> i32
	typeI32ToI32    = []byte{0x60, 0x01, 0x7f, 0x01, 0x7f}       // (i32) -> i32
	typeF64ToI32    = []byte{0x60, 0x01, 0x7c, 0x01, 0x7f}       // (f64) -> i32
	typeNoneToI32   = []byte{0x60, 0x00, 0x01, 0x7f}             // () -> i32
)

// WasmAlwaysTrue is run(ts: i64) -> i32 returning 1 for every row.
func WasmAlwaysTrue() []byte {
	return wasmModule(typeI64ToI32, []byte{0x00, 0x41, 0x01, 0x0b})
}

// WasmAlwaysFalse is run(ts: i64) -> i32 returning 0 for every row.
func WasmAlwaysFalse() []byte {
	return wasmModule(typeI64ToI32, []byte{0x00, 0x41, 0x00, 0x0b})
}

// WasmTimestampAfter5M is run(ts: i64) -> i32 returning ts > 5000000.
func WasmTimestampAfter5M() []byte {
	return wasmModule(typeI64ToI32, []byte{
		0x00,       // no locals
		0x20, 0x00, // local.get 0
		0x42, 0xc0, 0x96, 0xb1, 0x02, // i64.const 5000000
		0x55, // i64.gt_s
		0x0b, // end
	})
}

// WasmFirstGreater is run(a: i64, b: i64) -> i32 returning a > b.
func WasmFirstGreater() []byte {
	return wasmModule(typeI64I64ToI32, []byte{
		0x00,       // no locals
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x55, // i64.gt_s
		0x0b, // end
	})
}

// WasmEchoI32 is run(v: i32) -> i32 returning v unchanged.
func WasmEchoI32() []byte {
	return wasmModule(typeI32ToI32, []byte{0x00, 0x20, 0x00, 0x0b})
}

// WasmFloatAboveHalf is run(v: f64) -> i32 returning v > 0.5.
func WasmFloatAboveHalf() []byte {
	return wasmModule(typeF64ToI32, []byte{
		0x00,       // no locals
		0x20, 0x00, // local.get 0
		0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xe0, 0x3f, // f64.const 0.5
		0x66, // f64.gt
		0x0b, // end
	})
}

// WasmNoArgsTrue is run() -> i32 returning 1, taking no arguments.
func WasmNoArgsTrue() []byte {
	return wasmModule(typeNoneToI32, []byte{0x00, 0x41, 0x01, 0x0b})
}

// WasmInfiniteLoop is run(ts: i64) -> i32 that never returns.
func WasmInfiniteLoop() []byte {
	return wasmModule(typeI64ToI32, []byte{
		0x00,       // no locals
		0x03, 0x40, // loop (empty blocktype)
		0x0c, 0x00, // br 0 (back to loop head)
		0x0b,       // end loop
		0x41, 0x00, // i32.const 0 (unreachable)
		0x0b, // end
	})
}

// WasmTrap is run(ts: i64) -> i32 that hits an unreachable trap.
func WasmTrap() []byte {
	return wasmModule(typeI64ToI32, []byte{0x00, 0x00, 0x0b})
}

// WasmNoRunExport exports nothing; instantiation of a query fails on it.
func WasmNoRunExport() []byte {
	mod := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	mod = append(mod, section(0x01, append([]byte{0x01}, typeNoneToI32...)...)...)
	mod = append(mod, section(0x03, 0x01, 0x00)...)
	mod = append(mod, section(0x0a, 0x01, 0x04, 0x00, 0x41, 0x01, 0x0b)...)
	return mod
}
