// Package wazero runs WebAssembly extensions in-process with the wazero
// runtime and exposes them through the same Library contract as native
// shared libraries.
//
// Each opened artifact gets its own runtime holding WASI, the extbridge_host
// module and the guest instance, so closing the library releases all of it.
//
// Calling convention:
//
//   - bool, i32, u32 and ptr map to wasm i32; i64 and u64 to i64; f32 and f64
//     to their wasm counterparts
//   - string and bytes parameters are copied into guest memory obtained from
//     the guest's allocate(i32) i32 export and passed as a (ptr, len) i32 pair
//   - string and bytes results are returned as a packed i64, ptr<<32 | len
//
// Host callbacks from a hostfuncs.HandlerRegistry are exported from
// extbridge_host with the same packed i64 convention, next to
// log_message(i64) which forwards a JSON {"level", "message"} record to slog.
package wazero
