// Package hostfuncs holds the callbacks a host exposes to wasm extensions.
//
// Handlers exchange JSON bytes with the guest and have no dependency on the
// wasm runtime, so they can be unit tested directly. The wazero backend
// exports every handler of a HandlerRegistry from the extbridge_host module
// using the packed ptr/len convention.
package hostfuncs
