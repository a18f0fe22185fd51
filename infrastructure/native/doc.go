// Package native opens shared libraries (.so, .dylib, .dll) in-process and
// binds their exported C functions without cgo, using purego.
//
// A shared library carries no type information, so every operation other
// than the entry point must be declared in the module manifest. Arguments are
// passed by value according to their type tags: strings as NUL terminated
// copies, byte buffers as pinned pointers into Go memory.
//
// A fault inside foreign code (a segfault, an abort) cannot be recovered and
// terminates the process.
package native
