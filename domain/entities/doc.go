// Package entities provides the core domain types of the extension bridge.
// They describe what a loadable extension is (ModuleSpec, Artifact), what it
// exports (Manifest, Operation, Signature, TypeTag) and how failures are
// reported on the wire (ErrorDetail). Nothing here touches the filesystem or
// a foreign runtime.
package entities
