// Package ports defines the interfaces the loader depends on.
// Infrastructure adapters (the purego native backend, the wazero backend,
// the filesystem resolver, the YAML parser) implement them, so the loader
// can be exercised with fakes in tests.
package ports
