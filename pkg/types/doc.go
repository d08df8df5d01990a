// Package types defines the entity model, the Storage interface, the
// persisted Snapshot format, configuration, and the standard error types for
// the hbnb object store.
package types
