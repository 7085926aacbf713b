// Package registry holds the authoritative in-process state of every
// submitted generation task. All reads and writes go through a single
// mutex; there is no per-task locking, no sharding, and no expiry. Tasks
// are never deleted, so the registry grows for the process lifetime.
package registry
