// Package diskguard keeps free space on the output volume above a
// configured threshold by deleting existing output files before new jobs
// are admitted. Cleanup is best-effort and non-transactional: files are
// removed largest-first (oldest-first among equal sizes) until the
// threshold clears or no files remain, with no coordination against
// in-flight reads.
package diskguard
