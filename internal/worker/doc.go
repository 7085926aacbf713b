// Package worker executes generation tasks against the diffusion pipeline.
// Every submission runs in its own goroutine, but a single inference mutex
// serializes all pipeline calls: the GPU renders exactly one image at a
// time, and pending tasks are goroutines parked on that mutex. The
// inference mutex is distinct from the registry mutex and the two are
// never held together.
package worker
