// Package domain contains the core types of the image generation service:
// tasks and their lifecycle, generation requests, aspect-ratio presets, and
// dataset cases parsed from JSONL files. Types here have no dependencies on
// transport, storage, or the diffusion pipeline.
package domain
