// Package dataset drives bulk generation from a JSONL case file: it reads
// cases line by line, submits each to the generation server, polls until
// the task is terminal, and downloads the rendered PNG when the server is
// remote. Cases whose output image already exists are skipped, so runs are
// resumable.
package dataset
