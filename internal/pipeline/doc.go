// Package pipeline abstracts the image-diffusion backend behind a single
// interface. The service treats the model as an opaque external dependency:
// implementations render one image per call and write it to the requested
// output path. Two backends exist, a remote diffusion sidecar speaking
// JSON+PNG over HTTP and the Gemini image API.
package pipeline
