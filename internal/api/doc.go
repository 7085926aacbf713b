// Package api implements the HTTP handlers for the generation service:
// task submission, status and queue introspection, result delivery, and
// health checking. Handlers depend on small consumer-side interfaces and
// respond through the shared JSON helpers.
package api
