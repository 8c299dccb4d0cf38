// Package api defines the transport-facing representations of workflow
// state. Persistence records hold canonical stage ids and raw payload
// strings; the DTOs here add display names, RFC3339 timestamps, and JSON
// field naming suitable for HTTP and CLI consumers.
package api
