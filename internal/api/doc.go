// Package api defines the transport-facing views of airlock state and the
// read/write services the HTTP server exposes. DTOs are decoupled from the
// storage structs so wire compatibility does not pin the schema.
package api
