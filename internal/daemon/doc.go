// Package daemon hosts the long-running docflow process: it enforces
// single-instance execution through a lock file next to the database and
// serves the HTTP API over the transition engine.
package daemon
