// Command docflowd runs the docflow daemon: it opens the workflow database,
// takes the single-instance lock, and serves the HTTP API until interrupted.
package main
