// Command docflow is the operator CLI for the document approval workflow.
// It drives the transition engine directly against the configured database:
// starting workflows, advancing and rolling back stages, and inspecting
// status, history, feedback, and permissions.
package main
