// Package workflow houses the stage transition engine: the role-based guard
// that authorizes each intent and the engine that applies validated forward,
// backward, jump, and reset transitions against workflow instances.
//
// Validation is side-effect free; only the final store commit mutates state,
// and it does so atomically with the audit append. Callers racing on the
// same instance lose with ErrConcurrentModification and retry after
// re-reading status, per the optimistic-concurrency discipline.
package workflow
