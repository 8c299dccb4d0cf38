package workflow

import (
	"fmt"
	"strings"

	"docflow/internal/actor"
	"docflow/internal/stage"
	"docflow/internal/store"
)

// Intent names one of the logical operations a caller may request against a
// workflow instance.
type Intent string

const (
	IntentStart     Intent = "START"
	IntentAdvance   Intent = "ADVANCE"
	IntentBackward  Intent = "BACKWARD"
	IntentAdminJump Intent = "ADMIN_JUMP"
	IntentReset     Intent = "RESET"
)

// Request carries an intent plus the fields some intents require.
type Request struct {
	Intent       Intent
	Reason       string
	Confirmation string
}

// Decision is the guard's verdict. Reason is set on denial and is meant for
// the human on the other end, so it names the role held versus the roles
// required.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Authorize is the pure role gate applied before any transition is committed.
// It inspects only the instance snapshot, the request, and the actor's
// canonical role; it never mutates state.
func Authorize(instance *store.Instance, req Request, role actor.Role) Decision {
	if req.Intent == IntentStart {
		if role == actor.RoleAuthor || role.IsAdmin() {
			return allow()
		}
		return deny("starting a workflow requires role %s or %s; actor holds %s",
			actor.RoleAuthor, actor.RoleAdmin, role)
	}

	if instance == nil {
		return deny("no workflow instance")
	}
	if !instance.IsActive {
		// Distinct from a role denial so callers can tell "you may not" from
		// "there is nothing to act on".
		return deny("workflow for document %s is not active", instance.DocumentID)
	}

	switch req.Intent {
	case IntentAdvance:
		current, err := stage.ByID(instance.CurrentStage)
		if err != nil {
			return deny("instance is at unknown stage %q", instance.CurrentStage)
		}
		if current.Owns(role) {
			return allow()
		}
		return deny("advancing out of %s requires one of [%s]; actor holds %s",
			current.DisplayName, joinRoles(current.OwnerRoles), role)

	case IntentBackward:
		if !role.IsAdmin() {
			return deny("moving a workflow backward requires role %s; actor holds %s", actor.RoleAdmin, role)
		}
		if strings.TrimSpace(req.Reason) == "" {
			return deny("moving a workflow backward requires a reason")
		}
		return allow()

	case IntentAdminJump:
		if !role.IsAdmin() {
			return deny("jumping stages requires role %s; actor holds %s", actor.RoleAdmin, role)
		}
		if strings.TrimSpace(req.Reason) == "" {
			return deny("jumping stages requires a reason")
		}
		return allow()

	case IntentReset:
		if !role.IsAdmin() {
			return deny("resetting a workflow requires role %s; actor holds %s", actor.RoleAdmin, role)
		}
		if strings.TrimSpace(req.Confirmation) == "" {
			return deny("resetting a workflow requires an operator confirmation token")
		}
		return allow()

	default:
		return deny("unknown intent %q", req.Intent)
	}
}

// AllowedIntents reports which intents the guard would grant this actor
// against the instance, assuming required reasons and confirmations are
// supplied. Drives UI button state without committing anything.
func AllowedIntents(instance *store.Instance, role actor.Role) []Intent {
	var allowed []Intent
	probe := Request{Reason: "permissions probe", Confirmation: "permissions probe"}
	for _, intent := range []Intent{IntentStart, IntentAdvance, IntentBackward, IntentAdminJump, IntentReset} {
		probe.Intent = intent
		if intent == IntentBackward && instance != nil {
			// Stage 1 has nowhere earlier to roll back to.
			if current, err := stage.ByID(instance.CurrentStage); err == nil && current.Ordinal == 1 {
				continue
			}
		}
		if intent == IntentStart {
			// Start applies to documents, not live instances.
			if instance == nil || !instance.IsActive {
				if Authorize(nil, probe, role).Allowed {
					allowed = append(allowed, intent)
				}
			}
			continue
		}
		if Authorize(instance, probe, role).Allowed {
			allowed = append(allowed, intent)
		}
	}
	return allowed
}

func joinRoles(roles []actor.Role) string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}
