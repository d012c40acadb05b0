package lifecycle

import "bizdesk/internal/model"

// Action is something an actor does to a tracked record
type Action string

const (
	ActionAssign     Action = "assign"
	ActionTransition Action = "transition"
	ActionCancel     Action = "cancel"
)

// anyRole matches every role in a policy rule
const anyRole = "*"

type policyKey struct {
	role   string
	action Action
	kind   model.EntityKind
}

// policy maps (role, action, kind) to allow/deny. A rule for the exact role wins
// over an anyRole rule; with no matching rule the action is allowed.
var policy = map[policyKey]bool{
	{anyRole, ActionAssign, model.KindCustomerInquiry}:         false,
	{model.RoleAdmin, ActionAssign, model.KindCustomerInquiry}: true,
	{model.RoleStaff, ActionCancel, model.KindWorkOrder}:       false,
}

// Allowed reports whether role may perform action on records of kind
func Allowed(role string, action Action, kind model.EntityKind) bool {
	if allow, ok := policy[policyKey{role, action, kind}]; ok {
		return allow
	}
	if allow, ok := policy[policyKey{anyRole, action, kind}]; ok {
		return allow
	}
	return true
}
