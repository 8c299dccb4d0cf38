package actor

import "strings"

// Role identifies the canonical participant category an authenticated actor
// holds. Guard logic only ever compares canonical roles; free-form role
// strings from the auth collaborator are normalized exactly once via Parse.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleAuthor            Role = "AUTHOR"
	RoleTechnicalReviewer Role = "TECHNICAL_REVIEWER"
	RoleLegalReviewer     Role = "LEGAL_REVIEWER"
	RolePublisher         Role = "PUBLISHER"
)

var allRoles = []Role{
	RoleAdmin,
	RoleAuthor,
	RoleTechnicalReviewer,
	RoleLegalReviewer,
	RolePublisher,
}

// roleAliases maps organization-specific role names onto the canonical set.
// WORKFLOW_ADMIN is the elevated override role in the source system; it holds
// exactly the admin privileges, so it folds into ADMIN here.
var roleAliases = map[string]Role{
	"OPR":            RoleAuthor,
	"WORKFLOW_ADMIN": RoleAdmin,
	"ICU_REVIEWER":   RoleTechnicalReviewer,
	"COORDINATOR":    RoleTechnicalReviewer,
	"AFDPO":          RolePublisher,
	"LEGAL":          RoleLegalReviewer,
}

var roleSet = func() map[Role]struct{} {
	set := make(map[Role]struct{}, len(allRoles))
	for _, role := range allRoles {
		set[role] = struct{}{}
	}
	return set
}()

// All returns the ordered canonical role set.
func All() []Role {
	cp := make([]Role, len(allRoles))
	copy(cp, allRoles)
	return cp
}

// Parse normalizes a free-form role string into a canonical Role. Aliases
// fold many-to-one; unknown input returns false rather than defaulting.
func Parse(value string) (Role, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "" {
		return "", false
	}
	if role, ok := roleAliases[normalized]; ok {
		return role, true
	}
	role := Role(normalized)
	_, ok := roleSet[role]
	return role, ok
}

// IsAdmin reports whether the role carries override privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// String returns the canonical role name.
func (r Role) String() string {
	return string(r)
}
