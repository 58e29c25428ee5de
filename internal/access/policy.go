// Package access resolves whether a (role, action, resource) tuple is
// permitted, and at which scope. The grant table is built once at startup
// and never mutated afterwards.
package access

import "github.com/identity-api/internal/domain"

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Resource string

const (
	ResourceUser      Resource = "user"
	ResourceEmailCode Resource = "emailVerificationCode"
	ResourcePhoneCode Resource = "phoneVerificationCode"
	ResourcePassword  Resource = "password"
)

// Scope qualifies a granted action: the caller's own record or any record.
type Scope string

const (
	ScopeOwn Scope = "own"
	ScopeAny Scope = "any"
)

// Permission is the result of a grant lookup.
type Permission struct {
	Granted bool
	Scope   Scope
}

// Policy is an immutable role -> resource -> action grant table.
type Policy struct {
	grants map[string]map[Resource]map[Action]Scope
}

// NewPolicy builds the built-in two-role grant table. admin holds every
// action at scope any on every resource; user holds read/update at scope own
// on its record and code resources, and update:own on its password.
func NewPolicy() *Policy {
	allAny := map[Action]Scope{
		ActionCreate: ScopeAny,
		ActionRead:   ScopeAny,
		ActionUpdate: ScopeAny,
		ActionDelete: ScopeAny,
	}
	readUpdateOwn := map[Action]Scope{
		ActionRead:   ScopeOwn,
		ActionUpdate: ScopeOwn,
	}
	return &Policy{grants: map[string]map[Resource]map[Action]Scope{
		domain.RoleAdmin: {
			ResourceUser:      allAny,
			ResourceEmailCode: allAny,
			ResourcePhoneCode: allAny,
			ResourcePassword:  allAny,
		},
		domain.RoleUser: {
			ResourceUser:      readUpdateOwn,
			ResourceEmailCode: readUpdateOwn,
			ResourcePhoneCode: readUpdateOwn,
			ResourcePassword: {
				ActionUpdate: ScopeOwn,
			},
		},
	}}
}

// Can looks up the grant table. Unknown roles, resources, or actions are not
// granted.
func (p *Policy) Can(role string, action Action, resource Resource) Permission {
	resources, ok := p.grants[role]
	if !ok {
		return Permission{}
	}
	actions, ok := resources[resource]
	if !ok {
		return Permission{}
	}
	scope, ok := actions[action]
	if !ok {
		return Permission{}
	}
	return Permission{Granted: true, Scope: scope}
}
