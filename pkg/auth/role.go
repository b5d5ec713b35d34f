// Package auth is the admission layer's identity half: JWT validation, the
// three-tier role model, and a development token minter. HTTP concerns
// (header extraction, status codes, middleware chaining) live in
// pkg/httpapi, which is the only other package allowed to know about them;
// this package only answers "who is this caller and what are they allowed
// to do".
package auth

// Role is one of the three admission tiers a caller's token carries.
// Roles are ordered: a curator can do anything an emitter can, which can
// do anything a subscriber can.
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleEmitter    Role = "emitter"
	RoleCurator    Role = "curator"
)

var roleRank = map[Role]int{
	RoleSubscriber: 1,
	RoleEmitter:    2,
	RoleCurator:    3,
}

// Valid reports whether r is one of the three recognized roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Allows reports whether holding role r satisfies a requirement of min,
// per the subscriber < emitter < curator ordering. An unrecognized role
// satisfies nothing.
func (r Role) Allows(min Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	minRank, ok := roleRank[min]
	if !ok {
		return false
	}
	return rank >= minRank
}
