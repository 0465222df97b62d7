package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role represents a user's access level
type Role string

const (
	// RoleAdmin has full access, including restore and audit reads, and is exempt from the fiscal lock
	RoleAdmin Role = "admin"

	// RoleEditor can create, update and soft-delete transactions in the current fiscal year
	RoleEditor Role = "editor"

	// RoleReader can only read transactions and reports
	RoleReader Role = "reader"
)

var validRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleEditor: true,
	RoleReader: true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Authentication and authorization errors
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
	ErrForbidden       = errors.New("forbidden")
	ErrFiscalLocked    = fmt.Errorf("%w: fiscal year lock, cannot modify transactions from closed fiscal years", ErrForbidden)
)

// Claim is the verified identity attached to a request.
type Claim struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the claim carries the admin role.
func (c Claim) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// RoleRequirement is the non-empty set of roles allowed to perform an operation.
type RoleRequirement struct {
	roles map[Role]struct{}
}

// Require builds a RoleRequirement from one or more roles.
func Require(roles ...Role) RoleRequirement {
	if len(roles) == 0 {
		panic("domain: role requirement needs at least one role")
	}

	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return RoleRequirement{roles: set}
}

// Allows reports whether role satisfies the requirement.
func (rr RoleRequirement) Allows(role Role) bool {
	_, ok := rr.roles[role]
	return ok
}

func (rr RoleRequirement) String() string {
	names := make([]string, 0, len(rr.roles))
	for r := range rr.roles {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// Common requirements.
var (
	RequireAnyRole = Require(RoleAdmin, RoleEditor, RoleReader)
	RequireWriter  = Require(RoleAdmin, RoleEditor)
	RequireAdmin   = Require(RoleAdmin)
)

type claimKey struct{}

// ContextWithClaim returns a copy of ctx carrying claim.
func ContextWithClaim(ctx context.Context, claim *Claim) context.Context {
	return context.WithValue(ctx, claimKey{}, claim)
}

// ClaimFromContext extracts the claim set by the auth middleware.
func ClaimFromContext(ctx context.Context) (*Claim, bool) {
	claim, ok := ctx.Value(claimKey{}).(*Claim)
	return claim, ok && claim != nil
}
