// Package access resolves who is calling and what they may do.
//
// A Principal is built once per request by the authentication middleware and
// travels in the request context. Services receive it explicitly and check it
// against the capability table in policy.go.
package access

import (
	"context"

	"github.com/google/uuid"
)

const StoreOwner = "Store Owner"

type Principal struct {
	UserID uuid.UUID
	Email  string
	Staff  bool
	Groups map[string]struct{}
}

func Anonymous() Principal { return Principal{} }

func NewPrincipal(userID uuid.UUID, email string, staff bool, groups []string) Principal {
	set := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return Principal{UserID: userID, Email: email, Staff: staff, Groups: set}
}

func (p Principal) Authenticated() bool { return p.UserID != uuid.Nil }

func (p Principal) InGroup(name string) bool {
	_, ok := p.Groups[name]
	return ok
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the request's principal, or an anonymous one.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
