package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/model"
)

// GroupWriter is the subset of the user repository that edits memberships.
type GroupWriter interface {
	AddToGroup(ctx context.Context, userID uuid.UUID, group string) error
	RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error
}

// Invalidator drops cached role membership. *Resolver implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// RoleSync keeps the Store Owner group in step with store ownership.
// StoreCreated and StoreDeleted run inside the store transaction, so a failed
// grant rolls the store mutation back. StoreCommitted runs after commit: a
// request resolving roles while the transaction is open still reads the old
// membership and may cache it, so the cache is cleared again once the new
// membership is visible.
type RoleSync struct {
	groups GroupWriter
	cache  Invalidator
}

func NewRoleSync(groups GroupWriter, cache Invalidator) *RoleSync {
	return &RoleSync{groups: groups, cache: cache}
}

func (s *RoleSync) StoreCreated(ctx context.Context, store *model.Store) error {
	if err := s.groups.AddToGroup(ctx, store.UserID, StoreOwner); err != nil {
		return fmt.Errorf("grant store owner: %w", err)
	}
	s.invalidate(ctx, store.UserID)
	return nil
}

func (s *RoleSync) StoreDeleted(ctx context.Context, store *model.Store) error {
	if err := s.groups.RemoveFromGroup(ctx, store.UserID, StoreOwner); err != nil {
		return fmt.Errorf("revoke store owner: %w", err)
	}
	s.invalidate(ctx, store.UserID)
	return nil
}

func (s *RoleSync) StoreCommitted(ctx context.Context, store *model.Store) {
	s.invalidate(ctx, store.UserID)
}

func (s *RoleSync) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}
