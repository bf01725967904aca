package access

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotMember    = errors.New("not a member of this group")
	ErrNotModerator = errors.New("not a moderator of this group")
	ErrNotOwner     = errors.New("not an owner of this group")
)

// Tier is an ordered permission level: every owner outranks every moderator,
// every moderator outranks every plain member.
type Tier int

const (
	TierMember Tier = iota
	TierModerator
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierModerator:
		return "moderator"
	default:
		return "member"
	}
}

// GroupAuth is the minimal group projection needed for permission checks.
type GroupAuth struct {
	OwnerID     string
	IsModerated bool
}

// MemberAuth is the minimal membership projection needed for permission checks.
type MemberAuth struct {
	IsModerator bool
}

// Store is the narrow read contract the guard needs. A missing row is
// reported as (nil, nil), never as an error.
type Store interface {
	GroupAuth(ctx context.Context, groupID int64) (*GroupAuth, error)
	MemberAuth(ctx context.Context, groupID int64, userID string) (*MemberAuth, error)
}

// Guard decides whether a user holds a required tier in a group. Every
// mutating operation calls Check before touching the store.
type Guard struct {
	store Store
}

// NewGuard creates a new access guard
func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Check returns nil when userID satisfies the required tier in groupID.
//
// The moderator tier is only enforced in moderated groups: in a free group
// any member passes a moderator-gated check. That exception lives here and
// nowhere else.
func (g *Guard) Check(ctx context.Context, groupID int64, userID string, required Tier) error {
	if required == TierOwner {
		group, err := g.store.GroupAuth(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrNotMember
		}
		if group.OwnerID != userID {
			return ErrNotOwner
		}
		return nil
	}

	member, err := g.store.MemberAuth(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotMember
	}
	if required == TierModerator && !member.IsModerator {
		group, err := g.store.GroupAuth(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrNotMember
		}
		if group.IsModerated {
			return ErrNotModerator
		}
	}
	return nil
}
