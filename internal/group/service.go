package group

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sgerasev/hometask/internal/access"
)

// Common errors
var (
	ErrGroupNotFound             = errors.New("group not found")
	ErrEmptyGroupName            = errors.New("group name can't be empty")
	ErrGroupNameTooLong          = errors.New("group name is too large")
	ErrDescriptionTooLong        = errors.New("group description is too large")
	ErrEmptyInviteToken          = errors.New("invite token can't be empty")
	ErrInvalidInviteToken        = errors.New("invalid invite token")
	ErrAlreadyMember             = errors.New("you have already joined this group")
	ErrGroupsLimit               = errors.New("joined groups limit exceeded")
	ErrMembersLimit              = errors.New("group members limit exceeded")
	ErrInviteDisabled            = errors.New("invite link disabled by the owner")
	ErrOwnerMustTransfer         = errors.New("you need to transfer ownership first")
	ErrNewOwnerNotMember         = errors.New("new owner is not a member of this group")
	ErrMemberNotFound            = errors.New("user to kick is not a member of this group")
	ErrCannotKickOwner           = errors.New("can't kick group owner")
	ErrOnlyOwnerCanKick          = errors.New("only owner can kick members in free groups")
	ErrOnlyOwnerCanKickModerator = errors.New("only owner can kick group moderators")
)

// Store is the persistence contract for groups and memberships. The mutating
// methods with capacity or count checks are transactional: the check and the
// write happen atomically inside the store.
type Store interface {
	access.Store

	GetByID(ctx context.Context, id int64) (*Group, error)
	Create(ctx context.Context, ownerID string, req *CreateGroupRequest, state InviteLinkState, token *string) (*Group, error)
	JoinByToken(ctx context.Context, token, userID string) (*Group, error)
	Leave(ctx context.Context, groupID int64, userID string) (bool, error)
	TransferOwnership(ctx context.Context, groupID int64, callerID, newOwnerID string) error
	Kick(ctx context.Context, groupID int64, callerID, targetID string) error
	RotateInviteToken(ctx context.Context, groupID int64, token string) error
	SetInviteLink(ctx context.Context, groupID int64, state InviteLinkState, token *string) error
	MemberIDs(ctx context.Context, groupID int64) ([]string, error)
	JoinedGroups(ctx context.Context, userID string) ([]*JoinedGroup, error)
}

// AvatarSource resolves small profile avatars for a batch of user ids.
type AvatarSource interface {
	UserAvatars(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Service handles group membership business logic
type Service struct {
	store   Store
	guard   *access.Guard
	avatars AvatarSource

	newToken func() string
}

// NewService creates a new group service
func NewService(store Store, guard *access.Guard, avatars AvatarSource) *Service {
	return &Service{
		store:    store,
		guard:    guard,
		avatars:  avatars,
		newToken: uuid.NewString,
	}
}

// Create validates the fields, checks the caller's joined-groups capacity and
// creates a group with the caller as its owner and first (moderator) member.
func (s *Service) Create(ctx context.Context, userID string, req *CreateGroupRequest) (*Group, error) {
	if req.Name == "" {
		return nil, ErrEmptyGroupName
	}
	if len([]rune(req.Name)) > NameMaxLen {
		return nil, ErrGroupNameTooLong
	}
	if len([]rune(req.Description)) > DescriptionMaxLen {
		return nil, ErrDescriptionTooLong
	}

	state := InviteLinkNotIssued
	var token *string
	if req.EnableInviteLink {
		state = InviteLinkEnabled
		t := s.newToken()
		token = &t
	}

	return s.store.Create(ctx, userID, req, state, token)
}

// Join adds the caller to the group whose invite link carries the token.
// Possession of a currently valid token is sufficient regardless of the
// group's moderation flag.
func (s *Service) Join(ctx context.Context, userID, inviteToken string) (*Group, error) {
	if inviteToken == "" {
		return nil, ErrEmptyInviteToken
	}
	return s.store.JoinByToken(ctx, inviteToken, userID)
}

// Joined lists the caller's groups with member counts and owner avatars.
func (s *Service) Joined(ctx context.Context, userID string) ([]*JoinedGroup, error) {
	groups, err := s.store.JoinedGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []*JoinedGroup{}, nil
	}

	ownerIDs := make([]string, 0, len(groups))
	seen := make(map[string]bool)
	for _, g := range groups {
		if !seen[g.OwnerID] {
			seen[g.OwnerID] = true
			ownerIDs = append(ownerIDs, g.OwnerID)
		}
	}

	avatars, err := s.avatars.UserAvatars(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if url, ok := avatars[g.OwnerID]; ok && url != "" {
			u := url
			g.OwnerSmallAvatar = &u
		}
	}
	return groups, nil
}

// Get returns a group's details. Member tier required.
func (s *Service) Get(ctx context.Context, groupID int64, userID string) (*Group, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return nil, err
	}
	g, err := s.store.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// Members returns the user ids of all group members. Member tier required.
func (s *Service) Members(ctx context.Context, groupID int64, userID string) ([]string, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return nil, err
	}
	return s.store.MemberIDs(ctx, groupID)
}

// InviteKey returns the group's current invite token, nil when the link is
// disabled or was never issued. Member tier required.
func (s *Service) InviteKey(ctx context.Context, groupID int64, userID string) (*string, error) {
	g, err := s.Get(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	return g.InviteToken, nil
}

// RotateInviteToken replaces the group's active invite token with a fresh
// one, invalidating the previous token. Moderator tier required. Rotation
// never issues a first token: a disabled or never-issued link is rejected.
func (s *Service) RotateInviteToken(ctx context.Context, groupID int64, userID string) (string, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierModerator); err != nil {
		return "", err
	}
	token := s.newToken()
	if err := s.store.RotateInviteToken(ctx, groupID, token); err != nil {
		return "", err
	}
	return token, nil
}

// SetInviteLink switches the group's invite link on or off. Owner tier
// required. Enabling issues a fresh token and returns it; disabling clears
// the token slot and returns nil.
func (s *Service) SetInviteLink(ctx context.Context, groupID int64, userID string, enabled bool) (*string, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierOwner); err != nil {
		return nil, err
	}
	if !enabled {
		return nil, s.store.SetInviteLink(ctx, groupID, InviteLinkDisabled, nil)
	}
	token := s.newToken()
	if err := s.store.SetInviteLink(ctx, groupID, InviteLinkEnabled, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Leave removes the caller from the group. The last remaining member takes
// the whole group down with them; an owner with other members around must
// transfer ownership first. Returns true when the group was deleted.
func (s *Service) Leave(ctx context.Context, groupID int64, userID string) (bool, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return false, err
	}
	return s.store.Leave(ctx, groupID, userID)
}

// TransferOwnership hands the group to an existing member. Owner tier
// required. The new owner's member row gets the moderator bit; the previous
// owner's row is left as is.
func (s *Service) TransferOwnership(ctx context.Context, groupID int64, callerID, newOwnerID string) error {
	if err := s.guard.Check(ctx, groupID, callerID, access.TierOwner); err != nil {
		return err
	}
	if err := s.guard.Check(ctx, groupID, newOwnerID, access.TierMember); err != nil {
		if errors.Is(err, access.ErrNotMember) {
			return ErrNewOwnerNotMember
		}
		return err
	}
	return s.store.TransferOwnership(ctx, groupID, callerID, newOwnerID)
}

// Kick removes another member from the group. Moderator tier required; the
// owner/moderated-group matrix is enforced atomically in the store.
func (s *Service) Kick(ctx context.Context, groupID int64, callerID, targetID string) error {
	if err := s.guard.Check(ctx, groupID, callerID, access.TierModerator); err != nil {
		return err
	}
	return s.store.Kick(ctx, groupID, callerID, targetID)
}
