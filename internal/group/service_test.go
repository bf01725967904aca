package group

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sgerasev/hometask/internal/access"
)

// fakeStore is an in-memory Store that mirrors the repository's transactional
// semantics: capacity and count checks happen atomically with the mutation.
type fakeStore struct {
	groups  map[int64]*Group
	members map[int64]map[string]*Member
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:  make(map[int64]*Group),
		members: make(map[int64]map[string]*Member),
	}
}

func (f *fakeStore) membershipsOf(userID string) int {
	n := 0
	for _, members := range f.members {
		if _, ok := members[userID]; ok {
			n++
		}
	}
	return n
}

func (f *fakeStore) GroupAuth(_ context.Context, groupID int64) (*access.GroupAuth, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return nil, nil
	}
	return &access.GroupAuth{OwnerID: g.OwnerID, IsModerated: g.IsModerated}, nil
}

func (f *fakeStore) MemberAuth(_ context.Context, groupID int64, userID string) (*access.MemberAuth, error) {
	m, ok := f.members[groupID][userID]
	if !ok {
		return nil, nil
	}
	return &access.MemberAuth{IsModerator: m.IsModerator}, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (f *fakeStore) Create(_ context.Context, ownerID string, req *CreateGroupRequest, state InviteLinkState, token *string) (*Group, error) {
	if f.membershipsOf(ownerID) >= JoinedGroupsLimit {
		return nil, ErrGroupsLimit
	}
	f.nextID++
	g := &Group{
		ID:          f.nextID,
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		IsModerated: req.IsModerated,
		InviteState: state,
		InviteToken: token,
	}
	f.groups[g.ID] = g
	f.members[g.ID] = map[string]*Member{
		ownerID: {GroupID: g.ID, UserID: ownerID, IsModerator: true},
	}
	copied := *g
	return &copied, nil
}

func (f *fakeStore) JoinByToken(_ context.Context, token, userID string) (*Group, error) {
	var g *Group
	for _, candidate := range f.groups {
		if candidate.InviteState == InviteLinkEnabled && candidate.InviteToken != nil && *candidate.InviteToken == token {
			g = candidate
			break
		}
	}
	if g == nil {
		return nil, ErrInvalidInviteToken
	}
	if _, ok := f.members[g.ID][userID]; ok {
		return nil, ErrAlreadyMember
	}
	if f.membershipsOf(userID) >= JoinedGroupsLimit {
		return nil, ErrGroupsLimit
	}
	if len(f.members[g.ID]) >= GroupMembersLimit {
		return nil, ErrMembersLimit
	}
	f.members[g.ID][userID] = &Member{GroupID: g.ID, UserID: userID}
	copied := *g
	return &copied, nil
}

func (f *fakeStore) Leave(_ context.Context, groupID int64, userID string) (bool, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return false, ErrGroupNotFound
	}
	if len(f.members[groupID]) > 1 {
		if g.OwnerID == userID {
			return false, ErrOwnerMustTransfer
		}
		if _, ok := f.members[groupID][userID]; !ok {
			return false, access.ErrNotMember
		}
		delete(f.members[groupID], userID)
		return false, nil
	}
	delete(f.groups, groupID)
	delete(f.members, groupID)
	return true, nil
}

func (f *fakeStore) TransferOwnership(_ context.Context, groupID int64, callerID, newOwnerID string) error {
	g, ok := f.groups[groupID]
	if !ok || g.OwnerID != callerID {
		return access.ErrNotOwner
	}
	m, ok := f.members[groupID][newOwnerID]
	if !ok {
		return ErrNewOwnerNotMember
	}
	g.OwnerID = newOwnerID
	m.IsModerator = true
	return nil
}

func (f *fakeStore) Kick(_ context.Context, groupID int64, callerID, targetID string) error {
	g, ok := f.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	if targetID == g.OwnerID {
		return ErrCannotKickOwner
	}
	target, ok := f.members[groupID][targetID]
	if !ok {
		return ErrMemberNotFound
	}
	if callerID != g.OwnerID {
		if !g.IsModerated {
			return ErrOnlyOwnerCanKick
		}
		if target.IsModerator {
			return ErrOnlyOwnerCanKickModerator
		}
	}
	delete(f.members[groupID], targetID)
	return nil
}

func (f *fakeStore) RotateInviteToken(_ context.Context, groupID int64, token string) error {
	g, ok := f.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	if g.InviteState != InviteLinkEnabled {
		return ErrInviteDisabled
	}
	g.InviteToken = &token
	return nil
}

func (f *fakeStore) SetInviteLink(_ context.Context, groupID int64, state InviteLinkState, token *string) error {
	g, ok := f.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	g.InviteState = state
	g.InviteToken = token
	return nil
}

func (f *fakeStore) MemberIDs(_ context.Context, groupID int64) ([]string, error) {
	var ids []string
	for id := range f.members[groupID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) JoinedGroups(_ context.Context, userID string) ([]*JoinedGroup, error) {
	var groups []*JoinedGroup
	for id, members := range f.members {
		m, ok := members[userID]
		if !ok {
			continue
		}
		g := f.groups[id]
		groups = append(groups, &JoinedGroup{
			ID:           g.ID,
			Name:         g.Name,
			OwnerID:      g.OwnerID,
			IsModerator:  g.IsModerated && m.IsModerator,
			MembersCount: len(members),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

type fakeAvatars struct {
	avatars map[string]string
	err     error
}

func (f *fakeAvatars) UserAvatars(_ context.Context, userIDs []string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]string)
	for _, id := range userIDs {
		if url, ok := f.avatars[id]; ok {
			result[id] = url
		}
	}
	return result, nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, access.NewGuard(store), &fakeAvatars{avatars: map[string]string{}})
}

func createGroup(t *testing.T, s *Service, ownerID string, req *CreateGroupRequest) *Group {
	t.Helper()
	g, err := s.Create(context.Background(), ownerID, req)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return g
}

func TestCreateValidation(t *testing.T) {
	s := newTestService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *CreateGroupRequest
		wantErr error
	}{
		{"empty name", &CreateGroupRequest{Name: ""}, ErrEmptyGroupName},
		{"name too long", &CreateGroupRequest{Name: strings.Repeat("a", 51)}, ErrGroupNameTooLong},
		{"name at limit", &CreateGroupRequest{Name: strings.Repeat("a", 50)}, nil},
		{"description too long", &CreateGroupRequest{Name: "Math", Description: strings.Repeat("d", 301)}, ErrDescriptionTooLong},
		{"description at limit", &CreateGroupRequest{Name: "Math 2", Description: strings.Repeat("d", 300)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, "100", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMakesOwnerModerator(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", IsModerated: true})

	m := store.members[g.ID]["100"]
	if m == nil {
		t.Fatal("creator member row not created")
	}
	if !m.IsModerator {
		t.Error("creator member row is not a moderator")
	}
	if g.OwnerID != "100" {
		t.Errorf("OwnerID = %q, want %q", g.OwnerID, "100")
	}
	if g.InviteState != InviteLinkNotIssued || g.InviteToken != nil {
		t.Errorf("invite link = (%s, %v), want (not_issued, nil)", g.InviteState, g.InviteToken)
	}
}

func TestCreateWithInviteLink(t *testing.T) {
	s := newTestService(newFakeStore())

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})

	if g.InviteState != InviteLinkEnabled {
		t.Errorf("InviteState = %s, want enabled", g.InviteState)
	}
	if g.InviteToken == nil || *g.InviteToken == "" {
		t.Fatal("expected an invite token")
	}
}

func TestCreateJoinedGroupsLimit(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	for i := 0; i < JoinedGroupsLimit-1; i++ {
		createGroup(t, s, "100", &CreateGroupRequest{Name: fmt.Sprintf("Group %d", i)})
	}

	// 19 memberships: the 20th group is allowed.
	if _, err := s.Create(ctx, "100", &CreateGroupRequest{Name: "Last one"}); err != nil {
		t.Fatalf("Create() at limit-1 error: %v", err)
	}

	// 20 memberships: the 21st is rejected.
	if _, err := s.Create(ctx, "100", &CreateGroupRequest{Name: "Too many"}); !errors.Is(err, ErrGroupsLimit) {
		t.Errorf("Create() over limit error = %v, want ErrGroupsLimit", err)
	}
}

func TestJoin(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})
	token := *g.InviteToken

	if _, err := s.Join(ctx, "200", ""); !errors.Is(err, ErrEmptyInviteToken) {
		t.Errorf("Join(empty) error = %v, want ErrEmptyInviteToken", err)
	}
	if _, err := s.Join(ctx, "200", "no-such-token"); !errors.Is(err, ErrInvalidInviteToken) {
		t.Errorf("Join(bad token) error = %v, want ErrInvalidInviteToken", err)
	}

	joined, err := s.Join(ctx, "200", token)
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if joined.ID != g.ID {
		t.Errorf("joined group = %d, want %d", joined.ID, g.ID)
	}
	m := store.members[g.ID]["200"]
	if m == nil {
		t.Fatal("member row not created")
	}
	if m.IsModerator || m.TrackHomeworkCompletion || m.ShareHomeworkCompletion {
		t.Error("joined member should have all flags off")
	}

	if _, err := s.Join(ctx, "200", token); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("Join(again) error = %v, want ErrAlreadyMember", err)
	}
}

func TestJoinGroupsLimit(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "owner", &CreateGroupRequest{Name: "Target", EnableInviteLink: true})
	for i := 0; i < JoinedGroupsLimit; i++ {
		createGroup(t, s, "200", &CreateGroupRequest{Name: fmt.Sprintf("Group %d", i)})
	}

	if _, err := s.Join(ctx, "200", *g.InviteToken); !errors.Is(err, ErrGroupsLimit) {
		t.Errorf("Join() error = %v, want ErrGroupsLimit", err)
	}
}

func TestJoinMembersLimit(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "owner", &CreateGroupRequest{Name: "Crowded", EnableInviteLink: true})
	token := *g.InviteToken

	// Fill up to 99 members, the 100th join passes, the 101st is rejected.
	for i := 1; i < GroupMembersLimit-1; i++ {
		if _, err := s.Join(ctx, fmt.Sprintf("user%d", i), token); err != nil {
			t.Fatalf("Join(user%d) error: %v", i, err)
		}
	}
	if _, err := s.Join(ctx, "lucky", token); err != nil {
		t.Fatalf("Join() at limit-1 error: %v", err)
	}
	if _, err := s.Join(ctx, "unlucky", token); !errors.Is(err, ErrMembersLimit) {
		t.Errorf("Join() over limit error = %v, want ErrMembersLimit", err)
	}
}

func TestLeaveSoleMemberDeletesGroup(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Solo"})

	deleted, err := s.Leave(context.Background(), g.ID, "100")
	if err != nil {
		t.Fatalf("Leave() error: %v", err)
	}
	if !deleted {
		t.Error("Leave() = false, want group deleted")
	}
	if _, ok := store.groups[g.ID]; ok {
		t.Error("group still exists after sole member left")
	}
}

func TestLeaveOwnerMustTransferFirst(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})
	if _, err := s.Join(ctx, "200", *g.InviteToken); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if _, err := s.Leave(ctx, g.ID, "100"); !errors.Is(err, ErrOwnerMustTransfer) {
		t.Errorf("Leave(owner) error = %v, want ErrOwnerMustTransfer", err)
	}

	// A non-owner member leaves normally and the group persists.
	deleted, err := s.Leave(ctx, g.ID, "200")
	if err != nil {
		t.Fatalf("Leave(member) error: %v", err)
	}
	if deleted {
		t.Error("Leave(member) = true, group should persist")
	}
	if _, ok := store.groups[g.ID]; !ok {
		t.Error("group deleted after a non-last member left")
	}
}

func TestLeaveRequiresMembership(t *testing.T) {
	s := newTestService(newFakeStore())
	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math"})

	if _, err := s.Leave(context.Background(), g.ID, "999"); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("Leave(outsider) error = %v, want ErrNotMember", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})
	if _, err := s.Join(ctx, "200", *g.InviteToken); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if err := s.TransferOwnership(ctx, g.ID, "200", "200"); !errors.Is(err, access.ErrNotOwner) {
		t.Errorf("TransferOwnership(non-owner) error = %v, want ErrNotOwner", err)
	}
	if err := s.TransferOwnership(ctx, g.ID, "100", "999"); !errors.Is(err, ErrNewOwnerNotMember) {
		t.Errorf("TransferOwnership(outsider target) error = %v, want ErrNewOwnerNotMember", err)
	}

	if err := s.TransferOwnership(ctx, g.ID, "100", "200"); err != nil {
		t.Fatalf("TransferOwnership() error: %v", err)
	}
	if store.groups[g.ID].OwnerID != "200" {
		t.Errorf("OwnerID = %q, want %q", store.groups[g.ID].OwnerID, "200")
	}
	if !store.members[g.ID]["200"].IsModerator {
		t.Error("new owner did not get the moderator bit")
	}
	// The previous owner keeps whatever bit they had.
	if !store.members[g.ID]["100"].IsModerator {
		t.Error("previous owner's moderator bit was changed")
	}
}

func TestKick(t *testing.T) {
	ctx := context.Background()

	// Moderated group: owner "100", moderator "200", plain member "300".
	setup := func(t *testing.T, moderated bool) (*fakeStore, *Service, *Group) {
		store := newFakeStore()
		s := newTestService(store)
		g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", IsModerated: moderated, EnableInviteLink: true})
		for _, id := range []string{"200", "300"} {
			if _, err := s.Join(ctx, id, *g.InviteToken); err != nil {
				t.Fatalf("Join(%s) error: %v", id, err)
			}
		}
		store.members[g.ID]["200"].IsModerator = true
		return store, s, g
	}

	t.Run("owner kicks a moderator", func(t *testing.T) {
		store, s, g := setup(t, true)
		if err := s.Kick(ctx, g.ID, "100", "200"); err != nil {
			t.Fatalf("Kick() error: %v", err)
		}
		if _, ok := store.members[g.ID]["200"]; ok {
			t.Error("kicked member still present")
		}
	})

	t.Run("nobody kicks the owner", func(t *testing.T) {
		_, s, g := setup(t, true)
		if err := s.Kick(ctx, g.ID, "200", "100"); !errors.Is(err, ErrCannotKickOwner) {
			t.Errorf("Kick(owner) error = %v, want ErrCannotKickOwner", err)
		}
	})

	t.Run("moderator kicks a plain member in a moderated group", func(t *testing.T) {
		store, s, g := setup(t, true)
		if err := s.Kick(ctx, g.ID, "200", "300"); err != nil {
			t.Fatalf("Kick() error: %v", err)
		}
		if _, ok := store.members[g.ID]["300"]; ok {
			t.Error("kicked member still present")
		}
	})

	t.Run("moderator cannot kick another moderator", func(t *testing.T) {
		store, s, g := setup(t, true)
		store.members[g.ID]["300"].IsModerator = true
		if err := s.Kick(ctx, g.ID, "200", "300"); !errors.Is(err, ErrOnlyOwnerCanKickModerator) {
			t.Errorf("Kick(moderator) error = %v, want ErrOnlyOwnerCanKickModerator", err)
		}
	})

	t.Run("plain member fails the moderator gate in a moderated group", func(t *testing.T) {
		_, s, g := setup(t, true)
		if err := s.Kick(ctx, g.ID, "300", "200"); !errors.Is(err, access.ErrNotModerator) {
			t.Errorf("Kick() error = %v, want ErrNotModerator", err)
		}
	})

	t.Run("non-owner cannot kick in a free group", func(t *testing.T) {
		// In a free group every member passes the moderator gate, but only
		// the owner may actually kick.
		_, s, g := setup(t, false)
		if err := s.Kick(ctx, g.ID, "300", "200"); !errors.Is(err, ErrOnlyOwnerCanKick) {
			t.Errorf("Kick() error = %v, want ErrOnlyOwnerCanKick", err)
		}
	})

	t.Run("owner kicks in a free group", func(t *testing.T) {
		store, s, g := setup(t, false)
		if err := s.Kick(ctx, g.ID, "100", "300"); err != nil {
			t.Fatalf("Kick() error: %v", err)
		}
		if _, ok := store.members[g.ID]["300"]; ok {
			t.Error("kicked member still present")
		}
	})

	t.Run("target must be a member", func(t *testing.T) {
		_, s, g := setup(t, true)
		if err := s.Kick(ctx, g.ID, "100", "999"); !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("Kick(outsider) error = %v, want ErrMemberNotFound", err)
		}
	})
}

func TestInviteTokenLifecycle(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	// A moderated group created without an invite link rejects rotation.
	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", IsModerated: true})
	if _, err := s.RotateInviteToken(ctx, g.ID, "100"); !errors.Is(err, ErrInviteDisabled) {
		t.Fatalf("RotateInviteToken(no link) error = %v, want ErrInviteDisabled", err)
	}

	// Created with the link enabled, rotation issues a fresh distinct token
	// and the previous token stops working for joins.
	g2 := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math 2", EnableInviteLink: true})
	oldToken := *g2.InviteToken

	newToken, err := s.RotateInviteToken(ctx, g2.ID, "100")
	if err != nil {
		t.Fatalf("RotateInviteToken() error: %v", err)
	}
	if newToken == oldToken {
		t.Error("rotated token equals the previous one")
	}

	if _, err := s.Join(ctx, "200", oldToken); !errors.Is(err, ErrInvalidInviteToken) {
		t.Errorf("Join(stale token) error = %v, want ErrInvalidInviteToken", err)
	}
	if _, err := s.Join(ctx, "200", newToken); err != nil {
		t.Errorf("Join(fresh token) error: %v", err)
	}
}

func TestRotateRequiresModeratorTier(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", IsModerated: true, EnableInviteLink: true})
	if _, err := s.Join(ctx, "300", *g.InviteToken); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if _, err := s.RotateInviteToken(ctx, g.ID, "300"); !errors.Is(err, access.ErrNotModerator) {
		t.Errorf("RotateInviteToken(member) error = %v, want ErrNotModerator", err)
	}
	if _, err := s.RotateInviteToken(ctx, g.ID, "999"); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("RotateInviteToken(outsider) error = %v, want ErrNotMember", err)
	}
}

func TestSetInviteLink(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})
	token := *g.InviteToken

	if _, err := s.SetInviteLink(ctx, g.ID, "999", false); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("SetInviteLink(outsider) error = %v, want ErrNotMember", err)
	}

	// Disable: token cleared, joins and rotation rejected.
	cleared, err := s.SetInviteLink(ctx, g.ID, "100", false)
	if err != nil {
		t.Fatalf("SetInviteLink(disable) error: %v", err)
	}
	if cleared != nil {
		t.Errorf("disable returned token %q, want nil", *cleared)
	}
	if _, err := s.Join(ctx, "200", token); !errors.Is(err, ErrInvalidInviteToken) {
		t.Errorf("Join(disabled link) error = %v, want ErrInvalidInviteToken", err)
	}
	if _, err := s.RotateInviteToken(ctx, g.ID, "100"); !errors.Is(err, ErrInviteDisabled) {
		t.Errorf("RotateInviteToken(disabled) error = %v, want ErrInviteDisabled", err)
	}

	// Re-enable: a fresh token is issued and works.
	fresh, err := s.SetInviteLink(ctx, g.ID, "100", true)
	if err != nil {
		t.Fatalf("SetInviteLink(enable) error: %v", err)
	}
	if fresh == nil || *fresh == token {
		t.Fatal("enable should issue a fresh token")
	}
	if _, err := s.Join(ctx, "200", *fresh); err != nil {
		t.Errorf("Join(fresh token) error: %v", err)
	}
}

func TestJoinedListing(t *testing.T) {
	store := newFakeStore()
	avatars := &fakeAvatars{avatars: map[string]string{"100": "https://vk.com/photo_100_50.jpg"}}
	s := NewService(store, access.NewGuard(store), avatars)
	ctx := context.Background()

	moderated := createGroup(t, s, "100", &CreateGroupRequest{Name: "Moderated", IsModerated: true, EnableInviteLink: true})
	free := createGroup(t, s, "100", &CreateGroupRequest{Name: "Free", EnableInviteLink: true})
	for _, g := range []*Group{moderated, free} {
		if _, err := s.Join(ctx, "200", *g.InviteToken); err != nil {
			t.Fatalf("Join() error: %v", err)
		}
	}
	store.members[moderated.ID]["200"].IsModerator = true
	store.members[free.ID]["200"].IsModerator = true

	groups, err := s.Joined(ctx, "200")
	if err != nil {
		t.Fatalf("Joined() error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Joined() returned %d groups, want 2", len(groups))
	}

	byName := make(map[string]*JoinedGroup)
	for _, g := range groups {
		byName[g.Name] = g
	}

	if !byName["Moderated"].IsModerator {
		t.Error("moderator bit lost in moderated group listing")
	}
	// In a free group the stored bit has no meaning and is reported off.
	if byName["Free"].IsModerator {
		t.Error("moderator bit reported in a free group listing")
	}
	for _, g := range groups {
		if g.MembersCount != 2 {
			t.Errorf("%s MembersCount = %d, want 2", g.Name, g.MembersCount)
		}
		if g.OwnerSmallAvatar == nil || *g.OwnerSmallAvatar != "https://vk.com/photo_100_50.jpg" {
			t.Errorf("%s owner avatar not attached", g.Name)
		}
	}
}

func TestJoinedEmpty(t *testing.T) {
	s := newTestService(newFakeStore())

	groups, err := s.Joined(context.Background(), "100")
	if err != nil {
		t.Fatalf("Joined() error: %v", err)
	}
	if groups == nil || len(groups) != 0 {
		t.Errorf("Joined() = %v, want empty slice", groups)
	}
}

func TestMemberReadsRequireMembership(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store)
	ctx := context.Background()

	g := createGroup(t, s, "100", &CreateGroupRequest{Name: "Math", EnableInviteLink: true})

	if _, err := s.Get(ctx, g.ID, "999"); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("Get(outsider) error = %v, want ErrNotMember", err)
	}
	if _, err := s.Members(ctx, g.ID, "999"); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("Members(outsider) error = %v, want ErrNotMember", err)
	}
	if _, err := s.InviteKey(ctx, g.ID, "999"); !errors.Is(err, access.ErrNotMember) {
		t.Errorf("InviteKey(outsider) error = %v, want ErrNotMember", err)
	}

	members, err := s.Members(ctx, g.ID, "100")
	if err != nil {
		t.Fatalf("Members() error: %v", err)
	}
	if len(members) != 1 || members[0] != "100" {
		t.Errorf("Members() = %v, want [100]", members)
	}

	key, err := s.InviteKey(ctx, g.ID, "100")
	if err != nil {
		t.Fatalf("InviteKey() error: %v", err)
	}
	if key == nil || *key != *g.InviteToken {
		t.Error("InviteKey() did not return the current token")
	}
}
