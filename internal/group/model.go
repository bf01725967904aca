package group

import "time"

// Capacity limits enforced on membership mutations
const (
	JoinedGroupsLimit = 20
	GroupMembersLimit = 100
)

// Field length limits enforced on group creation
const (
	NameMaxLen        = 50
	DescriptionMaxLen = 300
)

// InviteLinkState distinguishes the three meanings the invite token slot can
// have: an active token, a link the owner switched off, and a link that was
// never issued in the first place.
type InviteLinkState string

const (
	InviteLinkEnabled   InviteLinkState = "enabled"
	InviteLinkDisabled  InviteLinkState = "disabled"
	InviteLinkNotIssued InviteLinkState = "not_issued"
)

// Group represents a study group in the system
type Group struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	OwnerID     string          `json:"owner_id"`
	IsModerated bool            `json:"is_moderated"`
	InviteState InviteLinkState `json:"invite_state"`
	InviteToken *string         `json:"invite_token,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Member represents a user's membership in a group, keyed by (GroupID, UserID).
// The two completion flags are user preferences opaque to membership logic.
type Member struct {
	GroupID                 int64     `json:"group_id"`
	UserID                  string    `json:"user_id"`
	IsModerator             bool      `json:"is_moderator"`
	TrackHomeworkCompletion bool      `json:"track_homework_completion"`
	ShareHomeworkCompletion bool      `json:"share_homework_completion"`
	JoinedAt                time.Time `json:"joined_at"`
}

// JoinedGroup is one row of the "my groups" listing.
//
// IsModerator is the effective bit: in a free group the stored moderator flag
// is meaningless, so it is reported as false there.
type JoinedGroup struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	OwnerID          string  `json:"owner_id"`
	IsModerator      bool    `json:"is_moderator"`
	MembersCount     int     `json:"members_count"`
	OwnerSmallAvatar *string `json:"owner_small_avatar"`
}
