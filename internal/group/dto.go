package group

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=50"`
	Description      string `json:"description" validate:"max=300"`
	IsModerated      bool   `json:"is_moderated"`
	EnableInviteLink bool   `json:"enable_invite_link"`
}

// JoinGroupRequest represents the request to join a group by invite token
type JoinGroupRequest struct {
	InviteToken string `json:"invite_token" validate:"required"`
}

// TransferOwnershipRequest represents the request to hand the group over
type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id" validate:"required"`
}

// SetInviteLinkRequest represents the owner's enable/disable switch for the
// group invite link
type SetInviteLinkRequest struct {
	Enabled bool `json:"enabled"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OwnerID     string  `json:"owner_id"`
	IsModerated bool    `json:"is_moderated"`
	InviteToken *string `json:"invite_token,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// InviteKeyResponse carries the current invite token, null when the link is
// disabled or was never issued
type InviteKeyResponse struct {
	InviteToken *string `json:"invite_token"`
}

// InviteTokenResponse carries a freshly issued invite token
type InviteTokenResponse struct {
	InviteToken string `json:"invite_token"`
}

// LeaveResponse reports whether leaving dissolved the group entirely
type LeaveResponse struct {
	GroupDeleted bool `json:"group_deleted"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		IsModerated: g.IsModerated,
		InviteToken: g.InviteToken,
		CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
