package group

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sgerasev/hometask/internal/access"
	"github.com/sgerasev/hometask/pkg/middleware"
	"github.com/sgerasev/hometask/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.Joined)
	r.Post("/join", h.Join)
	r.Get("/{id}", h.GetByID)

	// Membership management
	r.Get("/{id}/members", h.Members)
	r.Delete("/{id}/members/{userID}", h.Kick)
	r.Post("/{id}/leave", h.Leave)
	r.Post("/{id}/transfer", h.TransferOwnership)

	// Invite link management
	r.Get("/{id}/invite", h.InviteKey)
	r.Post("/{id}/invite/rotate", h.RotateInviteToken)
	r.Put("/{id}/invite", h.SetInviteLink)

	return r
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Create a group with the caller as owner and first moderator; returns the invite token when the link is enabled
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, g.ToResponse())
}

// Joined handles GET /groups
// @Summary      List my groups
// @Description  List all groups the caller belongs to, with member counts and owner avatars
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]JoinedGroup}
// @Router       /groups [get]
func (h *Handler) Joined(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groups, err := h.service.Joined(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, groups)
}

// Join handles POST /groups/join
// @Summary      Join a group by invite token
// @Description  A valid invite token is sufficient to join regardless of the group's moderation flag
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body JoinGroupRequest true "Invite token"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Join(r.Context(), userID, req.InviteToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, g.ToResponse())
}

// GetByID handles GET /groups/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	g, err := h.service.Get(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, g.ToResponse())
}

// Members handles GET /groups/{id}/members
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	members, err := h.service.Members(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, members)
}

// Kick handles DELETE /groups/{id}/members/{userID}
// @Summary      Kick a member
// @Description  Moderator tier required; only the owner can kick moderators, and nobody can kick the owner
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        userID path string true "Member to kick"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/members/{userID} [delete]
func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		response.BadRequest(w, "Invalid member ID")
		return
	}

	if err := h.service.Kick(r.Context(), groupID, userID, targetID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member kicked successfully"})
}

// Leave handles POST /groups/{id}/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	deleted, err := h.service.Leave(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &LeaveResponse{GroupDeleted: deleted})
}

// TransferOwnership handles POST /groups/{id}/transfer
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.NewOwnerID == "" {
		response.BadRequest(w, "New owner ID is required")
		return
	}

	if err := h.service.TransferOwnership(r.Context(), groupID, userID, req.NewOwnerID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Ownership transferred successfully"})
}

// InviteKey handles GET /groups/{id}/invite
func (h *Handler) InviteKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	token, err := h.service.InviteKey(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &InviteKeyResponse{InviteToken: token})
}

// RotateInviteToken handles POST /groups/{id}/invite/rotate
// @Summary      Rotate the invite token
// @Description  Issue a fresh invite token, invalidating the previous one; fails when the link is disabled or was never issued
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=InviteTokenResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/invite/rotate [post]
func (h *Handler) RotateInviteToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	token, err := h.service.RotateInviteToken(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &InviteTokenResponse{InviteToken: token})
}

// SetInviteLink handles PUT /groups/{id}/invite
func (h *Handler) SetInviteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not auth")
		return
	}

	groupID, err := parseGroupID(r)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req SetInviteLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	token, err := h.service.SetInviteLink(r.Context(), groupID, userID, req.Enabled)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, &InviteKeyResponse{InviteToken: token})
}

func parseGroupID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// respondServiceError maps service errors to HTTP responses. Anything not in
// the business taxonomy is treated as a storage failure and reported as
// retryable.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyGroupName),
		errors.Is(err, ErrGroupNameTooLong),
		errors.Is(err, ErrDescriptionTooLong),
		errors.Is(err, ErrEmptyInviteToken):
		response.BadRequest(w, err.Error())
	case errors.Is(err, access.ErrNotMember),
		errors.Is(err, access.ErrNotModerator),
		errors.Is(err, access.ErrNotOwner),
		errors.Is(err, ErrCannotKickOwner),
		errors.Is(err, ErrOnlyOwnerCanKick),
		errors.Is(err, ErrOnlyOwnerCanKickModerator):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrGroupsLimit),
		errors.Is(err, ErrMembersLimit):
		response.LimitExceeded(w, err.Error())
	case errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrInviteDisabled),
		errors.Is(err, ErrOwnerMustTransfer),
		errors.Is(err, ErrNewOwnerNotMember):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrInvalidInviteToken),
		errors.Is(err, ErrMemberNotFound):
		response.NotFound(w, err.Error())
	default:
		response.ServiceUnavailable(w, "Temporary storage failure")
	}
}
