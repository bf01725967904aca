package homework

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sgerasev/hometask/internal/access"
	"github.com/sgerasev/hometask/pkg/middleware"
	"github.com/sgerasev/hometask/pkg/response"
)

// Handler handles HTTP requests for homework operations
type Handler struct {
	service *Service
}

// NewHandler creates a new homework handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for homework endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{groupID}", func(r chi.Router) {
		r.Post("/", h.Add)
		r.Get("/", h.FromDate)
		r.Get("/day", h.ByDay)
		r.Get("/subjects", h.Subjects)
		r.Put("/{homeworkID}", h.Edit)
		r.Delete("/{homeworkID}", h.Remove)
	})

	return r
}

// Add handles POST /homework/{groupID}
// @Summary      Add a homework assignment
// @Description  Moderator tier required; the due date must not be in the past
// @Tags         homework
// @Accept       json
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Param        request body AddHomeworkRequest true "Assignment to add"
// @Success      201 {object} response.APIResponse{data=int}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /homework/{groupID} [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
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

	var req AddHomeworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	id, err := h.service.Add(r.Context(), groupID, userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// FromDate handles GET /homework/{groupID}?from=...&offset=...&first=...
func (h *Handler) FromDate(w http.ResponseWriter, r *http.Request) {
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

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		response.BadRequest(w, "Invalid date in from param")
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	first, _ := strconv.Atoi(r.URL.Query().Get("first"))

	assignments, err := h.service.FromDate(r.Context(), groupID, userID, from, offset, first)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toResponses(assignments))
}

// ByDay handles GET /homework/{groupID}/day?date=...
func (h *Handler) ByDay(w http.ResponseWriter, r *http.Request) {
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

	day, err := time.Parse(time.RFC3339, r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, "Invalid date in date param")
		return
	}

	assignments, err := h.service.ByDay(r.Context(), groupID, userID, day)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toResponses(assignments))
}

// Subjects handles GET /homework/{groupID}/subjects
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
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

	subjects, err := h.service.Subjects(r.Context(), groupID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, subjects)
}

// Edit handles PUT /homework/{groupID}/{homeworkID}
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
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

	homeworkID, err := strconv.ParseInt(chi.URLParam(r, "homeworkID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid homework ID")
		return
	}

	var req EditHomeworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.Edit(r.Context(), groupID, userID, homeworkID, req.Text); err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Homework updated successfully"})
}

// Remove handles DELETE /homework/{groupID}/{homeworkID}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
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

	homeworkID, err := strconv.ParseInt(chi.URLParam(r, "homeworkID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid homework ID")
		return
	}

	if err := h.service.Remove(r.Context(), groupID, userID, homeworkID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Homework removed successfully"})
}

func parseGroupID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
}

func toResponses(assignments []*Homework) []*HomeworkResponse {
	responses := make([]*HomeworkResponse, len(assignments))
	for i, hw := range assignments {
		responses[i] = hw.ToResponse()
	}
	return responses
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptySubject),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrPastDueDate):
		response.BadRequest(w, err.Error())
	case errors.Is(err, access.ErrNotMember),
		errors.Is(err, access.ErrNotModerator),
		errors.Is(err, access.ErrNotOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrHomeworkNotFound):
		response.NotFound(w, err.Error())
	default:
		response.ServiceUnavailable(w, "Temporary storage failure")
	}
}
