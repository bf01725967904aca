package homework

import "time"

// AddHomeworkRequest represents the request to add a homework assignment
type AddHomeworkRequest struct {
	Subject string    `json:"subject" validate:"required"`
	Text    string    `json:"text"`
	DueDate time.Time `json:"due_date" validate:"required"`
}

// EditHomeworkRequest represents the request to change an assignment's text
type EditHomeworkRequest struct {
	Text string `json:"text"`
}

// HomeworkResponse represents the response for a homework assignment
type HomeworkResponse struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	CreatedBy string `json:"created_by"`
	DueDate   string `json:"due_date"`
	UpdatedAt string `json:"updated_at"`
}

// ToResponse converts a Homework model to a HomeworkResponse DTO
func (h *Homework) ToResponse() *HomeworkResponse {
	return &HomeworkResponse{
		ID:        h.ID,
		Subject:   h.Subject,
		Text:      h.Text,
		CreatedBy: h.CreatedBy,
		DueDate:   h.DueDate.Format(time.RFC3339),
		UpdatedAt: h.UpdatedAt.Format(time.RFC3339),
	}
}
