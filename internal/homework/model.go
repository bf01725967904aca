package homework

import "time"

// Homework represents a homework assignment dedicated to a group.
// File attachments are stored and served elsewhere.
type Homework struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"created_by"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
