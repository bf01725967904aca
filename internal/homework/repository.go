package homework

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles homework data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new homework repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new homework assignment and returns its id
func (r *Repository) Create(ctx context.Context, hw *Homework) (int64, error) {
	query := `
		INSERT INTO homework (group_id, subject, text, created_by, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		hw.GroupID, hw.Subject, hw.Text, hw.CreatedBy, hw.DueDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create homework: %w", err)
	}

	return id, nil
}

// GetByID retrieves a homework assignment by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Homework, error) {
	query := `
		SELECT id, group_id, subject, text, created_by, due_date, created_at, updated_at
		FROM homework
		WHERE id = $1
	`

	hw := &Homework{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&hw.ID,
		&hw.GroupID,
		&hw.Subject,
		&hw.Text,
		&hw.CreatedBy,
		&hw.DueDate,
		&hw.CreatedAt,
		&hw.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get homework: %w", err)
	}

	return hw, nil
}

// UpdateText replaces an assignment's text
func (r *Repository) UpdateText(ctx context.Context, id int64, text string) error {
	query := `UPDATE homework SET text = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, text)
	if err != nil {
		return fmt.Errorf("failed to update homework: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrHomeworkNotFound
	}

	return nil
}

// Delete removes a homework assignment
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM homework WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete homework: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrHomeworkNotFound
	}

	return nil
}

// ListFromDate retrieves assignments due after the given date
func (r *Repository) ListFromDate(ctx context.Context, groupID int64, after time.Time, offset, limit int) ([]*Homework, error) {
	query := `
		SELECT id, group_id, subject, text, created_by, due_date, created_at, updated_at
		FROM homework
		WHERE group_id = $1 AND due_date > $2
		ORDER BY due_date
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, after, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	defer rows.Close()

	return scanHomework(rows)
}

// ListByDay retrieves assignments due exactly on the given date
func (r *Repository) ListByDay(ctx context.Context, groupID int64, day time.Time) ([]*Homework, error) {
	query := `
		SELECT id, group_id, subject, text, created_by, due_date, created_at, updated_at
		FROM homework
		WHERE group_id = $1 AND due_date = $2
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list homework: %w", err)
	}
	defer rows.Close()

	return scanHomework(rows)
}

// Subjects retrieves the distinct subjects used in a group
func (r *Repository) Subjects(ctx context.Context, groupID int64) ([]string, error) {
	query := `
		SELECT DISTINCT subject
		FROM homework
		WHERE group_id = $1
		ORDER BY subject
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}

	return subjects, nil
}

func scanHomework(rows *sql.Rows) ([]*Homework, error) {
	var assignments []*Homework
	for rows.Next() {
		hw := &Homework{}
		if err := rows.Scan(
			&hw.ID,
			&hw.GroupID,
			&hw.Subject,
			&hw.Text,
			&hw.CreatedBy,
			&hw.DueDate,
			&hw.CreatedAt,
			&hw.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan homework: %w", err)
		}
		assignments = append(assignments, hw)
	}

	return assignments, nil
}
