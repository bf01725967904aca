package homework

import (
	"context"
	"errors"
	"time"

	"github.com/sgerasev/hometask/internal/access"
)

// Common errors
var (
	ErrHomeworkNotFound = errors.New("this homework doesn't exist in that group")
	ErrEmptySubject     = errors.New("subject can't be empty")
	ErrInvalidDate      = errors.New("invalid date")
	ErrPastDueDate      = errors.New("can't assign homework to a past date")
)

// Store is the persistence contract for homework assignments
type Store interface {
	Create(ctx context.Context, hw *Homework) (int64, error)
	GetByID(ctx context.Context, id int64) (*Homework, error)
	UpdateText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
	ListFromDate(ctx context.Context, groupID int64, after time.Time, offset, limit int) ([]*Homework, error)
	ListByDay(ctx context.Context, groupID int64, day time.Time) ([]*Homework, error)
	Subjects(ctx context.Context, groupID int64) ([]string, error)
}

// Service handles homework business logic. Every operation passes the access
// guard before touching the store: writes need moderator tier, reads need
// membership.
type Service struct {
	store Store
	guard *access.Guard

	now func() time.Time
}

// NewService creates a new homework service
func NewService(store Store, guard *access.Guard) *Service {
	return &Service{
		store: store,
		guard: guard,
		now:   time.Now,
	}
}

// Add creates a homework assignment with a future due date
func (s *Service) Add(ctx context.Context, groupID int64, userID string, req *AddHomeworkRequest) (int64, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierModerator); err != nil {
		return 0, err
	}
	if req.Subject == "" {
		return 0, ErrEmptySubject
	}
	if req.DueDate.IsZero() {
		return 0, ErrInvalidDate
	}
	if req.DueDate.Before(s.now()) {
		return 0, ErrPastDueDate
	}

	return s.store.Create(ctx, &Homework{
		GroupID:   groupID,
		Subject:   req.Subject,
		Text:      req.Text,
		CreatedBy: userID,
		DueDate:   req.DueDate,
	})
}

// Edit replaces an assignment's text
func (s *Service) Edit(ctx context.Context, groupID int64, userID string, homeworkID int64, newText string) error {
	if err := s.guard.Check(ctx, groupID, userID, access.TierModerator); err != nil {
		return err
	}
	if err := s.ensureInGroup(ctx, groupID, homeworkID); err != nil {
		return err
	}
	return s.store.UpdateText(ctx, homeworkID, newText)
}

// Remove deletes an assignment
func (s *Service) Remove(ctx context.Context, groupID int64, userID string, homeworkID int64) error {
	if err := s.guard.Check(ctx, groupID, userID, access.TierModerator); err != nil {
		return err
	}
	if err := s.ensureInGroup(ctx, groupID, homeworkID); err != nil {
		return err
	}
	return s.store.Delete(ctx, homeworkID)
}

// FromDate lists assignments due after the given client-side date. The date
// comes from the client because of VPN-skewed clocks.
func (s *Service) FromDate(ctx context.Context, groupID int64, userID string, from time.Time, offset, first int) ([]*Homework, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return nil, err
	}
	if from.IsZero() {
		return nil, ErrInvalidDate
	}
	if offset < 0 {
		offset = 0
	}
	if first < 1 || first > 100 {
		first = 20
	}
	return s.store.ListFromDate(ctx, groupID, from, offset, first)
}

// ByDay lists assignments due exactly on the given date
func (s *Service) ByDay(ctx context.Context, groupID int64, userID string, day time.Time) ([]*Homework, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return nil, err
	}
	if day.IsZero() {
		return nil, ErrInvalidDate
	}
	return s.store.ListByDay(ctx, groupID, day)
}

// Subjects lists the distinct subjects ever assigned in the group
func (s *Service) Subjects(ctx context.Context, groupID int64, userID string) ([]string, error) {
	if err := s.guard.Check(ctx, groupID, userID, access.TierMember); err != nil {
		return nil, err
	}
	return s.store.Subjects(ctx, groupID)
}

// ensureInGroup rejects assignment ids that don't exist or belong to another
// group, so a moderator of one group can't touch another group's homework.
func (s *Service) ensureInGroup(ctx context.Context, groupID, homeworkID int64) error {
	hw, err := s.store.GetByID(ctx, homeworkID)
	if err != nil {
		return err
	}
	if hw == nil || hw.GroupID != groupID {
		return ErrHomeworkNotFound
	}
	return nil
}
