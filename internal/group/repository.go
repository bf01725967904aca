package group

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgerasev/hometask/internal/access"
)

// Repository handles group and membership persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// withSerializableTx runs fn inside a serializable transaction. The
// capacity-gated check-then-insert sequences rely on this isolation level.
func (r *Repository) withSerializableTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT id, name, description, owner_id, is_moderated, invite_state, invite_token, created_at
		FROM groups
		WHERE id = $1
	`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.OwnerID,
		&g.IsModerated,
		&g.InviteState,
		&g.InviteToken,
		&g.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return g, nil
}

// Create inserts a new group together with its owner's member row. The
// caller's joined-groups count is checked inside the same transaction.
func (r *Repository) Create(ctx context.Context, ownerID string, req *CreateGroupRequest, state InviteLinkState, token *string) (*Group, error) {
	g := &Group{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
		IsModerated: req.IsModerated,
		InviteState: state,
		InviteToken: token,
	}

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		var joined int
		countQuery := `SELECT COUNT(*) FROM members WHERE user_id = $1`
		if err := tx.QueryRowContext(ctx, countQuery, ownerID).Scan(&joined); err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		if joined >= JoinedGroupsLimit {
			return ErrGroupsLimit
		}

		insertGroup := `
			INSERT INTO groups (name, description, owner_id, is_moderated, invite_state, invite_token)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`
		if err := tx.QueryRowContext(ctx, insertGroup,
			g.Name, g.Description, g.OwnerID, g.IsModerated, g.InviteState, g.InviteToken,
		).Scan(&g.ID, &g.CreatedAt); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		insertMember := `
			INSERT INTO members (group_id, user_id, is_moderator)
			VALUES ($1, $2, TRUE)
		`
		if _, err := tx.ExecContext(ctx, insertMember, g.ID, ownerID); err != nil {
			return fmt.Errorf("failed to create owner member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// JoinByToken resolves an active invite token and adds the user as a member.
// Duplicate membership and both capacity limits are checked while the group
// row is locked, so two concurrent joins cannot jointly exceed a limit.
func (r *Repository) JoinByToken(ctx context.Context, token, userID string) (*Group, error) {
	g := &Group{}

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		findQuery := `
			SELECT id, name, description, owner_id, is_moderated, invite_state, invite_token, created_at
			FROM groups
			WHERE invite_state = $1 AND invite_token = $2
			FOR UPDATE
		`
		err := tx.QueryRowContext(ctx, findQuery, InviteLinkEnabled, token).Scan(
			&g.ID,
			&g.Name,
			&g.Description,
			&g.OwnerID,
			&g.IsModerated,
			&g.InviteState,
			&g.InviteToken,
			&g.CreatedAt,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrInvalidInviteToken
			}
			return fmt.Errorf("failed to resolve invite token: %w", err)
		}

		var alreadyMember bool
		existsQuery := `SELECT EXISTS(SELECT 1 FROM members WHERE group_id = $1 AND user_id = $2)`
		if err := tx.QueryRowContext(ctx, existsQuery, g.ID, userID).Scan(&alreadyMember); err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if alreadyMember {
			return ErrAlreadyMember
		}

		var joined int
		joinedQuery := `SELECT COUNT(*) FROM members WHERE user_id = $1`
		if err := tx.QueryRowContext(ctx, joinedQuery, userID).Scan(&joined); err != nil {
			return fmt.Errorf("failed to count memberships: %w", err)
		}
		if joined >= JoinedGroupsLimit {
			return ErrGroupsLimit
		}

		var members int
		membersQuery := `SELECT COUNT(*) FROM members WHERE group_id = $1`
		if err := tx.QueryRowContext(ctx, membersQuery, g.ID).Scan(&members); err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}
		if members >= GroupMembersLimit {
			return ErrMembersLimit
		}

		insertMember := `
			INSERT INTO members (group_id, user_id, is_moderator)
			VALUES ($1, $2, FALSE)
		`
		if _, err := tx.ExecContext(ctx, insertMember, g.ID, userID); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// Leave removes the user's member row, or deletes the whole group when the
// user is its last member. Returns true when the group was deleted. The
// count-then-branch runs with the group row locked.
func (r *Repository) Leave(ctx context.Context, groupID int64, userID string) (bool, error) {
	var groupDeleted bool

	err := r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		var ownerID string
		lockQuery := `SELECT owner_id FROM groups WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, lockQuery, groupID).Scan(&ownerID); err != nil {
			if err == sql.ErrNoRows {
				return ErrGroupNotFound
			}
			return fmt.Errorf("failed to lock group: %w", err)
		}

		var members int
		countQuery := `SELECT COUNT(*) FROM members WHERE group_id = $1`
		if err := tx.QueryRowContext(ctx, countQuery, groupID).Scan(&members); err != nil {
			return fmt.Errorf("failed to count members: %w", err)
		}

		if members > 1 {
			if ownerID == userID {
				return ErrOwnerMustTransfer
			}
			deleteMember := `DELETE FROM members WHERE group_id = $1 AND user_id = $2`
			result, err := tx.ExecContext(ctx, deleteMember, groupID, userID)
			if err != nil {
				return fmt.Errorf("failed to remove member: %w", err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return access.ErrNotMember
			}
			return nil
		}

		// Sole member leaving dissolves the group, member rows cascade.
		deleteGroup := `DELETE FROM groups WHERE id = $1`
		if _, err := tx.ExecContext(ctx, deleteGroup, groupID); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		groupDeleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return groupDeleted, nil
}

// TransferOwnership applies a compare-and-swap on owner_id: it only succeeds
// if the caller is still the owner at apply time. The new owner's member row
// gets the moderator bit in the same transaction.
func (r *Repository) TransferOwnership(ctx context.Context, groupID int64, callerID, newOwnerID string) error {
	return r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		casQuery := `UPDATE groups SET owner_id = $3 WHERE id = $1 AND owner_id = $2`
		result, err := tx.ExecContext(ctx, casQuery, groupID, callerID, newOwnerID)
		if err != nil {
			return fmt.Errorf("failed to transfer ownership: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return access.ErrNotOwner
		}

		promoteQuery := `UPDATE members SET is_moderator = TRUE WHERE group_id = $1 AND user_id = $2`
		result, err = tx.ExecContext(ctx, promoteQuery, groupID, newOwnerID)
		if err != nil {
			return fmt.Errorf("failed to promote new owner: %w", err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNewOwnerNotMember
		}
		return nil
	})
}

// Kick deletes the target's member row after re-checking the owner and
// moderated-group constraints under the group row lock.
func (r *Repository) Kick(ctx context.Context, groupID int64, callerID, targetID string) error {
	return r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		var ownerID string
		var isModerated bool
		lockQuery := `SELECT owner_id, is_moderated FROM groups WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, lockQuery, groupID).Scan(&ownerID, &isModerated); err != nil {
			if err == sql.ErrNoRows {
				return ErrGroupNotFound
			}
			return fmt.Errorf("failed to lock group: %w", err)
		}

		if targetID == ownerID {
			return ErrCannotKickOwner
		}

		var targetIsModerator bool
		memberQuery := `SELECT is_moderator FROM members WHERE group_id = $1 AND user_id = $2`
		if err := tx.QueryRowContext(ctx, memberQuery, groupID, targetID).Scan(&targetIsModerator); err != nil {
			if err == sql.ErrNoRows {
				return ErrMemberNotFound
			}
			return fmt.Errorf("failed to get member: %w", err)
		}

		if callerID != ownerID {
			if !isModerated {
				return ErrOnlyOwnerCanKick
			}
			if targetIsModerator {
				return ErrOnlyOwnerCanKickModerator
			}
		}

		deleteMember := `DELETE FROM members WHERE group_id = $1 AND user_id = $2`
		if _, err := tx.ExecContext(ctx, deleteMember, groupID, targetID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
}

// RotateInviteToken overwrites the active invite token. A group whose link is
// disabled or was never issued is rejected.
func (r *Repository) RotateInviteToken(ctx context.Context, groupID int64, token string) error {
	return r.withSerializableTx(ctx, func(tx *sql.Tx) error {
		var state InviteLinkState
		lockQuery := `SELECT invite_state FROM groups WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, lockQuery, groupID).Scan(&state); err != nil {
			if err == sql.ErrNoRows {
				return ErrGroupNotFound
			}
			return fmt.Errorf("failed to lock group: %w", err)
		}
		if state != InviteLinkEnabled {
			return ErrInviteDisabled
		}

		updateQuery := `UPDATE groups SET invite_token = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, groupID, token); err != nil {
			return fmt.Errorf("failed to rotate invite token: %w", err)
		}
		return nil
	})
}

// SetInviteLink moves the invite link between enabled and disabled states
func (r *Repository) SetInviteLink(ctx context.Context, groupID int64, state InviteLinkState, token *string) error {
	query := `UPDATE groups SET invite_state = $2, invite_token = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, groupID, state, token)
	if err != nil {
		return fmt.Errorf("failed to update invite link: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrGroupNotFound
	}

	return nil
}

// MemberIDs retrieves the user ids of all members of a group
func (r *Repository) MemberIDs(ctx context.Context, groupID int64) ([]string, error) {
	query := `
		SELECT user_id
		FROM members
		WHERE group_id = $1
		ORDER BY joined_at
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// JoinedGroups retrieves the listing rows for all groups a user belongs to.
// The effective moderator bit is computed here: the stored flag only counts
// in moderated groups.
func (r *Repository) JoinedGroups(ctx context.Context, userID string) ([]*JoinedGroup, error) {
	query := `
		SELECT g.id, g.name, g.owner_id,
		       (g.is_moderated AND m.is_moderator),
		       (SELECT COUNT(*) FROM members mm WHERE mm.group_id = g.id)
		FROM members m
		JOIN groups g ON g.id = m.group_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined groups: %w", err)
	}
	defer rows.Close()

	var groups []*JoinedGroup
	for rows.Next() {
		g := &JoinedGroup{}
		if err := rows.Scan(
			&g.ID,
			&g.Name,
			&g.OwnerID,
			&g.IsModerator,
			&g.MembersCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan joined group: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, nil
}

// GroupAuth retrieves the owner/moderation projection for permission checks
func (r *Repository) GroupAuth(ctx context.Context, groupID int64) (*access.GroupAuth, error) {
	query := `SELECT owner_id, is_moderated FROM groups WHERE id = $1`

	auth := &access.GroupAuth{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(&auth.OwnerID, &auth.IsModerated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group auth info: %w", err)
	}

	return auth, nil
}

// MemberAuth retrieves the membership projection for permission checks
func (r *Repository) MemberAuth(ctx context.Context, groupID int64, userID string) (*access.MemberAuth, error) {
	query := `SELECT is_moderator FROM members WHERE group_id = $1 AND user_id = $2`

	auth := &access.MemberAuth{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&auth.IsModerator)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member auth info: %w", err)
	}

	return auth, nil
}
