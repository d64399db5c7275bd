package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rachajunto/backend/internal/membership"
	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/storage"
)

// CreateGroup persists a new group together with its owner membership row.
// Both writes commit or neither does.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if group.Visibility == "" {
		group.Visibility = models.VisibilityPrivate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, visibility, owner_id, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		group.ID, group.Name, string(group.Visibility), group.OwnerID, group.ImageURL, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	owner := membership.NewOwner(group.ID, group.OwnerID, time.Unix(group.CreatedAt, 0))
	if err := upsertMember(ctx, tx, owner); err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	return tx.Commit()
}

// GetGroup retrieves a group by ID.
func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, visibility, owner_id, image_url, created_at FROM groups WHERE id = ?", id)
	return scanGroup(row)
}

// ListGroupsForUser retrieves the groups the user is an active member of.
func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.visibility, g.owner_id, g.image_url, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ? AND m.active = 1
		ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return collectGroups(rows)
}

// ListPublicGroups retrieves groups visible in discovery.
func (s *Store) ListPublicGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, visibility, owner_id, image_url, created_at FROM groups WHERE visibility = ? ORDER BY created_at DESC",
		string(models.VisibilityPublic))
	if err != nil {
		return nil, fmt.Errorf("failed to list public groups: %w", err)
	}
	return collectGroups(rows)
}

// ListMembers retrieves all active members of a group in join order.
func (s *Store) ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id, role, active, joined_at, left_at FROM group_members WHERE group_id = ? AND active = 1 ORDER BY joined_at",
		groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// GetMember retrieves one membership row, active or not.
func (s *Store) GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	return getMember(ctx, s.db, groupID, userID)
}

// JoinGroup admits userID into the group as a member.
func (s *Store) JoinGroup(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := getGroupTx(ctx, tx, groupID); err != nil {
		return nil, err
	}

	existing, err := getMember(ctx, tx, groupID, userID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	joined, err := membership.Join(groupID, userID, existing, time.Now())
	if err != nil {
		return nil, err
	}
	if err := upsertMember(ctx, tx, joined); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &joined, nil
}

// PromoteMember raises targetID to admin on behalf of actorID.
func (s *Store) PromoteMember(ctx context.Context, groupID, actorID, targetID string) (*models.GroupMember, error) {
	return s.transitionRole(ctx, groupID, actorID, targetID, membership.Promote)
}

// DemoteMember lowers targetID back to member on behalf of actorID.
func (s *Store) DemoteMember(ctx context.Context, groupID, actorID, targetID string) (*models.GroupMember, error) {
	return s.transitionRole(ctx, groupID, actorID, targetID, membership.Demote)
}

func (s *Store) transitionRole(ctx context.Context, groupID, actorID, targetID string, transition func(actor, target models.GroupMember) (models.GroupMember, error)) (*models.GroupMember, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	actor, err := getMember(ctx, tx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	target, err := getMember(ctx, tx, groupID, targetID)
	if err != nil {
		return nil, err
	}

	updated, err := transition(*actor, *target)
	if err != nil {
		return nil, err
	}
	if err := upsertMember(ctx, tx, updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &updated, nil
}

// RemoveMember soft-deletes targetID's membership on behalf of actorID.
func (s *Store) RemoveMember(ctx context.Context, groupID, actorID, targetID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	actor, err := getMember(ctx, tx, groupID, actorID)
	if err != nil {
		return err
	}
	target, err := getMember(ctx, tx, groupID, targetID)
	if err != nil {
		return err
	}

	removed, err := membership.Remove(*actor, *target, time.Now())
	if err != nil {
		return err
	}
	if err := upsertMember(ctx, tx, removed); err != nil {
		return err
	}

	return tx.Commit()
}

// querier abstracts *sql.DB and *sql.Tx for reads used on both sides of a
// transaction boundary.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getMember(ctx context.Context, q querier, groupID, userID string) (*models.GroupMember, error) {
	row := q.QueryRowContext(ctx,
		"SELECT group_id, user_id, role, active, joined_at, left_at FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID)

	var (
		member models.GroupMember
		role   string
		active int
	)
	err := row.Scan(&member.GroupID, &member.UserID, &role, &active, &member.JoinedAt, &member.LeftAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	member.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, malformed("group_members", err)
	}
	member.Active = active != 0
	return &member, nil
}

func upsertMember(ctx context.Context, tx *sql.Tx, member models.GroupMember) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, role, active, joined_at, left_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			role = excluded.role,
			active = excluded.active,
			joined_at = excluded.joined_at,
			left_at = excluded.left_at`,
		member.GroupID, member.UserID, string(member.Role), boolToInt(member.Active), member.JoinedAt, member.LeftAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write member: %w", err)
	}
	return nil
}

func getGroupTx(ctx context.Context, tx *sql.Tx, groupID string) (*models.Group, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT id, name, visibility, owner_id, image_url, created_at FROM groups WHERE id = ?", groupID)
	return scanGroup(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		group      models.Group
		visibility string
	)
	err := row.Scan(&group.ID, &group.Name, &visibility, &group.OwnerID, &group.ImageURL, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Visibility, err = models.ParseVisibility(visibility)
	if err != nil {
		return nil, malformed("groups", err)
	}
	return &group, nil
}

func scanMember(rows *sql.Rows) (models.GroupMember, error) {
	var (
		member models.GroupMember
		role   string
		active int
	)
	if err := rows.Scan(&member.GroupID, &member.UserID, &role, &active, &member.JoinedAt, &member.LeftAt); err != nil {
		return models.GroupMember{}, fmt.Errorf("failed to scan member: %w", err)
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return models.GroupMember{}, malformed("group_members", err)
	}
	member.Role = parsed
	member.Active = active != 0
	return member, nil
}

func collectGroups(rows *sql.Rows) ([]models.Group, error) {
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
