// Package membership implements the group role model: who may join, who may
// promote or demote whom, and who may remove members.
//
// The functions are pure transition rules over models.GroupMember rows; the
// storage layer applies them inside transactions. Ownership is assigned once
// at group creation and never transfers.
package membership

import (
	"errors"
	"fmt"
	"time"

	"github.com/rachajunto/backend/internal/models"
)

var (
	// ErrAlreadyMember is returned when a user holds an active membership.
	ErrAlreadyMember = errors.New("user is already a member of this group")

	// ErrForbidden is returned when the actor's role does not permit the
	// operation.
	ErrForbidden = errors.New("actor is not allowed to perform this action")

	// ErrInvalidTransition is returned when the target's role cannot make
	// the requested transition.
	ErrInvalidTransition = errors.New("invalid role transition")

	// ErrNotActive is returned when the target membership has been removed.
	ErrNotActive = errors.New("membership is not active")
)

// NewOwner builds the owner membership row created alongside a group.
func NewOwner(groupID, userID string, now time.Time) models.GroupMember {
	return models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleOwner,
		Active:   true,
		JoinedAt: now.Unix(),
	}
}

// Join admits userID into the group as a regular member. existing is the
// user's current membership row for the group, if any; a soft-removed row is
// reactivated rather than duplicated.
func Join(groupID, userID string, existing *models.GroupMember, now time.Time) (models.GroupMember, error) {
	if existing != nil && existing.Active {
		return models.GroupMember{}, fmt.Errorf("%w: user %s in group %s", ErrAlreadyMember, userID, groupID)
	}
	return models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		Active:   true,
		JoinedAt: now.Unix(),
	}, nil
}

// Promote raises a regular member to admin. Only the owner may promote, and
// only a member can be promoted.
func Promote(actor, target models.GroupMember) (models.GroupMember, error) {
	if err := checkActive(actor, target); err != nil {
		return models.GroupMember{}, err
	}
	if actor.Role != models.RoleOwner {
		return models.GroupMember{}, fmt.Errorf("%w: only the owner may promote", ErrForbidden)
	}
	switch target.Role {
	case models.RoleMember:
		target.Role = models.RoleAdmin
		return target, nil
	case models.RoleAdmin, models.RoleOwner:
		return models.GroupMember{}, fmt.Errorf("%w: cannot promote a %s", ErrInvalidTransition, target.Role)
	default:
		return models.GroupMember{}, fmt.Errorf("%w: unknown role %q", ErrInvalidTransition, target.Role)
	}
}

// Demote lowers an admin back to member. Only the owner may demote.
func Demote(actor, target models.GroupMember) (models.GroupMember, error) {
	if err := checkActive(actor, target); err != nil {
		return models.GroupMember{}, err
	}
	if actor.Role != models.RoleOwner {
		return models.GroupMember{}, fmt.Errorf("%w: only the owner may demote", ErrForbidden)
	}
	switch target.Role {
	case models.RoleAdmin:
		target.Role = models.RoleMember
		return target, nil
	case models.RoleMember, models.RoleOwner:
		return models.GroupMember{}, fmt.Errorf("%w: cannot demote a %s", ErrInvalidTransition, target.Role)
	default:
		return models.GroupMember{}, fmt.Errorf("%w: unknown role %q", ErrInvalidTransition, target.Role)
	}
}

// Remove soft-deletes the target membership. Owners and admins may remove;
// the owner can never be removed and actors cannot remove themselves through
// this path.
func Remove(actor, target models.GroupMember, now time.Time) (models.GroupMember, error) {
	if err := checkActive(actor, target); err != nil {
		return models.GroupMember{}, err
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleAdmin {
		return models.GroupMember{}, fmt.Errorf("%w: %s may not remove members", ErrForbidden, actor.Role)
	}
	if target.Role == models.RoleOwner {
		return models.GroupMember{}, fmt.Errorf("%w: the owner cannot be removed", ErrForbidden)
	}
	if actor.UserID == target.UserID {
		return models.GroupMember{}, fmt.Errorf("%w: cannot remove yourself", ErrForbidden)
	}
	target.Active = false
	target.LeftAt = now.Unix()
	return target, nil
}

// CanManagePools reports whether the role may open pools in the group.
func CanManagePools(role models.Role) bool {
	return role == models.RoleOwner || role == models.RoleAdmin
}

func checkActive(actor, target models.GroupMember) error {
	if !actor.Active {
		return fmt.Errorf("%w: actor %s", ErrNotActive, actor.UserID)
	}
	if !target.Active {
		return fmt.Errorf("%w: target %s", ErrNotActive, target.UserID)
	}
	return nil
}
