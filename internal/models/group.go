package models

import "fmt"

// Role is a member's role within a group. It is a closed enumeration:
// transition rules live in the membership package and switch exhaustively
// on these constants.
type Role string

const (
	// RoleOwner is assigned to the creator at group creation and is never
	// reassigned. Exactly one active owner exists per group.
	RoleOwner Role = "owner"

	// RoleAdmin may create pools and remove regular members.
	RoleAdmin Role = "admin"

	// RoleMember is the default role granted on join.
	RoleMember Role = "member"
)

// ParseRole converts a storage string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Visibility gates group discovery, not membership mutation.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility converts a storage string into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(s), nil
	}
	return "", fmt.Errorf("unknown visibility %q", s)
}

// Group represents a circle of people who split expenses together.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g. "Viagem Floripa").
	Name string

	// Visibility controls whether the group shows up in discovery listings.
	Visibility Visibility

	// OwnerID is the creator of the group. Immutable once set.
	OwnerID string

	// ImageURL points at an externally hosted group image. Optional.
	ImageURL string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// GroupMember represents one user's membership in a group.
// At most one active row exists per (GroupID, UserID).
type GroupMember struct {
	// GroupID is the group this membership belongs to.
	GroupID string

	// UserID is the member's account.
	UserID string

	// Role is the member's current role.
	Role Role

	// Active is false once the member has been removed. Removed rows are
	// kept for history rather than deleted.
	Active bool

	// JoinedAt is the Unix timestamp when the member joined.
	JoinedAt int64

	// LeftAt is the Unix timestamp when the member was removed.
	// Zero while the membership is active.
	LeftAt int64
}
