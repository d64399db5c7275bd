package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/middleware"
	"github.com/rachajunto/backend/internal/models"
)

type createGroupRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=public private"`
	ImageURL   string `json:"image_url" validate:"omitempty,url"`
}

// CreateGroup creates a group owned by the authenticated user. The owner
// membership row is written in the same transaction as the group itself.
func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	group := &models.Group{
		Name:       req.Name,
		Visibility: models.Visibility(req.Visibility),
		OwnerID:    middleware.UserID(c),
		ImageURL:   req.ImageURL,
	}
	if err := h.store.CreateGroup(c.Context(), group); err != nil {
		return domainError(c, err)
	}

	slog.Info("group created", "group_id", group.ID, "owner_id", group.OwnerID)
	return c.Status(fiber.StatusCreated).JSON(toGroupResponse(group))
}

// ListGroups returns the authenticated user's groups, or public groups for
// discovery when ?discover=true.
func (h *Handler) ListGroups(c *fiber.Ctx) error {
	var (
		groups []models.Group
		err    error
	)
	if c.QueryBool("discover") {
		groups, err = h.store.ListPublicGroups(c.Context())
	} else {
		groups, err = h.store.ListGroupsForUser(c.Context(), middleware.UserID(c))
	}
	if err != nil {
		return domainError(c, err)
	}

	out := make([]groupResponse, len(groups))
	for i := range groups {
		out[i] = toGroupResponse(&groups[i])
	}
	return c.JSON(fiber.Map{"groups": out})
}

// GetGroup returns a group with its active members and open pools.
func (h *Handler) GetGroup(c *fiber.Ctx) error {
	ctx := c.Context()
	groupID := c.Params("groupId")

	group, err := h.store.GetGroup(ctx, groupID)
	if err != nil {
		return domainError(c, err)
	}
	members, err := h.store.ListMembers(ctx, groupID)
	if err != nil {
		return domainError(c, err)
	}
	pools, err := h.store.ListPoolsByGroup(ctx, groupID)
	if err != nil {
		return domainError(c, err)
	}

	memberOut := make([]memberResponse, len(members))
	for i := range members {
		memberOut[i] = toMemberResponse(&members[i])
	}
	poolOut := make([]poolResponse, len(pools))
	for i := range pools {
		poolOut[i] = toPoolResponse(&pools[i])
	}

	return c.JSON(fiber.Map{
		"group":   toGroupResponse(group),
		"members": memberOut,
		"pools":   poolOut,
	})
}

// JoinGroup adds the authenticated user to the group as a member.
func (h *Handler) JoinGroup(c *fiber.Ctx) error {
	member, err := h.store.JoinGroup(c.Context(), c.Params("groupId"), middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	slog.Info("member joined group", "group_id", member.GroupID, "user_id", member.UserID)
	return c.Status(fiber.StatusCreated).JSON(toMemberResponse(member))
}

// PromoteMember raises a member to admin. Only the group owner may do this.
func (h *Handler) PromoteMember(c *fiber.Ctx) error {
	member, err := h.store.PromoteMember(c.Context(), c.Params("groupId"), middleware.UserID(c), c.Params("userId"))
	if err != nil {
		return domainError(c, err)
	}
	slog.Info("member promoted", "group_id", member.GroupID, "user_id", member.UserID)
	return c.JSON(toMemberResponse(member))
}

// DemoteMember lowers an admin back to member. Only the group owner may do
// this.
func (h *Handler) DemoteMember(c *fiber.Ctx) error {
	member, err := h.store.DemoteMember(c.Context(), c.Params("groupId"), middleware.UserID(c), c.Params("userId"))
	if err != nil {
		return domainError(c, err)
	}
	slog.Info("member demoted", "group_id", member.GroupID, "user_id", member.UserID)
	return c.JSON(toMemberResponse(member))
}

// RemoveMember soft-removes a member from the group.
func (h *Handler) RemoveMember(c *fiber.Ctx) error {
	groupID := c.Params("groupId")
	targetID := c.Params("userId")
	if err := h.store.RemoveMember(c.Context(), groupID, middleware.UserID(c), targetID); err != nil {
		return domainError(c, err)
	}
	slog.Info("member removed", "group_id", groupID, "user_id", targetID)
	return c.SendStatus(fiber.StatusNoContent)
}
