package commands

import (
	"errors"
	"slices"
)

// Platform permission bits, as computed for a member in a channel.
const (
	PermKickMembers     int64 = 1 << 1
	PermBanMembers      int64 = 1 << 2
	PermAdministrator   int64 = 1 << 3
	PermManageGuild     int64 = 1 << 5
	PermModerateMembers int64 = 1 << 40
)

var ErrNotAuthorized = errors.New("insufficient permissions")

// Guild member issuing or targeted by a command.
type Member struct {
	UserID string
	Tag    string
	// roles held in the guild
	RoleIDs []string
	// effective permission bits
	Permissions int64
}

func (m *Member) HasPermission(perm int64) bool {
	if m.Permissions&PermAdministrator != 0 {
		return true
	}
	return m.Permissions&perm == perm
}

func (m *Member) HasAnyRole(roleIDs []string) bool {
	for _, r := range m.RoleIDs {
		if slices.Contains(roleIDs, r) {
			return true
		}
	}
	return false
}

// Authorization policy for moderation commands.
type StaffPolicy struct {
	// user who is always authorized, regardless of roles or permissions
	OwnerID string
	// if non-empty, members must also hold one of these roles
	StaffRoleIDs []string
}

// Owner override; otherwise the member needs `perm`, and also a staff role if any are configured.
func (p StaffPolicy) EnsureStaff(m *Member, perm int64) error {
	if m == nil {
		return ErrNotAuthorized
	}
	if p.OwnerID != "" && m.UserID == p.OwnerID {
		return nil
	}
	if !m.HasPermission(perm) {
		return ErrNotAuthorized
	}
	if len(p.StaffRoleIDs) > 0 && !m.HasAnyRole(p.StaffRoleIDs) {
		return ErrNotAuthorized
	}
	return nil
}
