// Package permission maps an actor and an optional claim to capability grants.
// Every predicate is total and denies unknown roles.
package permission

import (
	"strings"

	"claimdesk/internal/domain/claim"
)

func hasRole(user claim.User, roles ...claim.Role) bool {
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// CanEditHeader governs status, assignee and classification changes.
func CanEditHeader(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin, claim.RoleQCManager)
}

func CanEditContainment(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin, claim.RoleQCManager, claim.RoleQCStaff)
}

// CanEditInvestigation covers traceability, root cause, corrective, preventive and
// effectiveness fields. Department staff qualify only for their own department's claims.
func CanEditInvestigation(user claim.User, c claim.Claim) bool {
	if user.Role == claim.RoleAdmin {
		return true
	}
	if user.Role != claim.RoleDepartmentStaff {
		return false
	}
	department := strings.TrimSpace(user.Department)
	return department != "" && department == strings.TrimSpace(c.ResponsibleDepartment)
}

func CanEditClosure(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin, claim.RoleQCManager, claim.RoleQCStaff)
}

// CanEditAnything is the "show edit controls" gate.
func CanEditAnything(user claim.User, c claim.Claim) bool {
	return CanEditHeader(user) ||
		CanEditContainment(user) ||
		CanEditInvestigation(user, c) ||
		CanEditClosure(user)
}

func CanCreateClaim(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin, claim.RoleQCManager, claim.RoleQCStaff)
}

func CanViewReports(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin, claim.RoleQCManager)
}

func CanViewSettings(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin)
}

// CanDeleteClaim is reserved; no delete operation exists.
func CanDeleteClaim(user claim.User) bool {
	return hasRole(user, claim.RoleAdmin)
}

// CanEditGroup dispatches a field group to its predicate.
func CanEditGroup(user claim.User, c claim.Claim, group claim.Group) bool {
	switch group {
	case claim.GroupHeader:
		return CanEditHeader(user)
	case claim.GroupContainment:
		return CanEditContainment(user)
	case claim.GroupInvestigation:
		return CanEditInvestigation(user, c)
	case claim.GroupClosure:
		return CanEditClosure(user)
	case claim.GroupGeneral:
		return CanEditAnything(user, c)
	}
	return false
}

// DeniedGroups returns the groups in groups the user may not edit, keeping order.
// The claim is the pre-edit value so a department reassignment cannot grant itself access.
func DeniedGroups(user claim.User, c claim.Claim, groups []claim.Group) []claim.Group {
	var denied []claim.Group
	for _, group := range groups {
		if !CanEditGroup(user, c, group) {
			denied = append(denied, group)
		}
	}
	return denied
}
