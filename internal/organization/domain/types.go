package domain

import "strings"

type Role string

const (
	RoleOwner         Role = "owner"
	RoleAdmin         Role = "admin"
	RoleEmployee      Role = "employee"
	RoleSubcontractor Role = "subcontractor"
)

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleOwner, RoleAdmin, RoleEmployee, RoleSubcontractor:
		return role, true
	default:
		return "", false
	}
}

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusSuspended MemberStatus = "suspended"
)

func ParseMemberStatus(raw string) (MemberStatus, bool) {
	status := MemberStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case MemberStatusActive, MemberStatusSuspended:
		return status, true
	default:
		return "", false
	}
}

// Capability names a membership flag.
type Capability string

const (
	CapCreateJobs        Capability = "can_create_jobs"
	CapEditAllJobs       Capability = "can_edit_all_jobs"
	CapCreateInvoices    Capability = "can_create_invoices"
	CapViewFinancials    Capability = "can_view_financials"
	CapApproveExpenses   Capability = "can_approve_expenses"
	CapApproveTimesheets Capability = "can_approve_timesheets"
)
