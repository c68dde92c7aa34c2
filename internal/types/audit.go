package types

import "time"

// AuditAction is the verb recorded for each mutating call
type AuditAction string

const (
	AuditActionCreate         AuditAction = "CREATE"
	AuditActionUpdate         AuditAction = "UPDATE"
	AuditActionDelete         AuditAction = "DELETE"
	AuditActionApprove        AuditAction = "APPROVE"
	AuditActionReject         AuditAction = "REJECT"
	AuditActionComplete       AuditAction = "COMPLETE"
	AuditActionReturn         AuditAction = "RETURN"
	AuditActionAdjustStock    AuditAction = "ADJUST_STOCK"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionToggleStatus   AuditAction = "TOGGLE_STATUS"
	AuditActionResetPassword  AuditAction = "RESET_PASSWORD"
	AuditActionChangePassword AuditAction = "CHANGE_PASSWORD"
)

// AuditActionForTransition maps a workflow operation onto its audit verb
func AuditActionForTransition(name TransitionName) AuditAction {
	switch name {
	case TransitionApprove:
		return AuditActionApprove
	case TransitionReject:
		return AuditActionReject
	case TransitionComplete:
		return AuditActionComplete
	case TransitionReturn:
		return AuditActionReturn
	}
	return AuditAction(string(name))
}

// AuditStatus is the outcome recorded with an audit entry
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusWarning AuditStatus = "warning"
)

// AuditLogFilter narrows audit log queries
type AuditLogFilter struct {
	Action    AuditAction
	Module    string
	UserID    string
	Status    AuditStatus
	StartDate *time.Time
	EndDate   *time.Time
	// Search matches username, action, module and message
	Search string
	Offset int
	Limit  int
}
