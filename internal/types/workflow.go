package types

// WorkflowStatus is the status of a record that moves through an approval workflow
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusApproved  WorkflowStatus = "approved"
	WorkflowStatusRejected  WorkflowStatus = "rejected"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusReturned  WorkflowStatus = "returned"
)

func (s WorkflowStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may leave s
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusRejected, WorkflowStatusCompleted, WorkflowStatusReturned:
		return true
	}
	return false
}

// TransitionName names a workflow operation exposed over the API
type TransitionName string

const (
	TransitionApprove  TransitionName = "approve"
	TransitionReject   TransitionName = "reject"
	TransitionComplete TransitionName = "complete"
	TransitionReturn   TransitionName = "return"
)

// PastTense is the verb used in user facing messages, ex "approved"
func (t TransitionName) PastTense() string {
	switch t {
	case TransitionApprove:
		return "approved"
	case TransitionReject:
		return "rejected"
	case TransitionComplete:
		return "completed"
	case TransitionReturn:
		return "returned"
	}
	return string(t)
}
