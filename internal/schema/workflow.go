package schema

import (
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

// Transition is one status change of a workflow entity. The actor, timestamp,
// notes and reason fields are written in the same update as the status.
type Transition struct {
	Name types.TransitionName
	From []types.WorkflowStatus
	To   types.WorkflowStatus
	// Permission is the RBAC action guarding the transition
	Permission Action

	ActorField string
	TimeField  string
	// NotesField stores the optional notes body parameter
	NotesField string
	// ReasonField stores the reason body parameter, which is then required
	ReasonField string
	// Params are extra body parameters, each validated against its declared field
	Params []string
	// Required lists the Params that must be present
	Required []string
	// Set holds constant values written with the transition
	Set map[string]any
}

// Allows reports whether the transition may leave status
func (t *Transition) Allows(status types.WorkflowStatus) bool {
	return lo.Contains(t.From, status)
}

// Workflow is the state machine of an entity
type Workflow struct {
	Initial     types.WorkflowStatus
	Transitions []Transition
}

// Transition looks up a transition by name
func (w *Workflow) Transition(name types.TransitionName) (*Transition, bool) {
	for i := range w.Transitions {
		if w.Transitions[i].Name == name {
			return &w.Transitions[i], true
		}
	}
	return nil, false
}

// Statuses lists every status reachable in the machine, initial first
func (w *Workflow) Statuses() []types.WorkflowStatus {
	out := []types.WorkflowStatus{w.Initial}
	for _, t := range w.Transitions {
		out = append(out, t.From...)
		out = append(out, t.To)
	}
	return lo.Uniq(out)
}

// fields declares the status column and every metadata column written by transitions
func (w *Workflow) fields() []Field {
	statuses := lo.Map(w.Statuses(), func(s types.WorkflowStatus, _ int) string { return string(s) })
	out := []Field{{Name: FieldStatus, Type: TypeString, Enum: statuses, Default: string(w.Initial), ReadOnly: true}}

	seen := map[string]bool{FieldStatus: true}
	add := func(f Field) {
		if f.Name == "" || seen[f.Name] {
			return
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	for _, t := range w.Transitions {
		add(Field{Name: t.ActorField, Type: TypeRef, ReadOnly: true})
		add(Field{Name: t.TimeField, Type: TypeTimestamp, ReadOnly: true})
		add(Field{Name: t.NotesField, Type: TypeText, ReadOnly: true})
		add(Field{Name: t.ReasonField, Type: TypeText, ReadOnly: true})
	}
	return out
}

func approveTransition(params ...string) Transition {
	return Transition{
		Name:       types.TransitionApprove,
		From:       []types.WorkflowStatus{types.WorkflowStatusPending},
		To:         types.WorkflowStatusApproved,
		Permission: ActionApprove,
		ActorField: "approvedBy",
		TimeField:  "approvalDate",
		NotesField: "approvalNotes",
		Params:     params,
	}
}

func rejectTransition() Transition {
	return Transition{
		Name:        types.TransitionReject,
		From:        []types.WorkflowStatus{types.WorkflowStatusPending},
		To:          types.WorkflowStatusRejected,
		Permission:  ActionApprove,
		ActorField:  "rejectedBy",
		TimeField:   "rejectionDate",
		ReasonField: "rejectionReason",
	}
}

func completeTransition(params ...string) Transition {
	return Transition{
		Name:       types.TransitionComplete,
		From:       []types.WorkflowStatus{types.WorkflowStatusApproved},
		To:         types.WorkflowStatusCompleted,
		Permission: ActionApprove,
		ActorField: "completedBy",
		TimeField:  "completionDate",
		NotesField: "completionNotes",
		Params:     params,
	}
}

// approvalWorkflow is the pending -> approved | rejected machine shared by most entities
func approvalWorkflow(extra ...Transition) *Workflow {
	return &Workflow{
		Initial:     types.WorkflowStatusPending,
		Transitions: append([]Transition{approveTransition(), rejectTransition()}, extra...),
	}
}
