package service

import (
	"context"
	"strings"

	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

// Transition moves a workflow record along one edge of its state machine. The
// status and every metadata field are written in a single versioned update, a
// concurrent transition of the same row fails with a version conflict.
func (s *recordService) Transition(ctx context.Context, id string, name types.TransitionName, body map[string]any, ifMatch *int64) (*record.Record, error) {
	if s.entity.Workflow == nil {
		return nil, ierr.NewErrorf("%s has no workflow", s.entity.Name).
			WithHintf("%s does not support %s", s.entity.Module, name).
			Mark(ierr.ErrNotFound)
	}
	t, ok := s.entity.Workflow.Transition(name)
	if !ok {
		return nil, ierr.NewErrorf("%s has no %s transition", s.entity.Name, name).
			WithHintf("%s does not support %s", s.entity.Module, name).
			Mark(ierr.ErrNotFound)
	}

	current, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkIfMatch(current, ifMatch); err != nil {
		return nil, err
	}

	status := types.WorkflowStatus(current.String(schema.FieldStatus))
	if !t.Allows(status) {
		s.AuditSink.Record(ctx, audit.Entry{
			Action:     types.AuditActionForTransition(name),
			Module:     s.entity.Module,
			RecordID:   current.ID,
			RecordType: s.entity.Name,
			Status:     types.AuditStatusFailure,
			Message:    "cannot " + string(name) + " a " + string(status) + " record",
		})
		return nil, ierr.NewErrorf("cannot %s %s %s in status %s", name, s.entity.Name, id, status).
			WithHintf("Only %s records can be %s", joinStatuses(t.From), name.PastTense()).
			WithReportableDetails(map[string]any{
				"status":     status,
				"transition": name,
				"allowed":    t.From,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	params, err := s.entity.ValidateTransition(t, body)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	next.Values[schema.FieldStatus] = string(t.To)
	if t.ActorField != "" {
		next.Values[t.ActorField] = types.GetUserID(ctx)
	}
	if t.TimeField != "" {
		next.Values[t.TimeField] = now
	}
	for k, v := range params {
		next.Values[k] = v
	}
	for k, v := range t.Set {
		next.Values[k] = v
	}

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.Logger.Infow("record transitioned",
		"entity", s.entity.Name,
		"id", id,
		"transition", name,
		"from", status,
		"to", t.To,
		"user_id", types.GetUserID(ctx),
	)
	s.afterWrite(ctx, types.AuditActionForTransition(name), current, next, s.entity.EventName(string(name)), "")
	return next, nil
}

func joinStatuses(statuses []types.WorkflowStatus) string {
	return strings.Join(lo.Map(statuses, func(s types.WorkflowStatus, _ int) string { return string(s) }), " or ")
}
