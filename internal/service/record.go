package service

import (
	"context"
	"net/url"
	"time"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/query"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

// RecordService serves the CRUD and workflow operations of one registry entity
type RecordService interface {
	Entity() *schema.Entity

	List(ctx context.Context, params url.Values) (*RecordList, error)
	// Get returns a soft deleted row only to an admin asking for it
	Get(ctx context.Context, id string, includeDeleted bool) (*record.Record, error)
	Create(ctx context.Context, payload map[string]any) (*record.Record, error)
	// Update applies a partial payload. A non nil ifMatch must equal the stored version.
	Update(ctx context.Context, id string, payload map[string]any, ifMatch *int64) (*record.Record, error)
	Delete(ctx context.Context, id string) error

	Transition(ctx context.Context, id string, name types.TransitionName, body map[string]any, ifMatch *int64) (*record.Record, error)

	Stats(ctx context.Context) (map[string]any, error)
	Breakdown(ctx context.Context, groupField, sumField string) ([]dto.GroupBreakdown, error)
}

// RecordList is one page of records
type RecordList struct {
	Items      []*record.Record
	Pagination types.PaginationResponse
}

type recordService struct {
	ServiceParams
	entity *schema.Entity
	repo   record.Repository
	now    func() time.Time
}

func NewRecordService(params ServiceParams, entity *schema.Entity) RecordService {
	return newRecordService(params, entity)
}

func newRecordService(params ServiceParams, entity *schema.Entity) *recordService {
	return &recordService{
		ServiceParams: params,
		entity:        entity,
		repo:          params.RecordProvider.For(entity),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RecordServices indexes a RecordService per registered entity name
type RecordServices map[string]RecordService

func NewRecordServices(params ServiceParams) RecordServices {
	out := make(RecordServices, len(params.Registry.All()))
	for _, e := range params.Registry.All() {
		out[e.Name] = NewRecordService(params, e)
	}
	return out
}

// For returns the service of the entity called name
func (r RecordServices) For(name string) (RecordService, bool) {
	svc, ok := r[name]
	return svc, ok
}

func (s *recordService) Entity() *schema.Entity {
	return s.entity
}

func (s *recordService) List(ctx context.Context, params url.Values) (*RecordList, error) {
	q, err := query.Build(s.entity, params, query.Options{
		AllowDeleted: isAdmin(ctx),
		DefaultLimit: types.DefaultLimit,
		MaxLimit:     types.MaxLimit,
	})
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	items := make([]*record.Record, 0)
	if total > q.Filter.Offset {
		items, err = s.repo.List(ctx, q.Filter)
		if err != nil {
			return nil, err
		}
	}

	s.attachRelations(ctx, items)
	return &RecordList{
		Items:      items,
		Pagination: types.NewPaginationResponse(q.Page, total),
	}, nil
}

func (s *recordService) Get(ctx context.Context, id string, includeDeleted bool) (*record.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsDeleted() && !(includeDeleted && isAdmin(ctx)) {
		return nil, s.notFound(id)
	}

	s.attachRelations(ctx, []*record.Record{rec})
	return rec, nil
}

func (s *recordService) Create(ctx context.Context, payload map[string]any) (*record.Record, error) {
	values, err := s.entity.Validate(payload, schema.ModeCreate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.entity.ApplyDefaults(values, func() any { return now })
	if s.entity.Owner != "" {
		values[s.entity.Owner] = types.GetUserID(ctx)
	}
	if err := s.transform(values); err != nil {
		return nil, err
	}

	rec := record.New(types.GenerateUUID(), values, now)
	if err := s.checkUnique(ctx, rec); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("record created", "entity", s.entity.Name, "id", rec.ID, "user_id", types.GetUserID(ctx))
	s.afterWrite(ctx, types.AuditActionCreate, nil, rec, s.entity.EventName("created"), "")
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, id string, payload map[string]any, ifMatch *int64) (*record.Record, error) {
	current, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkIfMatch(current, ifMatch); err != nil {
		return nil, err
	}

	values, err := s.entity.Validate(payload, schema.ModeUpdate)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	for k, v := range values {
		next.Values[k] = v
	}
	if err := s.transform(next.Values); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, next); err != nil {
		return nil, err
	}

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, types.AuditActionUpdate, current, next, s.entity.EventName("updated"), "")
	return next, nil
}

func (s *recordService) Delete(ctx context.Context, id string) error {
	current, err := s.getLive(ctx, id)
	if err != nil {
		return err
	}

	if s.entity.SoftDeletes() {
		next := current.Clone()
		next.DeletedAt = lo.ToPtr(s.now())
		if err := s.save(ctx, next); err != nil {
			return err
		}
	} else {
		err = s.DB.WithTx(ctx, func(ctx context.Context) error {
			return s.repo.Delete(ctx, id)
		})
		if err != nil {
			return err
		}
	}

	s.Logger.Infow("record deleted", "entity", s.entity.Name, "id", id, "soft", s.entity.SoftDeletes())
	s.afterWrite(ctx, types.AuditActionDelete, current, nil, s.entity.EventName("deleted"), "")
	return nil
}

// getLive returns the row unless it is missing or soft deleted
func (s *recordService) getLive(ctx context.Context, id string) (*record.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsDeleted() {
		return nil, s.notFound(id)
	}
	return rec, nil
}

// save writes next inside a transaction, guarded by the version it was read at
func (s *recordService) save(ctx context.Context, next *record.Record) error {
	next.UpdatedAt = s.now()
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, next)
	})
}

// afterWrite runs the fire and forget steps of a successful mutation
func (s *recordService) afterWrite(ctx context.Context, action types.AuditAction, before, after *record.Record, event, message string) {
	s.invalidateStats(ctx)

	entry := audit.Entry{
		Action:     action,
		Module:     s.entity.Module,
		RecordType: s.entity.Name,
		Message:    message,
	}
	var payload any
	if before != nil {
		entry.RecordID = before.ID
		entry.OldValue = before.Snapshot()
		payload = map[string]any{schema.FieldID: before.ID}
	}
	if after != nil {
		entry.RecordID = after.ID
		entry.NewValue = after.Snapshot()
		payload = after
	}
	s.AuditSink.Record(ctx, entry)
	s.Notifier.Emit(ctx, event, payload)

	if after != nil {
		s.fireAlerts(ctx, before, after)
	}
}

// fireAlerts emits an alert when its condition starts to hold
func (s *recordService) fireAlerts(ctx context.Context, before, after *record.Record) {
	for _, alert := range s.entity.Alerts {
		if !alert.Condition(after.Values) {
			continue
		}
		if before != nil && alert.Condition(before.Values) {
			continue
		}
		s.Logger.Infow("alert raised", "event", alert.Event, "entity", s.entity.Name, "id", after.ID)
		s.Notifier.Emit(ctx, alert.Event, after)
	}
}

func (s *recordService) transform(values map[string]any) error {
	for _, t := range s.entity.Transforms {
		if err := t(values); err != nil {
			return err
		}
	}
	return nil
}

// checkUnique looks for another row holding any unique value of rec. Soft deleted
// rows count, the column constraint covers them too.
func (s *recordService) checkUnique(ctx context.Context, rec *record.Record) error {
	for _, f := range s.entity.UniqueFields() {
		v := rec.Values[f.Name]
		if v == nil {
			continue
		}
		others, err := s.repo.List(ctx, &record.Filter{
			Predicate:      types.Eq{Field: f.Name, Value: v},
			Limit:          2,
			IncludeDeleted: true,
		})
		if err != nil {
			return err
		}
		if lo.ContainsBy(others, func(o *record.Record) bool { return o.ID != rec.ID }) {
			return ierr.NewErrorf("%s with %s %v already exists", s.entity.Name, f.Name, v).
				WithHintf("%s %s already exists", s.entity.Module, f.Name).
				WithReportableDetails(map[string]any{"field": f.Name}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return nil
}

func (s *recordService) checkIfMatch(rec *record.Record, ifMatch *int64) error {
	if ifMatch == nil || *ifMatch == rec.Version {
		return nil
	}
	return ierr.NewErrorf("%s %s is at version %d, not %d", s.entity.Name, rec.ID, rec.Version, *ifMatch).
		WithHint("The record was changed by someone else, reload it and try again").
		WithReportableDetails(map[string]any{"id": rec.ID, "version": rec.Version}).
		Mark(ierr.ErrVersionConflict)
}

// attachRelations eagerly loads the declared relations. Dangling references
// and lookup failures leave the relation out.
func (s *recordService) attachRelations(ctx context.Context, recs []*record.Record) {
	if len(recs) == 0 {
		return
	}

	for _, rel := range s.entity.Relations {
		ids := lo.Uniq(lo.FilterMap(recs, func(r *record.Record, _ int) (string, bool) {
			id := r.String(rel.Field)
			return id, types.IsValidUUID(id)
		}))
		if len(ids) == 0 {
			continue
		}

		views, err := s.loadRelation(ctx, rel, ids)
		if err != nil {
			s.Logger.Warnw("failed to load relation", "entity", s.entity.Name, "relation", rel.Name, "error", err)
			continue
		}
		for _, r := range recs {
			view, ok := views[r.String(rel.Field)]
			if !ok {
				continue
			}
			if r.Related == nil {
				r.Related = make(map[string]any, len(s.entity.Relations))
			}
			r.Related[rel.Name] = view
		}
	}
}

func (s *recordService) loadRelation(ctx context.Context, rel schema.Relation, ids []string) (map[string]any, error) {
	if rel.Target == schema.RelationUsers {
		users, err := s.UserRepo.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(users))
		for _, u := range users {
			out[u.ID] = u.Public()
		}
		return out, nil
	}

	target, ok := s.Registry.Get(rel.Target)
	if !ok {
		return nil, ierr.NewErrorf("unknown relation target %s", rel.Target).Mark(ierr.ErrSystem)
	}
	related, err := s.RecordProvider.For(target).List(ctx, &record.Filter{
		Predicate: types.In{Field: schema.FieldID, Values: lo.ToAnySlice(ids)},
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(related))
	for _, r := range related {
		out[r.ID] = summary(target, r)
	}
	return out, nil
}

// summary is the short view of a related record: its id, unique keys and search fields
func summary(e *schema.Entity, r *record.Record) map[string]any {
	out := map[string]any{schema.FieldID: r.ID}
	for _, f := range e.UniqueFields() {
		out[f.Name] = r.Values[f.Name]
	}
	for _, name := range e.Search {
		out[name] = r.Values[name]
	}
	return out
}

func (s *recordService) notFound(id string) error {
	return ierr.NewErrorf("%s %s not found", s.entity.Name, id).
		WithHintf("%s not found", s.entity.Module).
		WithReportableDetails(map[string]any{"id": id}).
		Mark(ierr.ErrNotFound)
}

func isAdmin(ctx context.Context) bool {
	return types.GetRole(ctx) == types.RoleAdmin
}
