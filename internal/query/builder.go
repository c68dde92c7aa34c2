// Package query turns list query parameters into record filters and evaluates
// filter predicates against records held in memory.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kewsys/registry/internal/domain/record"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

const (
	ParamSearch         = "search"
	ParamSort           = "sort"
	ParamOrder          = "order"
	ParamPage           = "page"
	ParamLimit          = "limit"
	ParamStartDate      = "startDate"
	ParamEndDate        = "endDate"
	ParamIncludeDeleted = "includeDeleted"
)

// Options carries what the builder needs to know about the caller
type Options struct {
	// AllowDeleted is set for admins, who may pass includeDeleted=true
	AllowDeleted bool
	DefaultLimit int
	MaxLimit     int
}

// DefaultOptions are the list options for a non admin caller
func DefaultOptions() Options {
	return Options{DefaultLimit: types.DefaultLimit, MaxLimit: types.MaxLimit}
}

// Query is a built list request
type Query struct {
	Filter *record.Filter
	Page   types.PageRequest
}

// Build translates params into a filter over e. Unrecognised parameters are
// ignored, a recognised parameter with a malformed value is a validation error.
func Build(e *schema.Entity, params url.Values, opts Options) (*Query, error) {
	b := &builder{entity: e, params: params}

	for _, f := range e.Filters {
		b.add(f)
	}
	b.addRange(e.DateRange, params.Get(ParamStartDate), params.Get(ParamEndDate), ParamStartDate, ParamEndDate)
	b.addSearch(params.Get(ParamSearch))

	if len(b.violations) > 0 {
		return nil, schema.NewValidationError(b.violations)
	}

	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = types.DefaultLimit
	}
	if opts.MaxLimit == 0 {
		opts.MaxLimit = types.MaxLimit
	}
	page := types.ParsePageRequest(params.Get(ParamPage), params.Get(ParamLimit), opts.DefaultLimit, opts.MaxLimit)

	return &Query{
		Filter: &record.Filter{
			Predicate:      types.AndOf(b.preds...),
			Offset:         page.Offset(),
			Limit:          page.Limit,
			Sort:           SortField(e, params.Get(ParamSort)),
			Order:          SortOrder(params.Get(ParamOrder)),
			IncludeDeleted: opts.AllowDeleted && parseBool(params.Get(ParamIncludeDeleted)),
		},
		Page: page,
	}, nil
}

// SortField returns raw when e can sort by it, the entity default otherwise
func SortField(e *schema.Entity, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && e.IsSortable(raw) {
		return raw
	}
	return e.DefaultSort
}

// SortOrder normalises the order parameter, desc unless asc is asked for
func SortOrder(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), types.OrderAsc) {
		return types.OrderAsc
	}
	return types.OrderDesc
}

type builder struct {
	entity     *schema.Entity
	params     url.Values
	preds      []types.Predicate
	violations []schema.Violation
}

func (b *builder) fail(param, msg string) {
	b.violations = append(b.violations, schema.Violation{Field: param, Message: fmt.Sprintf("%s %s", param, msg)})
}

func (b *builder) add(f schema.Filter) {
	switch f.Kind {
	case schema.FilterExact:
		raw := strings.TrimSpace(b.params.Get(f.Param))
		if raw == "" {
			return
		}
		field, ok := b.entity.Field(f.Field)
		if !ok {
			return
		}
		v, msg := field.ParseParam(raw)
		if msg != "" {
			b.fail(f.Param, msg)
			return
		}
		b.preds = append(b.preds, types.Eq{Field: f.Field, Value: v})

	case schema.FilterContains:
		raw := strings.TrimSpace(b.params.Get(f.Param))
		if raw == "" {
			return
		}
		b.preds = append(b.preds, types.Contains{Field: f.Field, Value: raw})

	case schema.FilterRange:
		b.addRange(f.Field, b.params.Get(f.Param+"From"), b.params.Get(f.Param+"To"), f.Param+"From", f.Param+"To")

	case schema.FilterCompare:
		if f.Compare != nil && parseBool(b.params.Get(f.Param)) {
			b.preds = append(b.preds, *f.Compare)
		}
	}
}

// addRange adds an inclusive range on field. Either end may be absent. A date
// only upper bound on a timestamp field covers the whole day.
func (b *builder) addRange(field, rawFrom, rawTo, fromParam, toParam string) {
	rawFrom, rawTo = strings.TrimSpace(rawFrom), strings.TrimSpace(rawTo)
	if field == "" || (rawFrom == "" && rawTo == "") {
		return
	}

	typ := schema.TypeTimestamp
	if f, ok := b.entity.Field(field); ok {
		typ = f.Type
	} else if field != schema.FieldCreatedAt && field != schema.FieldUpdatedAt {
		return
	}

	var from, to any
	if rawFrom != "" {
		v, err := parseBound(b.entity, field, typ, rawFrom, false)
		if err != "" {
			b.fail(fromParam, err)
			return
		}
		from = v
	}
	if rawTo != "" {
		v, err := parseBound(b.entity, field, typ, rawTo, true)
		if err != "" {
			b.fail(toParam, err)
			return
		}
		to = v
	}
	b.preds = append(b.preds, types.Range{Field: field, From: from, To: to})
}

func parseBound(e *schema.Entity, field string, typ schema.FieldType, raw string, upper bool) (any, string) {
	switch typ {
	case schema.TypeTimestamp:
		t, err := types.ParseTime(raw)
		if err != nil {
			return nil, "must be a valid date"
		}
		if upper && types.IsDateOnly(raw) {
			t = types.EndOfDay(t)
		}
		return t, ""
	case schema.TypeDate:
		d, err := types.ParseDate(raw)
		if err != nil {
			return nil, "must be a valid date (YYYY-MM-DD)"
		}
		return d, ""
	}
	f, _ := e.Field(field)
	return f.ParseParam(raw)
}

func (b *builder) addSearch(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(b.entity.Search) == 0 {
		return
	}
	b.preds = append(b.preds, types.Or(lo.Map(b.entity.Search, func(field string, _ int) types.Predicate {
		return types.Contains{Field: field, Value: raw}
	})))
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
