package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/query"
	"github.com/kewsys/registry/internal/report"
	"github.com/kewsys/registry/internal/s3"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

// ParamFormat selects the export format
const ParamFormat = "format"

// Export is a rendered report ready to download
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
	// URL is a presigned link to the archived copy, empty when archiving is off or failed
	URL string
}

type ReportService interface {
	// Export renders every record matching the list filters of params, ignoring paging
	Export(ctx context.Context, entity string, params url.Values) (*Export, error)
}

type reportService struct {
	ServiceParams
	now func() time.Time
}

func NewReportService(params ServiceParams) ReportService {
	return &reportService{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportService) Export(ctx context.Context, entityName string, params url.Values) (*Export, error) {
	e, ok := s.Registry.Get(entityName)
	if !ok {
		return nil, ierr.NewErrorf("unknown entity %s", entityName).
			WithHint("Resource not found").
			Mark(ierr.ErrNotFound)
	}

	format, err := report.ParseFormat(params.Get(ParamFormat))
	if err != nil {
		return nil, err
	}

	q, err := query.Build(e, params, query.Options{AllowDeleted: isAdmin(ctx)})
	if err != nil {
		return nil, err
	}
	q.Filter.Offset = 0
	q.Filter.Limit = types.ExportMaxRows

	records, err := s.RecordProvider.For(e).List(ctx, q.Filter)
	if err != nil {
		return nil, err
	}

	rows := lo.Map(records, func(r *record.Record, _ int) map[string]any { return r.Snapshot() })
	data, err := s.Reports.Generate(rows, exportColumns(e), format)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &Export{
		Filename:    fmt.Sprintf("%s-%s.%s", e.Name, now.Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        len(rows),
	}
	out.URL = s.archive(ctx, e, format, out, now)

	s.Logger.Infow("report exported",
		"entity", e.Name,
		"format", format,
		"rows", out.Rows,
		"archived", out.URL != "")
	return out, nil
}

// archive copies the report to the bucket. Failures never fail the export.
func (s *reportService) archive(ctx context.Context, e *schema.Entity, format report.Format, out *Export, now time.Time) string {
	if s.S3 == nil {
		return ""
	}

	doc := s3.NewReportDocument(types.GenerateUUID(), e.Name, string(format), out.ContentType, out.Data, now)
	key, err := s.S3.UploadDocument(ctx, doc)
	if err != nil {
		s.Logger.Errorw("failed to archive report", "entity", e.Name, "error", err)
		return ""
	}
	link, err := s.S3.GetPresignedUrl(ctx, key)
	if err != nil {
		s.Logger.Warnw("failed to presign archived report", "key", key, "error", err)
		return ""
	}
	return link
}

func exportColumns(e *schema.Entity) []string {
	cols := make([]string, 0, len(e.Fields)+3)
	cols = append(cols, schema.FieldID)
	for _, f := range e.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, schema.FieldCreatedAt, schema.FieldUpdatedAt)
}
