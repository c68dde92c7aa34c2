// Package report renders record lists into downloadable files
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat defaults to csv
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", ierr.NewErrorf("unsupported report format %q", raw).
		WithHintf("Format must be one of [%s, %s]", FormatCSV, FormatJSON).
		Mark(ierr.ErrValidation)
}

// ContentType is the MIME type served with f
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Generator renders rows into a report. Rows are flat field maps, columns
// select and order the fields written.
type Generator interface {
	Generate(rows []map[string]any, columns []string, format Format) ([]byte, error)
}

type generator struct{}

func NewGenerator() Generator {
	return &generator{}
}

func (g *generator) Generate(rows []map[string]any, columns []string, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return g.csv(rows, columns)
	case FormatJSON:
		return g.json(rows, columns)
	}
	return nil, ierr.NewErrorf("unsupported report format %q", format).
		Mark(ierr.ErrValidation)
}

func (g *generator) csv(rows []map[string]any, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, wrapErr(err)
	}
	line := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			line[i] = Cell(row[col])
		}
		if err := w.Write(line); err != nil {
			return nil, wrapErr(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, wrapErr(err)
	}
	return buf.Bytes(), nil
}

func (g *generator) json(rows []map[string]any, columns []string) ([]byte, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item := make(map[string]any, len(columns))
		for _, col := range columns {
			item[col] = row[col]
		}
		out = append(out, item)
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
	if err != nil {
		return nil, wrapErr(err)
	}
	return data, nil
}

// Cell formats a canonical field value for a CSV cell
func Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case decimal.Decimal:
		return val.StringFixed(2)
	case types.Date:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}

func wrapErr(err error) error {
	return ierr.WithError(err).
		WithHint("Failed to generate report").
		Mark(ierr.ErrSystem)
}
