package report

import (
	"testing"
	"time"

	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []map[string]any {
	return []map[string]any{
		{
			"assetCode":     "A2099-001",
			"assetName":     "Test Laptop, 14\"",
			"purchasePrice": decimal.NewFromInt(2000),
			"purchaseDate":  types.NewDate(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			"notes":         nil,
		},
	}
}

func TestGenerateCSV(t *testing.T) {
	data, err := NewGenerator().Generate(sampleRows(), []string{"assetCode", "assetName", "purchasePrice", "purchaseDate", "notes"}, FormatCSV)
	require.NoError(t, err)

	want := "assetCode,assetName,purchasePrice,purchaseDate,notes\n" +
		"A2099-001,\"Test Laptop, 14\"\"\",2000.00,2025-01-01,\n"
	assert.Equal(t, want, string(data))
}

func TestGenerateJSONSelectsColumns(t *testing.T) {
	data, err := NewGenerator().Generate(sampleRows(), []string{"assetCode", "purchaseDate"}, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"assetCode":"A2099-001","purchaseDate":"2025-01-01"}]`, string(data))
}

func TestGenerateEmpty(t *testing.T) {
	data, err := NewGenerator().Generate(nil, []string{"id"}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
