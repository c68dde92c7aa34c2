package types

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "plain date",
			input: "2024-03-15",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 with offset is normalised to utc",
			input: "2024-03-15T10:30:00+08:00",
			want:  time.Date(2024, 3, 15, 2, 30, 0, 0, time.UTC),
		},
		{
			name:  "fractional seconds",
			input: "2024-03-15T10:30:00.250Z",
			want:  time.Date(2024, 3, 15, 10, 30, 0, 250000000, time.UTC),
		},
		{
			name:  "no zone",
			input: " 2024-03-15T10:30:00 ",
			want:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:    "day out of range",
			input:   "2024-02-30",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDateTruncates(t *testing.T) {
	d, err := ParseDate("2024-03-15T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", d.String())
	assert.Equal(t, 0, d.Hour())
}

func TestIsDateOnly(t *testing.T) {
	assert.True(t, IsDateOnly("2024-03-15"))
	assert.False(t, IsDateOnly("2024-03-15T00:00:00Z"))
	assert.False(t, IsDateOnly(""))
}

func TestEndOfDay(t *testing.T) {
	end := EndOfDay(time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 999999999, time.UTC), end)
	assert.True(t, end.Before(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)))
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		On Date `json:"on"`
	}

	b, err := jsoniter.Marshal(wrapper{On: NewDate(time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2024-01-02"}`, string(b))

	var w wrapper
	require.NoError(t, jsoniter.Unmarshal([]byte(`{"on":"2023-12-31"}`), &w))
	assert.Equal(t, "2023-12-31", w.On.String())

	var empty wrapper
	require.NoError(t, jsoniter.Unmarshal([]byte(`{"on":null}`), &empty))
	assert.True(t, empty.On.IsZero())

	assert.Error(t, jsoniter.Unmarshal([]byte(`{"on":"31/12/2023"}`), &w))
}

func TestDateValue(t *testing.T) {
	v, err := NewDate(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", v)
}
