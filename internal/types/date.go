package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of date-only fields
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day, always held at UTC midnight
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC3339 timestamp
func ParseDate(s string) (Date, error) {
	t, err := ParseTime(s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// ParseTime accepts RFC3339 timestamps and plain dates
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// IsDateOnly reports whether s carries no time of day
func IsDateOnly(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// EndOfDay returns the last instant of t's calendar day
func EndOfDay(t time.Time) time.Time {
	return NewDate(t).Add(24*time.Hour - time.Nanosecond)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores dates in DATE columns
func (d Date) Value() (driver.Value, error) {
	return d.Format(DateLayout), nil
}
