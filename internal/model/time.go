package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// DateLayout is the wire and form format for due dates.
const DateLayout = "2006-01-02"

// timeLayouts are tried in order when decoding server timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTime parses any timestamp format the task API is known to emit.
// Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// decodeTime reads a JSON string or null into a time. Empty and null
// values decode to the zero time. A string in an unknown format is logged
// and also decodes to the zero time, with malformed set, so one bad row
// does not fail the whole response.
func decodeTime(data []byte) (t time.Time, malformed bool, err error) {
	if bytes.Equal(data, []byte("null")) {
		return time.Time{}, false, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, false, fmt.Errorf("decoding time: %w", err)
	}
	if s == "" {
		return time.Time{}, false, nil
	}
	v, err := ParseTime(s)
	if err != nil {
		log.Printf("ignoring timestamp: %v", err)
		return time.Time{}, true, nil
	}
	return v, false, nil
}

// Timestamp is a server-side instant. The zero value means absent.
type Timestamp struct {
	time.Time

	malformed bool
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	v, malformed, err := decodeTime(data)
	if err != nil {
		return err
	}
	t.Time = v
	t.malformed = malformed
	return nil
}

// Malformed reports whether the server sent a value that could not be
// parsed. Such a timestamp is zero but was not absent.
func (t Timestamp) Malformed() bool {
	return t.malformed
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Millis returns the instant in Unix milliseconds, or 0 when absent.
func (t Timestamp) Millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Date is a calendar day. The zero value means unset.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return Date{Time: t}, nil
}

// UnmarshalJSON implements json.Unmarshaler. Full timestamps are accepted
// and kept as-is so the instant is not lost for relevance comparisons.
func (d *Date) UnmarshalJSON(data []byte) error {
	v, _, err := decodeTime(data)
	if err != nil {
		return err
	}
	d.Time = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display formats the date for tables, "N/A" when unset.
func (d Date) Display() string {
	if d.IsZero() {
		return "N/A"
	}
	return d.Format("Jan 02, 2006")
}

// Millis returns the instant in Unix milliseconds, or 0 when unset.
func (d Date) Millis() int64 {
	if d.IsZero() {
		return 0
	}
	return d.UnixMilli()
}
