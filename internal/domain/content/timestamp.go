package content

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout matches JavaScript's Date.toISOString, which is what the
// catalog files have always carried.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp keeps the raw text it was read from so that a value loaded from an
// existing catalog is written back byte for byte.
type Timestamp struct {
	t   time.Time
	raw string
}

func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC().Truncate(time.Millisecond)
	return Timestamp{t: t, raw: t.Format(TimestampLayout)}
}

// ParseTimestamp never fails: unparsable text is kept verbatim with a zero time.
func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.DateTime,
		"2006-01-02 15:04",
		time.DateOnly,
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{t: t, raw: raw}
		}
	}
	return Timestamp{raw: raw}
}

func (ts Timestamp) Time() time.Time { return ts.t }
func (ts Timestamp) String() string  { return ts.raw }
func (ts Timestamp) IsZero() bool    { return ts.raw == "" }

// Before compares parsed times; unparsable values sort as the zero time.
func (ts Timestamp) Before(o Timestamp) bool {
	return ts.t.Before(o.t)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.raw)
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*ts = ParseTimestamp(s)
	return nil
}

// Times is the pair produced by the timestamp resolver.
type Times struct {
	CreatedAt  Timestamp
	ModifiedAt Timestamp
}
