// Package backupid defines the identifier type for backup sets.
//
// A backup set is identified by its creation timestamp, which doubles as its
// directory name under the full/incr roots. The layout is fixed-width, so
// lexicographic order of directory names equals chronological order; that
// property is what makes "newest full backup" a reverse sort away and keeps
// incremental chains strictly ordered.
package backupid

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the timestamp layout used for backup directory names.
// Fixed-width, zero-padded, so string order equals time order.
const Layout = "20060102-150405"

// ID identifies one backup set (full or incremental) by its creation time.
type ID struct {
	t time.Time
}

// New creates an ID from a timestamp, truncated to second precision in UTC.
func New(t time.Time) ID {
	return ID{t: t.UTC().Truncate(time.Second)}
}

// Parse parses a directory name into an ID.
func Parse(name string) (ID, error) {
	t, err := time.Parse(Layout, name)
	if err != nil {
		return ID{}, fmt.Errorf("invalid backup id %q: %w", name, err)
	}
	return ID{t: t.UTC()}, nil
}

// String returns the directory name for this ID.
func (id ID) String() string {
	return id.t.Format(Layout)
}

// Time returns the creation timestamp the ID encodes.
func (id ID) Time() time.Time {
	return id.t
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id.t.IsZero()
}

// Before reports whether id was created before other.
func (id ID) Before(other ID) bool {
	return id.t.Before(other.t)
}

// Age returns how long ago the ID's timestamp lies relative to now.
func (id ID) Age(now time.Time) time.Duration {
	return now.Sub(id.t)
}

// Compare orders two IDs chronologically; it returns -1, 0 or +1.
// Suitable for slices.SortFunc.
func Compare(a, b ID) int {
	return a.t.Compare(b.t)
}

// MarshalJSON implements the json.Marshaler interface for ID.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("backup id should be a string, got %s", data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
