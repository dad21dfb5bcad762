package planner

import (
	"encoding/json"
	"fmt"

	"github.com/dbforge/xbak/pkg/util"
)

// Kind represents the kind of backup a run will take (full or incremental).
type Kind int

// Constants for Kind, acting as an enum.
const (
	Full Kind = iota
	Incremental
)

var kindToString = map[Kind]string{
	Full:        "full",
	Incremental: "incremental",
}
var stringToKind = map[string]Kind{}

func init() {
	stringToKind = util.InvertMap(kindToString)
}

// String returns the string representation of a Kind.
func (k Kind) String() string {
	if str, ok := kindToString[k]; ok {
		return str
	}
	return fmt.Sprintf("unknown_backup_kind(%d)", k)
}

// ParseKind parses a string and returns the corresponding Kind.
func ParseKind(s string) (Kind, error) {
	if kind, ok := stringToKind[s]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("invalid backup kind: %q. Must be 'full' or 'incremental'", s)
}

// MarshalJSON implements the json.Marshaler interface for Kind.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("Kind should be a string, got %s", data)
	}

	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
