package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CategoryIndex is a jsonb map of media id to category name.
type CategoryIndex map[string]string

func (c *CategoryIndex) Scan(src any) error {
	out := CategoryIndex{}
	if err := scanJSON(src, &out); err != nil {
		return fmt.Errorf("CategoryIndex: %w", err)
	}
	*c = out
	return nil
}

func (c CategoryIndex) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return marshalJSON(c)
}

// UUIDList is an ordered jsonb array of ids.
type UUIDList []uuid.UUID

func (l *UUIDList) Scan(src any) error {
	out := UUIDList{}
	if err := scanJSON(src, &out); err != nil {
		return fmt.Errorf("UUIDList: %w", err)
	}
	*l = out
	return nil
}

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return marshalJSON(l)
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func marshalJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
