package db

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uuidArray adapts []uuid.UUID to a Postgres uuid[] through pq's string arrays.
type uuidArray []uuid.UUID

func (a uuidArray) Value() (driver.Value, error) {
	strs := make([]string, len(a))
	for i, id := range a {
		strs[i] = id.String()
	}
	return pq.StringArray(strs).Value()
}

type scanUUIDArray struct {
	dest *[]uuid.UUID
}

func (s scanUUIDArray) Scan(src interface{}) error {
	var strs pq.StringArray
	if err := strs.Scan(src); err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(strs))
	for i, str := range strs {
		id, err := uuid.Parse(str)
		if err != nil {
			return fmt.Errorf("invalid uuid %q in array: %w", str, err)
		}
		ids[i] = id
	}
	*s.dest = ids
	return nil
}
