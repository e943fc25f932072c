package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uuidArray binds ids for `= ANY($n::uuid[])`.
func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
