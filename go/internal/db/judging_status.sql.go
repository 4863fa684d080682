package db

import (
	"context"
)

const getJudgingStatus = `-- name: GetJudgingStatus :one
SELECT active, updated_at FROM judging_status WHERE id = 1`

func (q *Queries) GetJudgingStatus(ctx context.Context) (JudgingStatus, error) {
	row := q.db.QueryRowContext(ctx, getJudgingStatus)
	var i JudgingStatus
	err := row.Scan(&i.Active, &i.UpdatedAt)
	return i, err
}

const setJudgingStatus = `-- name: SetJudgingStatus :one
INSERT INTO judging_status (id, active, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
RETURNING active, updated_at`

func (q *Queries) SetJudgingStatus(ctx context.Context, active bool) (JudgingStatus, error) {
	row := q.db.QueryRowContext(ctx, setJudgingStatus, active)
	var i JudgingStatus
	err := row.Scan(&i.Active, &i.UpdatedAt)
	return i, err
}
