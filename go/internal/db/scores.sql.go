package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const scoreColumns = `id, project_id, judge_id, criteria, submitted_at`

func scanScore(row interface{ Scan(...interface{}) error }) (Score, error) {
	var i Score
	err := row.Scan(
		&i.ID,
		&i.ProjectID,
		&i.JudgeID,
		&i.Criteria,
		&i.SubmittedAt,
	)
	return i, err
}

const upsertScore = `-- name: UpsertScore :one
INSERT INTO scores (id, project_id, judge_id, criteria, submitted_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (project_id, judge_id)
DO UPDATE SET criteria = EXCLUDED.criteria, submitted_at = EXCLUDED.submitted_at
RETURNING ` + scoreColumns

type UpsertScoreParams struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	JudgeID     uuid.UUID
	Criteria    json.RawMessage
	SubmittedAt time.Time
}

func (q *Queries) UpsertScore(ctx context.Context, arg UpsertScoreParams) (Score, error) {
	row := q.db.QueryRowContext(ctx, upsertScore, arg.ID, arg.ProjectID, arg.JudgeID, arg.Criteria, arg.SubmittedAt)
	return scanScore(row)
}

const listScoresByProjects = `-- name: ListScoresByProjects :many
SELECT ` + scoreColumns + ` FROM scores
WHERE project_id = ANY($1::uuid[])
ORDER BY submitted_at, id`

func (q *Queries) ListScoresByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]Score, error) {
	return q.listScores(ctx, listScoresByProjects, uuidArray(projectIDs))
}

const listScoresByJudge = `-- name: ListScoresByJudge :many
SELECT ` + scoreColumns + ` FROM scores
WHERE judge_id = $1
ORDER BY submitted_at, id`

func (q *Queries) ListScoresByJudge(ctx context.Context, judgeID uuid.UUID) ([]Score, error) {
	return q.listScores(ctx, listScoresByJudge, judgeID)
}

const listScores = `-- name: ListScores :many
SELECT ` + scoreColumns + ` FROM scores ORDER BY submitted_at, id`

func (q *Queries) ListScores(ctx context.Context) ([]Score, error) {
	return q.listScores(ctx, listScores)
}

func (q *Queries) listScores(ctx context.Context, query string, args ...interface{}) ([]Score, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Score
	for rows.Next() {
		i, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllScores = `-- name: DeleteAllScores :exec
DELETE FROM scores`

func (q *Queries) DeleteAllScores(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllScores)
	return err
}
