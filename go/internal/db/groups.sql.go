package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const groupColumns = `id, mentor_id, judge_ids, project_devpost_ids, presentations, currently_presenting, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (Group, error) {
	var i Group
	err := row.Scan(
		&i.ID,
		&i.MentorID,
		scanUUIDArray{dest: &i.JudgeIDs},
		pq.Array(&i.ProjectDevpostIDs),
		&i.Presentations,
		&i.CurrentlyPresenting,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createGroup = `-- name: CreateGroup :one
INSERT INTO groups (id, mentor_id, judge_ids)
VALUES ($1, $2, $3::uuid[])
RETURNING ` + groupColumns

type CreateGroupParams struct {
	ID       uuid.UUID
	MentorID uuid.UUID
	JudgeIDs []uuid.UUID
}

func (q *Queries) CreateGroup(ctx context.Context, arg CreateGroupParams) (Group, error) {
	row := q.db.QueryRowContext(ctx, createGroup, arg.ID, arg.MentorID, uuidArray(arg.JudgeIDs))
	return scanGroup(row)
}

const getGroup = `-- name: GetGroup :one
SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

func (q *Queries) GetGroup(ctx context.Context, id uuid.UUID) (Group, error) {
	row := q.db.QueryRowContext(ctx, getGroup, id)
	return scanGroup(row)
}

const getGroupForUpdate = `-- name: GetGroupForUpdate :one
SELECT ` + groupColumns + ` FROM groups WHERE id = $1 FOR UPDATE`

// GetGroupForUpdate locks the group row until the surrounding tx ends.
func (q *Queries) GetGroupForUpdate(ctx context.Context, id uuid.UUID) (Group, error) {
	row := q.db.QueryRowContext(ctx, getGroupForUpdate, id)
	return scanGroup(row)
}

const listGroups = `-- name: ListGroups :many
SELECT ` + groupColumns + ` FROM groups ORDER BY created_at, id`

func (q *Queries) ListGroups(ctx context.Context) ([]Group, error) {
	return q.listGroups(ctx, listGroups)
}

const listGroupsPresenting = `-- name: ListGroupsPresenting :many
SELECT ` + groupColumns + ` FROM groups
WHERE currently_presenting IS NOT NULL
ORDER BY created_at, id`

func (q *Queries) ListGroupsPresenting(ctx context.Context) ([]Group, error) {
	return q.listGroups(ctx, listGroupsPresenting)
}

func (q *Queries) listGroups(ctx context.Context, query string) ([]Group, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Group
	for rows.Next() {
		i, err := scanGroup(rows)
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

const countGroups = `-- name: CountGroups :one
SELECT count(*) FROM groups`

func (q *Queries) CountGroups(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countGroups)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const attachGroupProjects = `-- name: AttachGroupProjects :exec
UPDATE groups
SET project_devpost_ids = $2, presentations = $3, updated_at = now()
WHERE id = $1`

type AttachGroupProjectsParams struct {
	ID                uuid.UUID
	ProjectDevpostIDs []string
	Presentations     pqtype.NullRawMessage
}

func (q *Queries) AttachGroupProjects(ctx context.Context, arg AttachGroupProjectsParams) error {
	_, err := q.db.ExecContext(ctx, attachGroupProjects, arg.ID, pq.Array(arg.ProjectDevpostIDs), arg.Presentations)
	return err
}

const updateGroupPresentations = `-- name: UpdateGroupPresentations :exec
UPDATE groups
SET presentations = $2, currently_presenting = $3, updated_at = now()
WHERE id = $1`

type UpdateGroupPresentationsParams struct {
	ID                  uuid.UUID
	Presentations       pqtype.NullRawMessage
	CurrentlyPresenting sql.NullString
}

func (q *Queries) UpdateGroupPresentations(ctx context.Context, arg UpdateGroupPresentationsParams) error {
	_, err := q.db.ExecContext(ctx, updateGroupPresentations, arg.ID, arg.Presentations, arg.CurrentlyPresenting)
	return err
}

const deleteAllGroups = `-- name: DeleteAllGroups :exec
DELETE FROM groups`

func (q *Queries) DeleteAllGroups(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllGroups)
	return err
}
