package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const projectColumns = `id, devpost_id, name, devpost_url, team_members, group_id, position, has_presented, created_at`

func scanProject(row interface{ Scan(...interface{}) error }) (Project, error) {
	var i Project
	err := row.Scan(
		&i.ID,
		&i.DevpostID,
		&i.Name,
		&i.DevpostURL,
		pq.Array(&i.TeamMembers),
		&i.GroupID,
		&i.Position,
		&i.HasPresented,
		&i.CreatedAt,
	)
	return i, err
}

const createProject = `-- name: CreateProject :one
INSERT INTO projects (id, devpost_id, name, devpost_url, team_members, group_id, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + projectColumns

type CreateProjectParams struct {
	ID          uuid.UUID
	DevpostID   string
	Name        string
	DevpostURL  string
	TeamMembers []string
	GroupID     uuid.NullUUID
	Position    int32
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject,
		arg.ID,
		arg.DevpostID,
		arg.Name,
		arg.DevpostURL,
		pq.Array(arg.TeamMembers),
		arg.GroupID,
		arg.Position,
	)
	return scanProject(row)
}

const getProjectByDevpostID = `-- name: GetProjectByDevpostID :one
SELECT ` + projectColumns + ` FROM projects WHERE devpost_id = $1`

func (q *Queries) GetProjectByDevpostID(ctx context.Context, devpostID string) (Project, error) {
	row := q.db.QueryRowContext(ctx, getProjectByDevpostID, devpostID)
	return scanProject(row)
}

const listProjectsByGroup = `-- name: ListProjectsByGroup :many
SELECT ` + projectColumns + ` FROM projects
WHERE group_id = $1
ORDER BY position, id`

func (q *Queries) ListProjectsByGroup(ctx context.Context, groupID uuid.UUID) ([]Project, error) {
	return q.listProjects(ctx, listProjectsByGroup, groupID)
}

const listPresentedProjectsByGroup = `-- name: ListPresentedProjectsByGroup :many
SELECT ` + projectColumns + ` FROM projects
WHERE group_id = $1 AND has_presented
ORDER BY position, id`

func (q *Queries) ListPresentedProjectsByGroup(ctx context.Context, groupID uuid.UUID) ([]Project, error) {
	return q.listProjects(ctx, listPresentedProjectsByGroup, groupID)
}

const listProjects = `-- name: ListProjects :many
SELECT ` + projectColumns + ` FROM projects ORDER BY name, id`

func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	return q.listProjects(ctx, listProjects)
}

func (q *Queries) listProjects(ctx context.Context, query string, args ...interface{}) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		i, err := scanProject(rows)
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

const markProjectPresented = `-- name: MarkProjectPresented :execrows
UPDATE projects SET has_presented = TRUE WHERE id = $1 AND NOT has_presented`

// MarkProjectPresented returns the number of rows that flipped to presented.
func (q *Queries) MarkProjectPresented(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, markProjectPresented, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteAllProjects = `-- name: DeleteAllProjects :exec
DELETE FROM projects`

func (q *Queries) DeleteAllProjects(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllProjects)
	return err
}
