package db

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, role, group_id, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Role,
		&i.GroupID,
		&i.CreatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, name, email, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  UserRole
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Name, arg.Email, arg.Role)
	return scanUser(row)
}

const getUser = `-- name: GetUser :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	return scanUser(row)
}

const listUsersByIDs = `-- name: ListUsersByIDs :many
SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`

func (q *Queries) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	return q.listUsers(ctx, listUsersByIDs, uuidArray(ids))
}

const listNonDirectorUsers = `-- name: ListNonDirectorUsers :many
SELECT ` + userColumns + ` FROM users
WHERE role <> 'director'
ORDER BY created_at, id`

func (q *Queries) ListNonDirectorUsers(ctx context.Context) ([]User, error) {
	return q.listUsers(ctx, listNonDirectorUsers)
}

const listUsersByRole = `-- name: ListUsersByRole :many
SELECT ` + userColumns + ` FROM users
WHERE role = $1
ORDER BY created_at, id`

func (q *Queries) ListUsersByRole(ctx context.Context, role UserRole) ([]User, error) {
	return q.listUsers(ctx, listUsersByRole, role)
}

func (q *Queries) listUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
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

const setUserGroup = `-- name: SetUserGroup :exec
UPDATE users SET group_id = $2 WHERE id = $1`

type SetUserGroupParams struct {
	ID      uuid.UUID
	GroupID uuid.NullUUID
}

func (q *Queries) SetUserGroup(ctx context.Context, arg SetUserGroupParams) error {
	_, err := q.db.ExecContext(ctx, setUserGroup, arg.ID, arg.GroupID)
	return err
}

const clearAllUserGroups = `-- name: ClearAllUserGroups :exec
UPDATE users SET group_id = NULL WHERE group_id IS NOT NULL`

func (q *Queries) ClearAllUserGroups(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearAllUserGroups)
	return err
}
