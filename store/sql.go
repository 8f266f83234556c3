package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-api/api"
)

var createTableSQL = map[string]string{
	DriverPostgres: `
CREATE TABLE IF NOT EXISTS todos (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE
);`,
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE
);`,
}

// SQLStore keeps todos in a single "todos" table. The queries are written so
// that both lib/pq and go-sqlite3 accept them.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// Migrate creates the todos table if it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ddl, ok := createTableSQL[s.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.driver)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}

func (s *SQLStore) FindAll(ctx context.Context) ([]api.Todo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, completed FROM todos ORDER BY id")
	if err != nil {
		return nil, err // handler decides the status code
	}
	defer rows.Close()

	todos := []api.Todo{}
	for rows.Next() {
		var t api.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (api.Todo, error) {
	var t api.Todo
	err := s.db.QueryRowContext(ctx, "SELECT id, title, completed FROM todos WHERE id = $1", id).
		Scan(&t.ID, &t.Title, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Todo{}, api.ErrNotFound
	}
	if err != nil {
		return api.Todo{}, err
	}
	return t, nil
}

func (s *SQLStore) Save(ctx context.Context, todo api.Todo) (api.Todo, error) {
	var row *sql.Row
	if todo.ID == 0 {
		row = s.db.QueryRowContext(ctx,
			`INSERT INTO todos (title, completed) VALUES ($1, $2) RETURNING id, title, completed`,
			todo.Title, todo.Completed)
	} else {
		row = s.db.QueryRowContext(ctx,
			`INSERT INTO todos (id, title, completed) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET title = excluded.title, completed = excluded.completed
			 RETURNING id, title, completed`,
			todo.ID, todo.Title, todo.Completed)
	}

	var saved api.Todo
	if err := row.Scan(&saved.ID, &saved.Title, &saved.Completed); err != nil {
		return api.Todo{}, err
	}

	// An explicit id does not move the postgres sequence; bump it so later
	// inserts cannot collide. sqlite's AUTOINCREMENT tracks this itself.
	if todo.ID != 0 && s.driver == DriverPostgres {
		if _, err := s.db.ExecContext(ctx,
			`SELECT setval('todos_id_seq', $1) WHERE $1 >= (SELECT last_value FROM todos_id_seq)`,
			saved.ID); err != nil {
			return api.Todo{}, err
		}
	}
	return saved, nil
}

func (s *SQLStore) DeleteByID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	return err
}
