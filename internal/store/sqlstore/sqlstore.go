// Package sqlstore keeps tasks in a single SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	due_date TEXT NOT NULL DEFAULT '',
	time_estimate INTEGER,
	tags TEXT NOT NULL DEFAULT '[]',
	position INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, position);
`

const taskColumns = `id, title, description, status, priority, due_date, time_estimate, tags, position, created_at, updated_at`

type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (and migrates) the database at path, creating its directory if needed.
func Open(path string) (*Store, error) {
	path = store.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) List(ctx context.Context) ([]store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx)
}

func (s *Store) listLocked(ctx context.Context) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var out []store.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	store.SortTasks(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

func (s *Store) getLocked(ctx context.Context, id string) (*store.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", store.ErrNotFound, id)
	}
	return t, err
}

func (s *Store) Create(ctx context.Context, in store.CreateInput) (*store.Task, error) {
	in, err := store.NormalizeCreate(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.listLocked(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &store.Task{
		Schema:       1,
		ID:           store.NewID(),
		Title:        in.Title,
		Status:       in.Status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		TimeEstimate: in.TimeEstimate,
		Description:  in.Description,
		Tags:         in.Tags,
		Position:     store.NextPosition(existing),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		nullableInt(t.TimeEstimate), tags, t.Position, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p store.Patch) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
		due_date = ?, time_estimate = ?, tags = ?, position = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate,
		nullableInt(t.TimeEstimate), tags, t.Position, t.UpdatedAt, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", store.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*store.Task, error) {
	var (
		t        store.Task
		status   string
		priority string
		estimate sql.NullInt64
		tags     string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &t.DueDate,
		&estimate, &tags, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Schema = 1
	t.Status = store.Status(status)
	t.Priority = store.Priority(priority)
	if estimate.Valid {
		v := int(estimate.Int64)
		t.TimeEstimate = &v
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for %s: %w", t.ID, err)
	}
	return &t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
