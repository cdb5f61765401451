package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

// MatchConflictError provides details when a selector matches multiple tasks.
// It still satisfies errors.Is(err, ErrConflict).
type MatchConflictError struct {
	Reason  string
	Matches []Task
}

func (e *MatchConflictError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "conflict"
	}
	return "conflict: " + e.Reason
}

func (e *MatchConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Workspace is the docstore backend: one Markdown file with YAML frontmatter per task,
// filed under a directory per status column.
type Workspace struct {
	Root string
	mu   sync.Mutex
}

type column struct {
	Status Status
	Dir    string
}

var columns = []column{
	{Status: StatusTodo, Dir: "01-todo"},
	{Status: StatusInProgress, Dir: "02-in-progress"},
	{Status: StatusDone, Dir: "03-done"},
}

var _ Store = (*Workspace)(nil)

// Open opens a workspace rooted at root. It does not create files until Init is called.
func Open(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: store root is required", ErrInvalid)
	}
	return &Workspace{Root: ExpandHome(root)}, nil
}

func (w *Workspace) Init() error {
	for _, c := range columns {
		if err := os.MkdirAll(filepath.Join(w.tasksDir(), c.Dir), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) List(ctx context.Context) ([]Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listLocked(ctx)
}

func (w *Workspace) listLocked(ctx context.Context) ([]Task, error) {
	var out []Task
	for _, c := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := filepath.Join(w.tasksDir(), c.Dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !isTaskFile(e.Name()) {
				continue
			}
			t, err := readTaskFile(filepath.Join(dir, e.Name()))
			if err != nil {
				// ignore broken task documents
				continue
			}
			// the directory is authoritative for status
			t.Status = c.Status
			out = append(out, *t)
		}
	}
	SortTasks(out)
	return out, nil
}

func (w *Workspace) Get(ctx context.Context, id string) (*Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	path, err := w.findTaskPath(id)
	if err != nil {
		return nil, err
	}
	t, err := readTaskFile(path)
	if err != nil {
		return nil, err
	}
	w.reconcileTaskFromPath(t, path)
	return t, nil
}

func (w *Workspace) Create(ctx context.Context, in CreateInput) (*Task, error) {
	in, err := NormalizeCreate(in)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, err := w.listLocked(ctx)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	t := &Task{
		Schema:       1,
		ID:           NewID(),
		Title:        in.Title,
		Status:       in.Status,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
		TimeEstimate: in.TimeEstimate,
		Description:  in.Description,
		Tags:         in.Tags,
		Position:     NextPosition(existing),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	filename := fmt.Sprintf("%s__%s.md", t.ID, slugify(t.Title))
	path := filepath.Join(w.columnDir(t.Status), filename)
	if err := writeTaskFile(path, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (w *Workspace) Update(ctx context.Context, id string, p Patch) (*Task, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	oldPath, err := w.findTaskPath(id)
	if err != nil {
		return nil, err
	}
	t, err := readTaskFile(oldPath)
	if err != nil {
		return nil, err
	}
	w.reconcileTaskFromPath(t, oldPath)
	if err := p.Apply(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = timeNow()

	newPath := filepath.Join(w.columnDir(t.Status), filepath.Base(oldPath))
	if newPath != oldPath {
		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			return nil, err
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return nil, err
		}
	}
	if err := writeTaskFile(newPath, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (w *Workspace) Delete(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	path, err := w.findTaskPath(id)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// findTaskPath locates the document for an exact task id.
func (w *Workspace) findTaskPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	prefix := strings.ToLower(id) + "__"
	var hit string
	_ = filepath.WalkDir(w.tasksDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if strings.HasPrefix(strings.ToLower(d.Name()), prefix) && isTaskFile(d.Name()) {
			hit = path
			return fs.SkipAll
		}
		return nil
	})
	if hit == "" {
		return "", ErrNotFound
	}
	return hit, nil
}

func (w *Workspace) tasksDir() string {
	return filepath.Join(w.Root, "tasks")
}

func (w *Workspace) columnDir(s Status) string {
	for _, c := range columns {
		if c.Status == s {
			return filepath.Join(w.tasksDir(), c.Dir)
		}
	}
	return filepath.Join(w.tasksDir(), columns[0].Dir)
}

func (w *Workspace) reconcileTaskFromPath(t *Task, path string) {
	dir := filepath.Base(filepath.Dir(path))
	for _, c := range columns {
		if c.Dir == dir {
			t.Status = c.Status
			return
		}
	}
}

func isTaskFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md") && !strings.HasPrefix(name, ".tmp-")
}

func writeTaskFile(path string, t *Task) error {
	if t.Schema == 0 {
		t.Schema = 1
	}
	yamlBytes, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(yamlBytes)
	buf.WriteString("---\n\n")
	if body := strings.TrimSpace(t.Description); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return atomicWriteFile(path, buf.Bytes(), 0o644)
}

func readTaskFile(path string) (*Task, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, body, err := parseFrontmatter(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	t.Description = strings.TrimSpace(body)
	return t, nil
}

func parseFrontmatter(b []byte) (*Task, string, error) {
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return nil, "", fmt.Errorf("%w: missing frontmatter", ErrInvalid)
	}
	parts := strings.SplitN(s, "\n---\n", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("%w: invalid frontmatter delimiters", ErrInvalid)
	}
	// parts[0] includes leading ---\n
	yamlPart := strings.TrimPrefix(parts[0], "---\n")
	var t Task
	if err := yaml.Unmarshal([]byte(yamlPart), &t); err != nil {
		return nil, "", err
	}
	if t.Schema == 0 {
		t.Schema = 1
	}
	return &t, parts[1], nil
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

// NewID returns a fresh task id. Backends other than the docstore use it too.
func NewID() string {
	return "tsk_" + newULID()
}

func slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "x"
	}
	// Replace non-alnum with hyphen
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
		} else {
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "x"
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	for _, s := range list {
		if strings.ToLower(s) == v {
			return true
		}
	}
	return false
}

func truncate(s string, n int, ascii bool) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	if ascii {
		return string(r[:n-2]) + ".."
	}
	return string(r[:n-1]) + "…"
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
