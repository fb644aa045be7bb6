package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no row matches
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique column would collide
	ErrDuplicate = errors.New("record already exists")
)

const projectColumns = `id, title, slug, description, image, link_demo, link_github, stacks, content,
	is_show, is_featured, created_at, updated_at`

const messageColumns = `id, name, email, image, message, is_reply, reply_to, is_show, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var stacks string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Image, &p.LinkDemo, &p.LinkGithub, &stacks, &p.Content,
		&p.IsShow, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stacks), &p.Stacks); err != nil {
		return nil, fmt.Errorf("failed to decode stacks for project %d: %w", p.ID, err)
	}
	if p.Stacks == nil {
		p.Stacks = []string{}
	}
	return &p, nil
}

func scanMessage(row scanner) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Image, &m.Message, &m.IsReply, &m.ReplyTo, &m.IsShow, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func encodeStacks(stacks []string) (string, error) {
	if stacks == nil {
		stacks = []string{}
	}
	data, err := json.Marshal(stacks)
	if err != nil {
		return "", fmt.Errorf("failed to encode stacks: %w", err)
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ListProjects returns projects featured first, then newest first
func (r *Repository) ListProjects(ctx context.Context, includeHidden bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeHidden {
		query += ` WHERE is_show = TRUE`
	}
	query += ` ORDER BY is_featured DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// GetProjectBySlug returns one project, visible or not
func (r *Repository) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	stmt, err := r.db.GetPreparedStatement("get_project_by_slug")
	if err != nil {
		return nil, err
	}

	p, err := scanProject(stmt.QueryRowContext(ctx, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// CreateProject inserts p and fills its id and timestamps
func (r *Repository) CreateProject(ctx context.Context, p *Project) error {
	stacks, err := encodeStacks(p.Stacks)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (title, slug, description, image, link_demo, link_github, stacks, content,
			is_show, is_featured, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Title, p.Slug, p.Description, p.Image, p.LinkDemo, p.LinkGithub, stacks, p.Content,
		p.IsShow, p.IsFeatured, now, now)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// UpdateProject replaces the mutable fields of the project stored under slug
func (r *Repository) UpdateProject(ctx context.Context, slug string, p *Project) error {
	stacks, err := encodeStacks(p.Stacks)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, slug = ?, description = ?, image = ?, link_demo = ?, link_github = ?,
			stacks = ?, content = ?, is_show = ?, is_featured = ?, updated_at = ?
		WHERE slug = ?
	`, p.Title, p.Slug, p.Description, p.Image, p.LinkDemo, p.LinkGithub, stacks, p.Content,
		p.IsShow, p.IsFeatured, now, slug)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes the project stored under slug
func (r *Repository) DeleteProject(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMessage stores a chat message
func (r *Repository) InsertMessage(ctx context.Context, m *Message) error {
	stmt, err := r.db.GetPreparedStatement("insert_message")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx, m.ID, m.Name, m.Email, m.Image, m.Message, m.IsReply, m.ReplyTo, m.IsShow, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns the newest limit visible messages, oldest first
func (r *Repository) ListMessages(ctx context.Context, limit int) ([]Message, error) {
	stmt, err := r.db.GetPreparedStatement("list_visible_messages")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// GetMessage returns one message, visible or not
func (r *Repository) GetMessage(ctx context.Context, id string) (*Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

// SetMessageVisibility shows or hides a message
func (r *Repository) SetMessageVisibility(ctx context.Context, id string, show bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_show = ? WHERE id = ?`, show, id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessagesByEmail removes every message sent with email and returns the count
func (r *Repository) DeleteMessagesByEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE email = ? COLLATE NOCASE`, email)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return res.RowsAffected()
}

// DeleteHiddenMessagesBefore purges hidden messages created before cutoff
func (r *Repository) DeleteHiddenMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE is_show = FALSE AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge hidden messages: %w", err)
	}
	return res.RowsAffected()
}

// CountMessages returns the number of stored messages, visible or not
func (r *Repository) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
