package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*DB, *Repository) {
	t.Helper()

	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, NewRepository(db)
}

func strPtr(s string) *string { return &s }

func TestNewDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	db, err := NewDB(dir)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, filepath.Join(dir, FileName))

	for _, name := range []string{"get_project_by_slug", "list_visible_messages", "insert_message"} {
		_, err := db.GetPreparedStatement(name)
		assert.NoError(t, err, name)
	}

	_, err = db.GetPreparedStatement("missing")
	assert.Error(t, err)

	stats := db.GetPoolStats()
	assert.Equal(t, 10, stats["max_open_connections"])
	assert.Equal(t, 5, stats["max_idle_connections"])
}

func TestNewDBReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := NewDB(dir)
	require.NoError(t, err)
	require.NoError(t, NewRepository(db).CreateProject(ctx, &Project{Title: "Keep", Slug: "keep", Description: "d", IsShow: true}))
	require.NoError(t, db.Close())

	db, err = NewDB(dir)
	require.NoError(t, err)
	defer db.Close()

	p, err := NewRepository(db).GetProjectBySlug(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "Keep", p.Title)
}

func TestProjectCRUD(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	p := &Project{
		Title:       "Devfolio",
		Slug:        "devfolio",
		Description: "Portfolio backend",
		LinkGithub:  strPtr("https://github.com/example/devfolio"),
		Stacks:      []string{"Go", "SQLite"},
		IsShow:      true,
	}
	require.NoError(t, repo.CreateProject(ctx, p))
	assert.NotZero(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := repo.GetProjectBySlug(ctx, "devfolio")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, []string{"Go", "SQLite"}, got.Stacks)
	require.NotNil(t, got.LinkGithub)
	assert.Equal(t, "https://github.com/example/devfolio", *got.LinkGithub)
	assert.Nil(t, got.LinkDemo)
	assert.Nil(t, got.Content)

	got.Title = "Devfolio API"
	got.Stacks = nil
	got.IsFeatured = true
	require.NoError(t, repo.UpdateProject(ctx, "devfolio", got))

	updated, err := repo.GetProjectBySlug(ctx, "devfolio")
	require.NoError(t, err)
	assert.Equal(t, "Devfolio API", updated.Title)
	assert.Equal(t, []string{}, updated.Stacks)
	assert.True(t, updated.IsFeatured)

	require.NoError(t, repo.DeleteProject(ctx, "devfolio"))
	_, err = repo.GetProjectBySlug(ctx, "devfolio")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectErrors(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateProject(ctx, &Project{Title: "A", Slug: "a", Description: "a"}))
	require.NoError(t, repo.CreateProject(ctx, &Project{Title: "B", Slug: "b", Description: "b"}))

	err := repo.CreateProject(ctx, &Project{Title: "A again", Slug: "a", Description: "a"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.UpdateProject(ctx, "b", &Project{Title: "B", Slug: "a", Description: "b"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.UpdateProject(ctx, "missing", &Project{Title: "X", Slug: "x", Description: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteProject(ctx, "missing"), ErrNotFound)
}

func TestListProjectsOrdering(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	for _, p := range []*Project{
		{Title: "Old", Slug: "old", Description: "d", IsShow: true},
		{Title: "Hidden", Slug: "hidden", Description: "d", IsShow: false},
		{Title: "Featured", Slug: "featured", Description: "d", IsShow: true, IsFeatured: true},
		{Title: "New", Slug: "new", Description: "d", IsShow: true},
	} {
		require.NoError(t, repo.CreateProject(ctx, p))
	}

	visible, err := repo.ListProjects(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, "featured", visible[0].Slug)
	assert.Equal(t, "new", visible[1].Slug)
	assert.Equal(t, "old", visible[2].Slug)

	all, err := repo.ListProjects(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListProjectsEmpty(t *testing.T) {
	_, repo := newTestRepository(t)

	projects, err := repo.ListProjects(context.Background(), false)
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestMessages(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	first := NewMessage("Ada", "ada@example.com", "hello", nil, nil)
	first.CreatedAt = time.Now().UTC().Add(-time.Minute)
	reply := NewMessage("Bob", "bob@example.com", "hi Ada", strPtr("https://img.example/bob.png"), &first.ID)

	require.NoError(t, repo.InsertMessage(ctx, first))
	require.NoError(t, repo.InsertMessage(ctx, reply))

	messages, err := repo.ListMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, "ada@example.com", messages[0].Email)
	assert.True(t, messages[1].IsReply)
	require.NotNil(t, messages[1].ReplyTo)
	assert.Equal(t, first.ID, *messages[1].ReplyTo)

	limited, err := repo.ListMessages(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, reply.ID, limited[0].ID)

	got, err := repo.GetMessage(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi Ada", got.Message)

	_, err = repo.GetMessage(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageVisibilityAndErasure(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	old := NewMessage("Ada", "Ada@Example.com", "old", nil, nil)
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	recent := NewMessage("Ada", "ada@example.com", "recent", nil, nil)
	other := NewMessage("Bob", "bob@example.com", "other", nil, nil)
	for _, m := range []*Message{old, recent, other} {
		require.NoError(t, repo.InsertMessage(ctx, m))
	}

	require.NoError(t, repo.SetMessageVisibility(ctx, old.ID, false))
	require.NoError(t, repo.SetMessageVisibility(ctx, recent.ID, false))
	assert.ErrorIs(t, repo.SetMessageVisibility(ctx, "missing", false), ErrNotFound)

	visible, err := repo.ListMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, other.ID, visible[0].ID)

	purged, err := repo.DeleteHiddenMessagesBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	count, err := repo.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	erased, err := repo.DeleteMessagesByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), erased)

	count, err = repo.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProjectHasStack(t *testing.T) {
	p := Project{Stacks: []string{"Go", "React"}}

	assert.True(t, p.HasStack("go"))
	assert.True(t, p.HasStack("REACT"))
	assert.False(t, p.HasStack("Rust"))
}
